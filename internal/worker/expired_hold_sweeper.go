package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/logger"
)

// TicketTypeLister はスイーパーが巡回するチケット種別IDの供給元
type TicketTypeLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// ExpiredHoldSweeper は期限切れホールドを物理的に圧縮するワーカー
// 正しさは読み取り時の遅延失効で保証されるため、これはストレージの
// 肥大化を抑えるための最適化にすぎない
type ExpiredHoldSweeper struct {
	store    hold.Store
	lister   TicketTypeLister
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewExpiredHoldSweeper は新しいスイーパーを作成
func NewExpiredHoldSweeper(store hold.Store, lister TicketTypeLister, interval time.Duration) *ExpiredHoldSweeper {
	return &ExpiredHoldSweeper{
		store:    store,
		lister:   lister,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (w *ExpiredHoldSweeper) Start(ctx context.Context) {
	logger.Info("期限切れホールドスイーパー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れホールドスイーパー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れホールドスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (w *ExpiredHoldSweeper) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// sweep は全チケット種別を巡回し、期限切れホールドを圧縮する
func (w *ExpiredHoldSweeper) sweep(ctx context.Context) {
	ids, err := w.lister.ListIDs(ctx)
	if err != nil {
		logger.Error("チケット種別一覧の取得に失敗", zap.Error(err))
		return
	}

	compacted := 0
	for _, id := range ids {
		raw, err := w.store.Raw(ctx, id)
		if err != nil {
			logger.Warn("ホールド一覧の取得に失敗", zap.String("ticket_type_id", id), zap.Error(err))
			continue
		}
		expired := len(raw) - len(raw.PruneExpired(time.Now()))
		if expired == 0 {
			continue
		}
		// Mutate はコミット前に失効分を除外するため、恒等変換で圧縮される
		if _, err := w.store.Mutate(ctx, id, func(holds hold.List) (hold.List, error) {
			return holds, nil
		}); err != nil {
			logger.Warn("ホールド圧縮に失敗", zap.String("ticket_type_id", id), zap.Error(err))
			continue
		}
		compacted += expired
	}

	if compacted > 0 {
		logger.Info("期限切れホールドを圧縮", zap.Int("count", compacted))
	} else {
		logger.Debug("期限切れホールドなし")
	}
}
