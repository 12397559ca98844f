package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/transaction"
	"github.com/resguarit/ticketera-rg-sub004/internal/infrastructure/queue"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/logger"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/metrics"
)

var (
	ErrEmptyCart = errors.New("カートが空です")
)

// releaseRetries は release 時のストアエラーに対するローカルリトライ回数
// release は呼び出し元のクリーンアップを失敗させてはならない
const releaseRetries = 3

// ConfirmedPublisher は確定イベントの発行先インターフェース
type ConfirmedPublisher interface {
	PublishOrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error
}

// AvailabilityInvalidator は残数キャッシュの無効化インターフェース
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, ticketTypeID string) error
}

// CartLine はカートの1行（チケット種別と数量）を表す
type CartLine struct {
	TicketTypeID string
	Quantity     int
}

// ReservationService はホールドの作成・延長・確定・解放を取りまとめる
// 共有状態の変更はすべて hold.Store の Mutate を経由する
type ReservationService struct {
	txManager  transaction.Manager
	ticketRepo ticket.Repository
	store      hold.Store
	publisher  ConfirmedPublisher
	cache      AvailabilityInvalidator
	holdTTL    time.Duration
}

// NewReservationService は新しいReservationServiceを作成する
// publisher と cache は nil を許容する
func NewReservationService(
	txManager transaction.Manager,
	ticketRepo ticket.Repository,
	store hold.Store,
	publisher ConfirmedPublisher,
	cache AvailabilityInvalidator,
	holdTTL time.Duration,
) *ReservationService {
	if holdTTL <= 0 {
		holdTTL = hold.DefaultTTL
	}
	return &ReservationService{
		txManager:  txManager,
		ticketRepo: ticketRepo,
		store:      store,
		publisher:  publisher,
		cache:      cache,
		holdTTL:    holdTTL,
	}
}

// Reserve はカート全体のホールドを作成する
// いずれかの行が失敗した場合、この呼び出しで作成済みのホールドを
// 補償解放してからエラーを返す（カート単位の全件成功か全件なし）
func (s *ReservationService) Reserve(ctx context.Context, sessionID string, cart []CartLine) (*hold.Reservation, error) {
	if sessionID == "" {
		return nil, hold.ErrSessionIDRequired
	}
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	created := make([]*hold.Hold, 0, len(cart))

	for _, line := range cart {
		h, err := s.reserveLine(ctx, sessionID, line)
		if err == nil {
			// 作成済みホールドは失敗時の補償対象に含める
			created = append(created, h)
			if idxErr := s.store.IndexSession(ctx, sessionID, line.TicketTypeID); idxErr != nil {
				// インデックスがないと延長・確定でホールドを見つけられない
				err = idxErr
			}
		}
		if err != nil {
			s.compensate(ctx, sessionID, created, line.TicketTypeID)
			s.countOperation("reserve", err)
			return nil, err
		}
		s.invalidate(ctx, line.TicketTypeID)
	}

	s.countOperation("reserve", nil)
	return &hold.Reservation{
		SessionID: sessionID,
		Holds:     created,
		ExpiresAt: earliestExpiry(created),
	}, nil
}

// reserveLine は1行分のホールドをアトミックに作成する
// 残数の判定とホールドの追加は同一の compare-and-set 内で行う
func (s *ReservationService) reserveLine(ctx context.Context, sessionID string, line CartLine) (*hold.Hold, error) {
	if line.TicketTypeID == "" {
		return nil, hold.ErrTicketTypeIDRequired
	}
	if line.Quantity <= 0 {
		return nil, hold.ErrInvalidQuantity
	}

	var h *hold.Hold
	_, err := s.store.Mutate(ctx, line.TicketTypeID, func(holds hold.List) (hold.List, error) {
		// 総数と販売数はリトライのたびに読み直す
		t, err := s.ticketRepo.GetByID(ctx, line.TicketTypeID)
		if err != nil {
			return nil, err
		}
		available := t.TotalQuantity - t.QuantitySold - holds.HeldQuantity(time.Now())
		if line.Quantity > available {
			return nil, &hold.InsufficientAvailabilityError{
				TicketTypeID: line.TicketTypeID,
				Requested:    line.Quantity,
				Available:    available,
			}
		}
		h = hold.NewHold(sessionID, line.TicketTypeID, line.Quantity, s.holdTTL)
		return append(holds, h), nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// compensate は Reserve 途中失敗時にこの呼び出しで確保した分を解放する
// 同一セッションが過去の呼び出しで確保したホールドには触れない
func (s *ReservationService) compensate(ctx context.Context, sessionID string, created []*hold.Hold, failedID string) {
	if len(created) == 0 {
		return
	}
	logger.Warn("カート予約に失敗したため確保済みホールドを解放します",
		zap.String("session_id", sessionID),
		zap.String("failed_ticket_type_id", failedID),
		zap.Int("reserved_lines", len(created)),
	)
	for _, h := range created {
		s.removeCreatedHold(ctx, h)
	}
}

// removeCreatedHold は補償対象のホールドをIDで1件だけ取り除く
// セッションに他のホールドが残らなくなった場合のみインデックスも外す
func (s *ReservationService) removeCreatedHold(ctx context.Context, h *hold.Hold) {
	var remaining int
	var lastErr error
	for attempt := 0; attempt < releaseRetries; attempt++ {
		_, lastErr = s.store.Mutate(ctx, h.TicketTypeID, func(holds hold.List) (hold.List, error) {
			kept, _ := holds.RemoveByID(h.ID)
			remaining = kept.SessionQuantity(h.SessionID, time.Now())
			return kept, nil
		})
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		logger.Warn("補償解放に失敗しました（TTL失効に委ねます）",
			zap.String("session_id", h.SessionID),
			zap.String("ticket_type_id", h.TicketTypeID),
			zap.Error(lastErr),
		)
		return
	}
	if remaining == 0 {
		s.unindex(ctx, h.SessionID, h.TicketTypeID)
	}
	s.invalidate(ctx, h.TicketTypeID)
}

// Extend はセッションの有効なホールドの期限を now+TTL に更新する
// 期限切れのホールドは延長できず、対象が1件もない場合は ErrNothingToExtend
func (s *ReservationService) Extend(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return hold.ErrSessionIDRequired
	}
	ids, err := s.store.SessionTicketTypes(ctx, sessionID)
	if err != nil {
		s.countOperation("extend", err)
		return err
	}

	extended := 0
	for _, id := range ids {
		var n int
		_, err := s.store.Mutate(ctx, id, func(holds hold.List) (hold.List, error) {
			n = 0
			now := time.Now()
			for _, h := range holds {
				if h.SessionID != sessionID {
					continue
				}
				if err := h.Refresh(now, s.holdTTL); err == nil {
					n++
				}
			}
			return holds, nil
		})
		if err != nil {
			s.countOperation("extend", err)
			return err
		}
		extended += n
	}

	if extended == 0 {
		s.countOperation("extend", hold.ErrNothingToExtend)
		return hold.ErrNothingToExtend
	}
	s.countOperation("extend", nil)
	return nil
}

// Confirm はセッションのホールドを確定し、販売数を永続化する
// 販売数の加算が失敗した場合はホールドを残す（TTL失効まで容量を確保し続ける）
// 再呼び出しは ErrSessionAlreadyConfirmed を返す無害な no-op となる
func (s *ReservationService) Confirm(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, hold.ErrSessionIDRequired
	}

	claimed, err := s.store.MarkConfirmed(ctx, sessionID)
	if err != nil {
		s.countOperation("confirm", err)
		return 0, err
	}
	if !claimed {
		s.countOperation("confirm", hold.ErrSessionAlreadyConfirmed)
		return 0, hold.ErrSessionAlreadyConfirmed
	}

	// 確定に失敗した場合はマーカーを取り消し、再試行を可能にする
	committed := false
	defer func() {
		if !committed {
			if clearErr := s.store.ClearConfirmed(ctx, sessionID); clearErr != nil {
				logger.Error("確定マーカーの取り消しに失敗しました",
					zap.String("session_id", sessionID), zap.Error(clearErr))
			}
		}
	}()

	ids, err := s.store.SessionTicketTypes(ctx, sessionID)
	if err != nil {
		s.countOperation("confirm", err)
		return 0, err
	}

	// 有効なホールドの数量を集計する（期限切れは確定できない）
	now := time.Now()
	quantities := make(map[string]int)
	for _, id := range ids {
		holds, err := s.store.Get(ctx, id)
		if err != nil {
			s.countOperation("confirm", err)
			return 0, err
		}
		if q := holds.SessionQuantity(sessionID, now); q > 0 {
			quantities[id] = q
		}
	}
	if len(quantities) == 0 {
		committed = true
		s.countOperation("confirm", nil)
		return 0, nil
	}

	// 販売数の加算は発券と同一の作業単位（DBトランザクション）で行う
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		s.countOperation("confirm", err)
		return 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for id, q := range quantities {
		if err := s.ticketRepo.IncrementSold(ctx, tx, id, q); err != nil {
			s.countOperation("confirm", err)
			return 0, err
		}
		total += q
	}
	if err := tx.Commit(); err != nil {
		s.countOperation("confirm", err)
		return 0, fmt.Errorf("コミットに失敗: %w", err)
	}
	committed = true

	// コミット後のホールド削除はベストエフォート
	// 失敗してもホールドはTTLで失効するだけで、売り越しにはならない
	for id := range quantities {
		s.removeSessionHolds(ctx, sessionID, id)
	}
	for _, id := range ids {
		if _, ok := quantities[id]; !ok {
			s.unindex(ctx, sessionID, id)
		}
	}

	s.publishConfirmed(ctx, sessionID, quantities, total)
	if m := metrics.Get(); m != nil {
		m.ConfirmedQuantityTotal.Add(float64(total))
	}
	s.countOperation("confirm", nil)
	return total, nil
}

// Release はセッションのホールドを全チケット種別から無条件に取り除く
// ストアの一時エラーはローカルでリトライした上でログに残すだけとし、
// 呼び出し元のクリーンアップを決して失敗させない
func (s *ReservationService) Release(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	ids, err := s.store.SessionTicketTypes(ctx, sessionID)
	if err != nil {
		logger.Warn("セッションインデックスの取得に失敗しました",
			zap.String("session_id", sessionID), zap.Error(err))
		s.countOperation("release", nil)
		return 0, nil
	}

	released := 0
	for _, id := range ids {
		released += s.removeSessionHolds(ctx, sessionID, id)
	}
	s.countOperation("release", nil)
	return released, nil
}

// removeSessionHolds は1チケット種別からセッションのホールドを取り除き、解放数量を返す
func (s *ReservationService) removeSessionHolds(ctx context.Context, sessionID, ticketTypeID string) int {
	var removed int
	var lastErr error
	for attempt := 0; attempt < releaseRetries; attempt++ {
		_, lastErr = s.store.Mutate(ctx, ticketTypeID, func(holds hold.List) (hold.List, error) {
			kept, n := holds.RemoveSession(sessionID)
			removed = n
			return kept, nil
		})
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		logger.Warn("ホールド解放に失敗しました（TTL失効に委ねます）",
			zap.String("session_id", sessionID),
			zap.String("ticket_type_id", ticketTypeID),
			zap.Error(lastErr),
		)
		return 0
	}
	s.unindex(ctx, sessionID, ticketTypeID)
	s.invalidate(ctx, ticketTypeID)
	return removed
}

func (s *ReservationService) unindex(ctx context.Context, sessionID, ticketTypeID string) {
	if err := s.store.UnindexSession(ctx, sessionID, ticketTypeID); err != nil {
		logger.Debug("セッションインデックスの更新に失敗しました",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *ReservationService) invalidate(ctx context.Context, ticketTypeID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ticketTypeID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Error(err))
	}
}

func (s *ReservationService) publishConfirmed(ctx context.Context, sessionID string, quantities map[string]int, total int) {
	if s.publisher == nil {
		return
	}
	ev := queue.OrderConfirmedEvent{
		SessionID:   sessionID,
		Quantities:  quantities,
		TotalCount:  total,
		ConfirmedAt: time.Now(),
	}
	if err := s.publisher.PublishOrderConfirmed(ctx, ev); err != nil {
		logger.Warn("確定イベントの発行に失敗しました",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// countOperation は予約エンジン操作のメトリクスを記録する
func (s *ReservationService) countOperation(operation string, err error) {
	m := metrics.Get()
	if m == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, hold.ErrInsufficientAvailability):
		status = "insufficient"
	case errors.Is(err, hold.ErrLockContention):
		status = "contention"
	default:
		status = "error"
	}
	m.ReservationsTotal.WithLabelValues(operation, status).Inc()
}

// earliestExpiry はホールド群のうち最も早い有効期限を返す
func earliestExpiry(holds []*hold.Hold) time.Time {
	if len(holds) == 0 {
		return time.Time{}
	}
	earliest := holds[0].ExpiresAt
	for _, h := range holds[1:] {
		if h.ExpiresAt.Before(earliest) {
			earliest = h.ExpiresAt
		}
	}
	return earliest
}
