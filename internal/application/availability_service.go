package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
	redisinfra "github.com/resguarit/ticketera-rg-sub004/internal/infrastructure/redis"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/logger"
)

// availabilityCacheTTL は公開一覧用の残数キャッシュの保持期間
const availabilityCacheTTL = 10 * time.Second

// Availability はチケット種別の在庫内訳を表す
type Availability struct {
	TicketTypeID string
	Total        int
	Sold         int
	Held         int
	Available    int
}

// DebugInfo は生のホールド状態と計算済みの在庫内訳を表す（診断用）
type DebugInfo struct {
	Availability *Availability
	RawHolds     hold.List
}

// AvailabilityService はチケット種別の残数を計算する
// 予約時の判定と同一の「失効除外→合計」経路を使用するため、
// 表示される残数と予約時に適用される残数は同じロジックで計算される
type AvailabilityService struct {
	ticketRepo ticket.Repository
	store      hold.Store
	cache      *redisinfra.AvailabilityCache
}

// NewAvailabilityService は新しいAvailabilityServiceを作成する
// cache は nil を許容する（公開一覧のみで使用される）
func NewAvailabilityService(tr ticket.Repository, store hold.Store, cache *redisinfra.AvailabilityCache) *AvailabilityService {
	return &AvailabilityService{ticketRepo: tr, store: store, cache: cache}
}

// GetAvailability はチケット種別の在庫内訳を返す
// キャッシュは使用しない。読み取りと後続の予約の間のずれは
// 予約側のアトミックな再判定で解決される
func (s *AvailabilityService) GetAvailability(ctx context.Context, ticketTypeID string) (*Availability, error) {
	t, err := s.ticketRepo.GetByID(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	holds, err := s.store.Get(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	held := holds.HeldQuantity(time.Now())
	return &Availability{
		TicketTypeID: ticketTypeID,
		Total:        t.TotalQuantity,
		Sold:         t.QuantitySold,
		Held:         held,
		Available:    t.TotalQuantity - t.QuantitySold - held,
	}, nil
}

// ListByEvent はイベントのチケット種別一覧を残数付きで返す
// 残数は短いTTLのキャッシュを経由する（公開一覧の表示用）
func (s *AvailabilityService) ListByEvent(ctx context.Context, eventID string) ([]*TicketTypeWithAvailability, error) {
	types, err := s.ticketRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	result := make([]*TicketTypeWithAvailability, len(types))
	for i, t := range types {
		available, err := s.cachedAvailable(ctx, t)
		if err != nil {
			return nil, err
		}
		result[i] = &TicketTypeWithAvailability{TicketType: t, Available: available}
	}
	return result, nil
}

// TicketTypeWithAvailability はチケット種別と表示用残数の組
type TicketTypeWithAvailability struct {
	TicketType *ticket.TicketType
	Available  int
}

func (s *AvailabilityService) cachedAvailable(ctx context.Context, t *ticket.TicketType) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetAvailable(ctx, t.ID)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	holds, err := s.store.Get(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	available := t.TotalQuantity - t.QuantitySold - holds.HeldQuantity(time.Now())

	if s.cache != nil {
		if cacheErr := s.cache.SetAvailable(ctx, t.ID, available, availabilityCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return available, nil
}

// GetDebugInfo は生のホールド一覧と在庫内訳を返す
// 本番環境では公開しない運用診断用の読み取り専用サーフェス
func (s *AvailabilityService) GetDebugInfo(ctx context.Context, ticketTypeID string) (*DebugInfo, error) {
	availability, err := s.GetAvailability(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	raw, err := s.store.Raw(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	return &DebugInfo{Availability: availability, RawHolds: raw}, nil
}
