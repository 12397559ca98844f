package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCache はチケット種別の残数キャッシュを管理する
// 公開一覧の表示用であり、予約エンジンの判定には使用しない
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailable はチケット種別の残数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailable(ctx context.Context, ticketTypeID string) (int, error) {
	val, err := c.client.Get(ctx, c.availableKey(ticketTypeID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailable はチケット種別の残数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailable(ctx context.Context, ticketTypeID string, count int, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.availableKey(ticketTypeID), count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はチケット種別のキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, ticketTypeID string) error {
	if err := c.client.Del(ctx, c.availableKey(ticketTypeID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) availableKey(ticketTypeID string) string {
	return fmt.Sprintf("tickettypes:available:%s", ticketTypeID)
}
