package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/logger"
	"github.com/resguarit/ticketera-rg-sub004/internal/pkg/metrics"
)

const (
	// payloadVersion はホールド一覧ペイロードの形式バージョン
	payloadVersion = 1

	// sessionIndexTTL はセッションインデックスと確定マーカーの保持期間
	// ホールド本体が正であり、インデックスは失効しても安全に再構築できる
	sessionIndexTTL = 24 * time.Hour
)

// envelope はRedisに保存するホールド一覧の形式
type envelope struct {
	Version int       `json:"v"`
	Holds   hold.List `json:"holds"`
}

// HoldStore はRedisを使用したホールドストア
// 変更は WATCH + MULTI/EXEC の compare-and-set で直列化する
type HoldStore struct {
	client     *redis.Client
	maxRetries int
	retryDelay time.Duration
}

// NewHoldStore は新しいHoldStoreを作成する
func NewHoldStore(client *redis.Client, maxRetries int, retryDelay time.Duration) *HoldStore {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if retryDelay <= 0 {
		retryDelay = 20 * time.Millisecond
	}
	return &HoldStore{client: client, maxRetries: maxRetries, retryDelay: retryDelay}
}

// Get は期限切れを除外したホールド一覧のスナップショットを返す
func (s *HoldStore) Get(ctx context.Context, ticketTypeID string) (hold.List, error) {
	holds, err := s.Raw(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	return holds.PruneExpired(time.Now()), nil
}

// Raw は期限切れを含む生のホールド一覧を返す（診断用）
func (s *HoldStore) Raw(ctx context.Context, ticketTypeID string) (hold.List, error) {
	raw, err := s.client.Get(ctx, s.holdsKey(ticketTypeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return hold.List{}, nil
		}
		return nil, fmt.Errorf("%w: %v", hold.ErrStoreUnavailable, err)
	}
	return decodeHolds([]byte(raw))
}

// Mutate は fn を適用した一覧をアトミックにコミットする
// WATCH したキーが他のクライアントに変更された場合はジッター付きバックオフで
// リトライし、試行回数の上限に達したら ErrLockContention を返す
func (s *HoldStore) Mutate(ctx context.Context, ticketTypeID string, fn hold.MutateFunc) (hold.List, error) {
	key := s.holdsKey(ticketTypeID)
	start := time.Now()

	var result hold.List
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current := hold.List{}
			raw, err := tx.Get(ctx, key).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %v", hold.ErrStoreUnavailable, err)
			}
			if err == nil {
				current, err = decodeHolds([]byte(raw))
				if err != nil {
					return err
				}
			}

			// 失効の遅延反映: fn には期限切れを除外した一覧を渡す
			next, err := fn(current.PruneExpired(time.Now()))
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(next) == 0 {
					pipe.Del(ctx, key)
					return nil
				}
				payload, err := json.Marshal(envelope{Version: payloadVersion, Holds: next})
				if err != nil {
					return fmt.Errorf("ホールド一覧のエンコードに失敗: %w", err)
				}
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			if err != nil {
				return err
			}
			result = next
			return nil
		}, key)

		if err == nil {
			s.observeMutate("success", start)
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			s.observeMutate("error", start)
			return nil, err
		}

		// CAS競合: ジッター付きバックオフで再試行
		s.observeRetry(ticketTypeID)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.backoff(attempt)):
		}
	}

	s.observeMutate("contention", start)
	logger.Warn("ホールド更新の競合リトライが上限に達しました",
		zap.String("ticket_type_id", ticketTypeID),
		zap.Int("max_retries", s.maxRetries),
	)
	return nil, hold.ErrLockContention
}

// IndexSession はセッションが触れたチケット種別を記録する
func (s *HoldStore) IndexSession(ctx context.Context, sessionID string, ticketTypeIDs ...string) error {
	if len(ticketTypeIDs) == 0 {
		return nil
	}
	key := s.sessionKey(sessionID)
	members := make([]interface{}, len(ticketTypeIDs))
	for i, id := range ticketTypeIDs {
		members[i] = id
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, sessionIndexTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", hold.ErrStoreUnavailable, err)
	}
	return nil
}

// UnindexSession はセッションのインデックスからチケット種別を取り除く
func (s *HoldStore) UnindexSession(ctx context.Context, sessionID string, ticketTypeIDs ...string) error {
	if len(ticketTypeIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(ticketTypeIDs))
	for i, id := range ticketTypeIDs {
		members[i] = id
	}
	if err := s.client.SRem(ctx, s.sessionKey(sessionID), members...).Err(); err != nil {
		return fmt.Errorf("%w: %v", hold.ErrStoreUnavailable, err)
	}
	return nil
}

// SessionTicketTypes はセッションが触れたチケット種別の一覧を返す
func (s *HoldStore) SessionTicketTypes(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hold.ErrStoreUnavailable, err)
	}
	return ids, nil
}

// MarkConfirmed はセッションを確定済みとして記録する（SETNX）
// 既に確定済みの場合は false を返す
func (s *HoldStore) MarkConfirmed(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.confirmedKey(sessionID), "1", sessionIndexTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", hold.ErrStoreUnavailable, err)
	}
	return ok, nil
}

// ClearConfirmed は確定済みの記録を取り消す
func (s *HoldStore) ClearConfirmed(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.confirmedKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", hold.ErrStoreUnavailable, err)
	}
	return nil
}

// backoff は attempt 回目のリトライ待ち時間を返す（指数 + ジッター）
func (s *HoldStore) backoff(attempt int) time.Duration {
	base := s.retryDelay << uint(attempt)
	jitter := time.Duration(rand.Int63n(int64(s.retryDelay)))
	return base + jitter
}

func (s *HoldStore) observeMutate(status string, start time.Time) {
	if m := metrics.Get(); m != nil {
		m.HoldMutateDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}

func (s *HoldStore) observeRetry(ticketTypeID string) {
	if m := metrics.Get(); m != nil {
		m.HoldMutateRetriesTotal.Inc()
	}
	logger.Debug("ホールド更新が競合しました", zap.String("ticket_type_id", ticketTypeID))
}

func (s *HoldStore) holdsKey(ticketTypeID string) string {
	return fmt.Sprintf("holds:tickettype:%s", ticketTypeID)
}

func (s *HoldStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:holds:%s", sessionID)
}

func (s *HoldStore) confirmedKey(sessionID string) string {
	return fmt.Sprintf("session:confirmed:%s", sessionID)
}

// decodeHolds はペイロードをホールド一覧に変換する
// 旧形式（裸の配列）は受け付けず、バージョン付き形式のみを正とする
func decodeHolds(raw []byte) (hold.List, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("ホールド一覧のデコードに失敗: %w", err)
	}
	if env.Version != payloadVersion {
		return nil, fmt.Errorf("未対応のペイロードバージョンです: %d", env.Version)
	}
	if env.Holds == nil {
		return hold.List{}, nil
	}
	return env.Holds, nil
}

var _ hold.Store = (*HoldStore)(nil)
