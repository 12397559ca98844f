package redis

import (
	"context"
	"sync"
	"time"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
)

// MemoryHoldStore はプロセス内マップを使用したホールドストア
// 単一ノード構成およびユニットテスト用。HoldStore と同じインターフェースを満たす
type MemoryHoldStore struct {
	mu        sync.Mutex
	holds     map[string]hold.List
	sessions  map[string]map[string]struct{}
	confirmed map[string]struct{}
}

// NewMemoryHoldStore は新しいMemoryHoldStoreを作成する
func NewMemoryHoldStore() *MemoryHoldStore {
	return &MemoryHoldStore{
		holds:     make(map[string]hold.List),
		sessions:  make(map[string]map[string]struct{}),
		confirmed: make(map[string]struct{}),
	}
}

// Get は期限切れを除外したホールド一覧のスナップショットを返す
func (s *MemoryHoldStore) Get(ctx context.Context, ticketTypeID string) (hold.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyList(s.holds[ticketTypeID]).PruneExpired(time.Now()), nil
}

// Raw は期限切れを含む生のホールド一覧を返す（診断用）
func (s *MemoryHoldStore) Raw(ctx context.Context, ticketTypeID string) (hold.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyList(s.holds[ticketTypeID]), nil
}

// Mutate は fn を適用した一覧をアトミックにコミットする
// プロセス内ミューテックスが compare-and-set の役割を担うため、競合は発生しない
func (s *MemoryHoldStore) Mutate(ctx context.Context, ticketTypeID string, fn hold.MutateFunc) (hold.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := copyList(s.holds[ticketTypeID]).PruneExpired(time.Now())
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if len(next) == 0 {
		delete(s.holds, ticketTypeID)
	} else {
		s.holds[ticketTypeID] = copyList(next)
	}
	return next, nil
}

// IndexSession はセッションが触れたチケット種別を記録する
func (s *MemoryHoldStore) IndexSession(ctx context.Context, sessionID string, ticketTypeIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.sessions[sessionID]
	if !ok {
		idx = make(map[string]struct{})
		s.sessions[sessionID] = idx
	}
	for _, id := range ticketTypeIDs {
		idx[id] = struct{}{}
	}
	return nil
}

// UnindexSession はセッションのインデックスからチケット種別を取り除く
func (s *MemoryHoldStore) UnindexSession(ctx context.Context, sessionID string, ticketTypeIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	for _, id := range ticketTypeIDs {
		delete(idx, id)
	}
	if len(idx) == 0 {
		delete(s.sessions, sessionID)
	}
	return nil
}

// SessionTicketTypes はセッションが触れたチケット種別の一覧を返す
func (s *MemoryHoldStore) SessionTicketTypes(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions[sessionID]))
	for id := range s.sessions[sessionID] {
		ids = append(ids, id)
	}
	return ids, nil
}

// MarkConfirmed はセッションを確定済みとして記録する
func (s *MemoryHoldStore) MarkConfirmed(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.confirmed[sessionID]; ok {
		return false, nil
	}
	s.confirmed[sessionID] = struct{}{}
	return true, nil
}

// ClearConfirmed は確定済みの記録を取り消す
func (s *MemoryHoldStore) ClearConfirmed(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.confirmed, sessionID)
	return nil
}

// copyList はホールドを値コピーした一覧を返す
// 呼び出し元とストア内部で同じポインタを共有しないようにする
func copyList(l hold.List) hold.List {
	copied := make(hold.List, len(l))
	for i, h := range l {
		c := *h
		copied[i] = &c
	}
	return copied
}

var _ hold.Store = (*MemoryHoldStore)(nil)
