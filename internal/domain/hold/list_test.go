package hold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testList(now time.Time) List {
	return List{
		{SessionID: "a", TicketTypeID: "tt-1", Quantity: 2, Status: StatusActive, ExpiresAt: now.Add(time.Minute)},
		{SessionID: "a", TicketTypeID: "tt-1", Quantity: 1, Status: StatusActive, ExpiresAt: now.Add(-time.Minute)}, // 期限切れ
		{SessionID: "b", TicketTypeID: "tt-1", Quantity: 3, Status: StatusActive, ExpiresAt: now.Add(time.Minute)},
	}
}

func TestList_PruneExpired(t *testing.T) {
	now := time.Now()
	pruned := testList(now).PruneExpired(now)

	assert.Len(t, pruned, 2)
	for _, h := range pruned {
		assert.True(t, h.IsActive(now))
	}
}

func TestList_HeldQuantity(t *testing.T) {
	now := time.Now()

	t.Run("期限切れは合計に含まれない", func(t *testing.T) {
		assert.Equal(t, 5, testList(now).HeldQuantity(now))
	})

	t.Run("空の一覧", func(t *testing.T) {
		assert.Equal(t, 0, List{}.HeldQuantity(now))
	})
}

func TestList_SessionQuantity(t *testing.T) {
	now := time.Now()
	l := testList(now)

	assert.Equal(t, 2, l.SessionQuantity("a", now)) // 期限切れの1枚は除外
	assert.Equal(t, 3, l.SessionQuantity("b", now))
	assert.Equal(t, 0, l.SessionQuantity("c", now))
}

func TestList_RemoveByID(t *testing.T) {
	now := time.Now()
	l := List{
		{ID: "h-1", SessionID: "a", TicketTypeID: "tt-1", Quantity: 2, Status: StatusActive, ExpiresAt: now.Add(time.Minute)},
		{ID: "h-2", SessionID: "a", TicketTypeID: "tt-1", Quantity: 1, Status: StatusActive, ExpiresAt: now.Add(time.Minute)},
	}

	t.Run("指定IDのみ除外される", func(t *testing.T) {
		kept, removed := l.RemoveByID("h-2")
		assert.True(t, removed)
		assert.Len(t, kept, 1)
		assert.Equal(t, "h-1", kept[0].ID)
		assert.Equal(t, 2, kept.SessionQuantity("a", now)) // 同一セッションの他のホールドは残る
	})

	t.Run("該当なし", func(t *testing.T) {
		kept, removed := l.RemoveByID("h-9")
		assert.False(t, removed)
		assert.Len(t, kept, 2)
	})
}

func TestList_RemoveSession(t *testing.T) {
	now := time.Now()

	t.Run("状態や期限に関わらず除外される", func(t *testing.T) {
		kept, removed := testList(now).RemoveSession("a")
		assert.Len(t, kept, 1)
		assert.Equal(t, 3, removed) // 期限切れの1枚も数量に含む
		assert.Equal(t, "b", kept[0].SessionID)
	})

	t.Run("該当なし", func(t *testing.T) {
		kept, removed := testList(now).RemoveSession("c")
		assert.Len(t, kept, 3)
		assert.Equal(t, 0, removed)
	})
}
