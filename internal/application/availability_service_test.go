package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
	redisinfra "github.com/resguarit/ticketera-rg-sub004/internal/infrastructure/redis"
)

func TestAvailabilityService_GetAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("内訳が正しく計算される", func(t *testing.T) {
		repo := newStubTicketRepo(newTicketType("tt-1", 100, 30))
		store := redisinfra.NewMemoryHoldStore()
		svc := NewAvailabilityService(repo, store, nil)

		injectHold(t, store, "session-1", "tt-1", 5, time.Now().Add(time.Minute))

		av, err := svc.GetAvailability(ctx, "tt-1")
		require.NoError(t, err)
		assert.Equal(t, 100, av.Total)
		assert.Equal(t, 30, av.Sold)
		assert.Equal(t, 5, av.Held)
		assert.Equal(t, 65, av.Available)
	})

	t.Run("期限切れホールドは含まれない", func(t *testing.T) {
		repo := newStubTicketRepo(newTicketType("tt-1", 100, 0))
		store := redisinfra.NewMemoryHoldStore()
		svc := NewAvailabilityService(repo, store, nil)

		injectHold(t, store, "session-1", "tt-1", 5, time.Now().Add(-time.Minute))

		av, err := svc.GetAvailability(ctx, "tt-1")
		require.NoError(t, err)
		assert.Equal(t, 0, av.Held)
		assert.Equal(t, 100, av.Available)
	})

	t.Run("存在しないチケット種別", func(t *testing.T) {
		svc := NewAvailabilityService(newStubTicketRepo(), redisinfra.NewMemoryHoldStore(), nil)
		_, err := svc.GetAvailability(ctx, "tt-missing")
		assert.ErrorIs(t, err, ticket.ErrTicketTypeNotFound)
	})
}

func TestAvailabilityService_ListByEvent(t *testing.T) {
	ctx := context.Background()
	repo := newStubTicketRepo(
		newTicketType("tt-1", 100, 30),
		newTicketType("tt-2", 50, 0),
	)
	store := redisinfra.NewMemoryHoldStore()
	svc := NewAvailabilityService(repo, store, nil)

	injectHold(t, store, "session-1", "tt-1", 10, time.Now().Add(time.Minute))

	result, err := svc.ListByEvent(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, result, 2)

	byID := make(map[string]int)
	for _, r := range result {
		byID[r.TicketType.ID] = r.Available
	}
	assert.Equal(t, 60, byID["tt-1"])
	assert.Equal(t, 50, byID["tt-2"])
}

func TestAvailabilityService_GetDebugInfo(t *testing.T) {
	ctx := context.Background()
	repo := newStubTicketRepo(newTicketType("tt-1", 100, 0))
	store := redisinfra.NewMemoryHoldStore()
	svc := NewAvailabilityService(repo, store, nil)

	injectHold(t, store, "session-1", "tt-1", 3, time.Now().Add(time.Minute))
	injectHold(t, store, "session-2", "tt-1", 2, time.Now().Add(-time.Minute)) // 期限切れ

	info, err := svc.GetDebugInfo(ctx, "tt-1")
	require.NoError(t, err)

	// Raw には期限切れも含まれる
	assert.Len(t, info.RawHolds, 2)
	assert.Equal(t, 3, info.Availability.Held)
	assert.Equal(t, 97, info.Availability.Available)
}
