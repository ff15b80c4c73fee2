package cache_test

import (
	"context"
	"errors"
	"testing"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/model"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(eventID uuid.UUID, version int64, sold int) model.InventorySnapshot {
	return model.InventorySnapshot{
		EventID:    eventID,
		TicketType: model.TicketTypeVIP,
		UnitPrice:  decimal.RequireFromString("120.50"),
		Capacity:   100,
		Sold:       sold,
		Available:  100 - sold,
		Version:    version,
	}
}

func TestInventoryCache_Sync(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	keys := []string{cache.InventoryKey(eventID, model.TicketTypeVIP), cache.TypesKey(eventID)}

	t.Run("Success - newer version written", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectEval(cache.SyncScript, keys, "3", "100", "7", "120.5", "vip").
			SetVal([]interface{}{int64(1), "3"})

		written, err := inventory.Sync(ctx, snapshot(eventID, 3, 7))
		require.NoError(t, err)
		assert.True(t, written)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale version ignored", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectEval(cache.SyncScript, keys, "2", "100", "5", "120.5", "vip").
			SetVal([]interface{}{int64(0), "3"})

		written, err := inventory.Sync(ctx, snapshot(eventID, 2, 5))
		require.NoError(t, err)
		assert.False(t, written)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed - redis error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectEval(cache.SyncScript, keys, "3", "100", "7", "120.5", "vip").
			SetErr(errors.New("connection refused"))

		_, err := inventory.Sync(ctx, snapshot(eventID, 3, 7))
		assert.Error(t, err)
	})
}

func TestInventoryCache_Get(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectHGetAll(cache.InventoryKey(eventID, model.TicketTypeVIP)).SetVal(map[string]string{
			"version":  "4",
			"capacity": "100",
			"sold":     "40",
			"price":    "120.5",
		})

		snap, err := inventory.Get(ctx, eventID, model.TicketTypeVIP)
		require.NoError(t, err)
		assert.Equal(t, int64(4), snap.Version)
		assert.Equal(t, 60, snap.Available)
		assert.True(t, decimal.RequireFromString("120.50").Equal(snap.UnitPrice))
	})

	t.Run("Failed - cache miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectHGetAll(cache.InventoryKey(eventID, model.TicketTypeVIP)).SetVal(map[string]string{})

		_, err := inventory.Get(ctx, eventID, model.TicketTypeVIP)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("Failed - corrupt hash", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectHGetAll(cache.InventoryKey(eventID, model.TicketTypeVIP)).SetVal(map[string]string{
			"version": "x",
		})

		_, err := inventory.Get(ctx, eventID, model.TicketTypeVIP)
		assert.Error(t, err)
	})
}

func TestInventoryCache_GetEvent(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectSMembers(cache.TypesKey(eventID)).SetVal([]string{"regular"})
		mock.ExpectHGetAll(cache.InventoryKey(eventID, model.TicketTypeRegular)).SetVal(map[string]string{
			"version":  "1",
			"capacity": "10",
			"sold":     "0",
			"price":    "0",
		})

		snaps, err := inventory.GetEvent(ctx, eventID)
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, model.TicketTypeRegular, snaps[0].TicketType)
		assert.Equal(t, 10, snaps[0].Available)
	})

	t.Run("Failed - cache miss", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		inventory := cache.NewRedisInventoryCache(db)

		mock.ExpectSMembers(cache.TypesKey(eventID)).SetVal([]string{})

		_, err := inventory.GetEvent(ctx, eventID)
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})
}
