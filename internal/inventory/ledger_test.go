package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ticket-booking/internal/inventory"
	"ticket-booking/internal/model"
	"ticket-booking/internal/repository/memory"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedger(t *testing.T, capacity int) (*inventory.Ledger, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	eventID := uuid.New()
	_, err := store.TicketTypes().Create(context.Background(), &model.TicketType{
		EventID:   eventID,
		Name:      model.TicketTypeRegular,
		UnitPrice: decimal.NewFromInt(50),
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return inventory.NewLedger(store.TicketTypes()), store, eventID
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ledger, _, eventID := setupLedger(t, 10)

		tt, err := ledger.Reserve(ctx, eventID, model.TicketTypeRegular, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, tt.Sold)
		assert.Equal(t, int64(2), tt.Version)

		available, err := ledger.Available(ctx, eventID, model.TicketTypeRegular)
		require.NoError(t, err)
		assert.Equal(t, 6, available)
	})

	t.Run("Failed - insufficient inventory leaves counter unchanged", func(t *testing.T) {
		ledger, _, eventID := setupLedger(t, 3)

		_, err := ledger.Reserve(ctx, eventID, model.TicketTypeRegular, 4)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
		assert.ErrorIs(t, err, apperrors.ErrConflict)

		available, err := ledger.Available(ctx, eventID, model.TicketTypeRegular)
		require.NoError(t, err)
		assert.Equal(t, 3, available)
	})

	t.Run("Failed - unknown ticket type", func(t *testing.T) {
		ledger, _, eventID := setupLedger(t, 3)

		_, err := ledger.Reserve(ctx, eventID, model.TicketTypeVIP, 1)
		assert.ErrorIs(t, err, apperrors.ErrUnknownTicketType)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Failed - invalid quantity", func(t *testing.T) {
		ledger, _, eventID := setupLedger(t, 3)

		_, err := ledger.Reserve(ctx, eventID, model.TicketTypeRegular, 0)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("Rolled back with the unit of work", func(t *testing.T) {
		ledger, store, eventID := setupLedger(t, 5)

		boom := errors.New("boom")
		err := store.WithTx(ctx, func(ctx context.Context) error {
			if _, err := ledger.Reserve(ctx, eventID, model.TicketTypeRegular, 5); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		tt, err := store.TicketTypes().FindByEventAndName(ctx, eventID, model.TicketTypeRegular)
		require.NoError(t, err)
		assert.Equal(t, 0, tt.Sold)
		assert.Equal(t, int64(1), tt.Version)
	})
}

func TestLedger_Reserve_Concurrent(t *testing.T) {
	ledger, store, eventID := setupLedger(t, 10)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(ctx, eventID, model.TicketTypeRegular, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, apperrors.ErrInsufficientInventory) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, successes)
	assert.Equal(t, 90, conflicts)

	tt, err := store.TicketTypes().FindByEventAndName(ctx, eventID, model.TicketTypeRegular)
	require.NoError(t, err)
	assert.Equal(t, 10, tt.Sold)
}

func TestLedger_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ledger, _, eventID := setupLedger(t, 10)
		_, err := ledger.Reserve(ctx, eventID, model.TicketTypeRegular, 5)
		require.NoError(t, err)

		tt, err := ledger.Release(ctx, eventID, model.TicketTypeRegular, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, tt.Sold)
	})

	t.Run("Floors at zero", func(t *testing.T) {
		ledger, _, eventID := setupLedger(t, 10)
		_, err := ledger.Reserve(ctx, eventID, model.TicketTypeRegular, 2)
		require.NoError(t, err)

		tt, err := ledger.Release(ctx, eventID, model.TicketTypeRegular, 5)
		require.NoError(t, err)
		assert.Equal(t, 0, tt.Sold)
	})

	t.Run("Failed - unknown ticket type", func(t *testing.T) {
		ledger, _, eventID := setupLedger(t, 10)
		_, err := ledger.Release(ctx, eventID, model.TicketTypeStudent, 1)
		assert.ErrorIs(t, err, apperrors.ErrUnknownTicketType)
	})
}
