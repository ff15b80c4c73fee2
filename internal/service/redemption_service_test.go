package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticket-booking/internal/codegen"
	"ticket-booking/internal/model"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedemptionService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - booking used once every code is redeemed", func(t *testing.T) {
		f := newFixture(t)
		booking, err := f.bookings.CreatePaid(ctx, f.buyer.ID, f.paidRequest(model.TicketTypeRegular, 2))
		require.NoError(t, err)

		first, err := f.redemption.Redeem(ctx, f.eventID, booking.Codes[0].Code, f.staff.ID)
		require.NoError(t, err)
		assert.False(t, first.AllCodesUsed)
		assert.Equal(t, 1, first.TicketNumber)
		assert.Equal(t, booking.Attendees[0], first.Attendee)
		assert.Equal(t, model.BookingStatusConfirmed, first.Booking.Status)

		second, err := f.redemption.Redeem(ctx, f.eventID, booking.Codes[1].Code, f.organizer.ID)
		require.NoError(t, err)
		assert.True(t, second.AllCodesUsed)
		assert.Equal(t, model.BookingStatusUsed, second.Booking.Status)
		assert.True(t, second.Booking.IsFullyCheckedIn)
		require.NotNil(t, second.Booking.CheckedInBy)
		assert.Equal(t, f.organizer.ID, *second.Booking.CheckedInBy)
		require.NotNil(t, second.Booking.CheckInTime)
		assert.True(t, f.now.Equal(*second.Booking.CheckInTime))

		stored, err := f.store.Bookings().FindByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusUsed, stored.Status)
		assert.True(t, stored.AllCodesUsed())
	})

	t.Run("Failed - code already used reports who and when", func(t *testing.T) {
		f := newFixture(t)
		booking, err := f.bookings.CreatePaid(ctx, f.buyer.ID, f.paidRequest(model.TicketTypeRegular, 2))
		require.NoError(t, err)
		code := booking.Codes[0].Code

		_, err = f.redemption.Redeem(ctx, f.eventID, code, f.staff.ID)
		require.NoError(t, err)

		_, err = f.redemption.Redeem(ctx, f.eventID, code, f.organizer.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrCodeAlreadyUsed)
		assert.ErrorIs(t, err, apperrors.ErrConflict)

		var used *apperrors.CodeAlreadyUsedError
		require.True(t, errors.As(err, &used))
		assert.Equal(t, f.staff.ID, used.UsedBy)
		assert.True(t, f.now.Equal(used.UsedAt))
	})

	t.Run("Failed - integrity hash mismatch", func(t *testing.T) {
		f := newFixture(t)

		forger, err := codegen.NewIssuer("some-other-secret")
		require.NoError(t, err)
		booking, err := f.newBookingService(forger).CreatePaid(ctx, f.buyer.ID, f.paidRequest(model.TicketTypeRegular, 1))
		require.NoError(t, err)

		_, err = f.redemption.Redeem(ctx, f.eventID, booking.Codes[0].Code, f.staff.ID)
		assert.ErrorIs(t, err, apperrors.ErrHashMismatch)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)

		stored, err := f.store.Bookings().FindByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.False(t, stored.Codes[0].IsUsed)
	})

	t.Run("Failed - cancelled booking", func(t *testing.T) {
		f := newFixture(t)
		booking, err := f.bookings.CreatePaid(ctx, f.buyer.ID, f.paidRequest(model.TicketTypeRegular, 1))
		require.NoError(t, err)
		_, err = f.bookings.Cancel(ctx, f.buyer.ID, booking.ID)
		require.NoError(t, err)

		_, err = f.redemption.Redeem(ctx, f.eventID, booking.Codes[0].Code, f.staff.ID)
		assert.ErrorIs(t, err, apperrors.ErrBookingNotConfirmed)
	})

	t.Run("Failed - code scoped to another event", func(t *testing.T) {
		f := newFixture(t)
		booking, err := f.bookings.CreatePaid(ctx, f.buyer.ID, f.paidRequest(model.TicketTypeRegular, 1))
		require.NoError(t, err)

		otherEvent := f.createEvent(t, f.now.Add(96*time.Hour), []model.TicketTypeRequest{
			{Name: model.TicketTypeRegular, UnitPrice: decimal.NewFromInt(10), Capacity: 5},
		})
		_, err = f.redemption.Redeem(ctx, otherEvent, booking.Codes[0].Code, f.organizer.ID)
		assert.ErrorIs(t, err, apperrors.ErrCodeNotFound)
	})

	t.Run("Failed - authorization", func(t *testing.T) {
		f := newFixture(t)
		booking, err := f.bookings.CreatePaid(ctx, f.buyer.ID, f.paidRequest(model.TicketTypeRegular, 1))
		require.NoError(t, err)
		code := booking.Codes[0].Code

		otherOrganizer := f.newActor(t, model.RoleOrganizer, "Rival Organizer")
		unassigned := f.newActor(t, model.RoleStaff, "Unassigned")

		for _, actorID := range []uuid.UUID{f.buyer.ID, otherOrganizer.ID, unassigned.ID} {
			_, err = f.redemption.Redeem(ctx, f.eventID, code, actorID)
			assert.ErrorIs(t, err, apperrors.ErrNotEventOrganizer)
		}

		_, err = f.redemption.Redeem(ctx, f.eventID, code, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrActorNotFound)
	})

	t.Run("Failed - malformed or unknown code", func(t *testing.T) {
		f := newFixture(t)

		for _, code := range []string{"", "12345", "12345678901", "12345abcde"} {
			_, err := f.redemption.Redeem(ctx, f.eventID, code, f.staff.ID)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput, code)
		}

		_, err := f.redemption.Redeem(ctx, f.eventID, "0000000001", f.staff.ID)
		assert.ErrorIs(t, err, apperrors.ErrCodeNotFound)

		_, err = f.redemption.Redeem(ctx, uuid.New(), "0000000001", f.staff.ID)
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})
}
