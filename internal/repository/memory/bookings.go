package memory

import (
	"context"
	"sort"
	"time"

	"ticket-booking/internal/model"
	"ticket-booking/internal/repository"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
)

type bookingRepository struct {
	s *Store
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	err := r.s.run(ctx, func(uow *unitOfWork) error {
		if _, exists := r.s.references[booking.PaymentReference]; exists {
			return repository.ErrDuplicatePaymentReference
		}
		if booking.PaymentStatus == model.PaymentStatusFree && r.activeFreeExists(booking.UserID, booking.EventID) {
			return apperrors.ErrDuplicateRegistration
		}
		if booking.ID == uuid.Nil {
			booking.ID = uuid.New()
		}
		now := time.Now().UTC()
		booking.Version = 1
		booking.CreatedAt, booking.UpdatedAt = now, now

		codes := booking.Codes
		booking.Codes = nil
		stored := cloneBooking(booking)
		r.s.bookings[booking.ID] = stored
		r.s.references[booking.PaymentReference] = booking.ID
		id, ref := booking.ID, booking.PaymentReference
		uow.onRollback(func() {
			delete(r.s.bookings, id)
			delete(r.s.references, ref)
		})

		if len(codes) > 0 {
			return r.insertCodes(uow, booking, codes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *bookingRepository) activeFreeExists(userID, eventID uuid.UUID) bool {
	for _, b := range r.s.bookings {
		if b.UserID == userID && b.EventID == eventID && b.PaymentStatus == model.PaymentStatusFree &&
			!b.Status.IsTerminal() {
			return true
		}
	}
	return false
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var found *model.Booking
	err := r.s.run(ctx, func(*unitOfWork) error {
		b, ok := r.s.bookings[id]
		if !ok {
			return apperrors.ErrBookingNotFound
		}
		found = cloneBooking(b)
		return nil
	})
	return found, err
}

// FindByIDForUpdate is FindByID: the unit of work already holds the store lock.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *bookingRepository) FindByPaymentReference(ctx context.Context, reference string) (*model.Booking, error) {
	var found *model.Booking
	err := r.s.run(ctx, func(*unitOfWork) error {
		id, ok := r.s.references[reference]
		if !ok {
			return apperrors.ErrBookingNotFound
		}
		found = cloneBooking(r.s.bookings[id])
		return nil
	})
	return found, err
}

func (r *bookingRepository) FindActiveByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*model.Booking, error) {
	var found *model.Booking
	err := r.s.run(ctx, func(*unitOfWork) error {
		for _, b := range r.s.bookings {
			if b.UserID != userID || b.EventID != eventID {
				continue
			}
			if b.Status.IsTerminal() {
				continue
			}
			if found == nil || b.CreatedAt.After(found.CreatedAt) {
				found = cloneBooking(b)
			}
		}
		if found == nil {
			return apperrors.ErrBookingNotFound
		}
		return nil
	})
	return found, err
}

func (r *bookingRepository) FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*model.Booking, error) {
	var found *model.Booking
	err := r.s.run(ctx, func(*unitOfWork) error {
		id, ok := r.s.codes[codeKey{eventID, code}]
		if !ok {
			return apperrors.ErrCodeNotFound
		}
		found = cloneBooking(r.s.bookings[id])
		return nil
	})
	return found, err
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	out := make([]*model.Booking, 0)
	err := r.s.run(ctx, func(*unitOfWork) error {
		for _, b := range r.s.bookings {
			if b.UserID == userID {
				out = append(out, cloneBooking(b))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	return r.s.run(ctx, func(uow *unitOfWork) error {
		stored, ok := r.s.bookings[booking.ID]
		if !ok || stored.Version != booking.Version {
			return apperrors.ErrConcurrentUpdate
		}
		if booking.PaymentReference != stored.PaymentReference {
			if _, taken := r.s.references[booking.PaymentReference]; taken {
				return repository.ErrDuplicatePaymentReference
			}
		}

		prev := stored
		next := cloneBooking(stored)
		next.Status = booking.Status
		next.PaymentStatus = booking.PaymentStatus
		next.PaymentReference = booking.PaymentReference
		next.GatewayReference = booking.GatewayReference
		next.RefundAmount = booking.RefundAmount
		next.IsFullyCheckedIn = booking.IsFullyCheckedIn
		next.CheckInTime = booking.CheckInTime
		next.CheckedInBy = booking.CheckedInBy
		next.Version++
		next.UpdatedAt = time.Now().UTC()

		r.s.bookings[booking.ID] = next
		if prev.PaymentReference != next.PaymentReference {
			delete(r.s.references, prev.PaymentReference)
			r.s.references[next.PaymentReference] = next.ID
		}
		uow.onRollback(func() {
			r.s.bookings[prev.ID] = prev
			delete(r.s.references, next.PaymentReference)
			r.s.references[prev.PaymentReference] = prev.ID
		})

		booking.Version = next.Version
		booking.UpdatedAt = next.UpdatedAt
		return nil
	})
}

func (r *bookingRepository) InsertCodes(ctx context.Context, booking *model.Booking, codes []model.VerificationCode) error {
	return r.s.run(ctx, func(uow *unitOfWork) error {
		return r.insertCodes(uow, booking, codes)
	})
}

func (r *bookingRepository) insertCodes(uow *unitOfWork, booking *model.Booking, codes []model.VerificationCode) error {
	stored, ok := r.s.bookings[booking.ID]
	if !ok {
		return apperrors.ErrBookingNotFound
	}

	now := time.Now().UTC()
	for i := range codes {
		code := &codes[i]
		key := codeKey{booking.EventID, code.Code}
		if _, taken := r.s.codes[key]; taken {
			return apperrors.ErrCodeCollision
		}
		if code.ID == uuid.Nil {
			code.ID = uuid.New()
		}
		code.BookingID = booking.ID
		code.EventID = booking.EventID
		code.CreatedAt = now

		r.s.codes[key] = booking.ID
		r.s.codeOwners[code.ID] = booking.ID
		codeID := code.ID
		uow.onRollback(func() {
			delete(r.s.codes, key)
			delete(r.s.codeOwners, codeID)
		})
	}

	prevCodes := stored.Codes
	stored.Codes = append(append([]model.VerificationCode(nil), stored.Codes...), codes...)
	uow.onRollback(func() { stored.Codes = prevCodes })

	booking.Codes = append(booking.Codes, codes...)
	return nil
}

func (r *bookingRepository) MarkCodeUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time, usedBy uuid.UUID) error {
	return r.s.run(ctx, func(uow *unitOfWork) error {
		bookingID, ok := r.s.codeOwners[codeID]
		if !ok {
			return apperrors.ErrCodeNotFound
		}
		stored := r.s.bookings[bookingID]
		for i := range stored.Codes {
			if stored.Codes[i].ID != codeID {
				continue
			}
			if stored.Codes[i].IsUsed {
				return apperrors.ErrCodeAlreadyUsed
			}
			prevCodes := stored.Codes
			codes := append([]model.VerificationCode(nil), stored.Codes...)
			at, by := usedAt.UTC(), usedBy
			codes[i].IsUsed = true
			codes[i].UsedAt = &at
			codes[i].UsedBy = &by
			stored.Codes = codes
			uow.onRollback(func() { stored.Codes = prevCodes })
			return nil
		}
		return apperrors.ErrCodeNotFound
	})
}
