package service

import (
	"context"
	"errors"
	"fmt"

	"ticket-booking/internal/codegen"
	"ticket-booking/internal/metrics"
	"ticket-booking/internal/model"
	"ticket-booking/internal/repository"
	apperrors "ticket-booking/pkg/app_errors"
	"ticket-booking/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RedemptionService interface {
	Redeem(ctx context.Context, eventID uuid.UUID, code string, staffID uuid.UUID) (*model.RedemptionResult, error)
}

type RedemptionServiceImpl struct {
	actors   ActorDirectory
	events   repository.EventRepository
	bookings repository.BookingRepository
	booking  BookingService
}

func NewRedemptionService(
	actors ActorDirectory,
	events repository.EventRepository,
	bookings repository.BookingRepository,
	booking BookingService,
) RedemptionService {
	return &RedemptionServiceImpl{
		actors:   actors,
		events:   events,
		bookings: bookings,
		booking:  booking,
	}
}

func (s *RedemptionServiceImpl) Redeem(ctx context.Context, eventID uuid.UUID, code string, staffID uuid.UUID) (*model.RedemptionResult, error) {
	result, err := s.redeem(ctx, eventID, code, staffID)
	metrics.RedemptionsProcessed.WithLabelValues(redemptionLabel(err)).Inc()

	log := logger.WithComponent("service").With(
		zap.String("event_id", eventID.String()),
		zap.String("staff_id", staffID.String()))
	if err != nil {
		log.Warn("redemption rejected", zap.Error(err))
		return nil, err
	}
	log.Info("code redeemed",
		zap.String("booking_id", result.Booking.ID.String()),
		zap.Int("ticket_number", result.TicketNumber),
		zap.Bool("all_codes_used", result.AllCodesUsed))
	return result, nil
}

func (s *RedemptionServiceImpl) redeem(ctx context.Context, eventID uuid.UUID, code string, staffID uuid.UUID) (*model.RedemptionResult, error) {
	if !codegen.IsWellFormed(code) {
		return nil, fmt.Errorf("%w: code must be %d digits", apperrors.ErrInvalidInput, codegen.CodeLength)
	}

	actor, err := s.actors.FindByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(actor, event) {
		return nil, apperrors.ErrNotEventOrganizer
	}

	booking, err := s.bookings.FindByCode(ctx, eventID, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrBookingNotFound) {
			return nil, apperrors.ErrCodeNotFound
		}
		return nil, err
	}

	return s.booking.RedeemCode(ctx, booking.ID, code, staffID)
}

func redemptionLabel(err error) string {
	var used *apperrors.CodeAlreadyUsedError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &used):
		return "already_used"
	case errors.Is(err, apperrors.ErrIntegrity):
		return "integrity"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrState):
		return "state"
	}
	return "error"
}
