package service

import (
	"context"
	"fmt"

	"ticket-booking/internal/metrics"
	"ticket-booking/internal/model"
	"ticket-booking/internal/queue"
	apperrors "ticket-booking/pkg/app_errors"
	"ticket-booking/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmationService adapts payment gateway results onto the booking state
// machine. The synchronous verify endpoint and the webhook worker both end up
// in HandlePaymentResult.
type ConfirmationService interface {
	Confirm(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*model.Booking, error)
	HandlePaymentResult(ctx context.Context, result model.PaymentResult) (*model.Booking, error)
	// SubmitPaymentResult 驗證後送入付款 stream，由 worker 非同步處理
	SubmitPaymentResult(ctx context.Context, result model.PaymentResult) error
}

type ConfirmationServiceImpl struct {
	bookings BookingService
	payments queue.Queue[model.PaymentResult]
}

func NewConfirmationService(bookings BookingService, payments queue.Queue[model.PaymentResult]) ConfirmationService {
	return &ConfirmationServiceImpl{
		bookings: bookings,
		payments: payments,
	}
}

func (s *ConfirmationServiceImpl) Confirm(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*model.Booking, error) {
	return s.bookings.Confirm(ctx, bookingID, paymentReference, "")
}

func (s *ConfirmationServiceImpl) HandlePaymentResult(ctx context.Context, result model.PaymentResult) (*model.Booking, error) {
	if err := validateStruct(result); err != nil {
		return nil, err
	}

	var (
		booking *model.Booking
		err     error
	)
	if result.Success {
		booking, err = s.bookings.Confirm(ctx, result.BookingID, result.Reference, result.GatewayReference)
	} else {
		booking, err = s.bookings.MarkPaymentFailed(ctx, result.BookingID, result.Reference)
	}

	outcome := "failed"
	if result.Success {
		outcome = "success"
	}
	metrics.PaymentResults.WithLabelValues(outcome, metrics.Result(err)).Inc()
	if err != nil {
		logger.WithComponent("service").Warn("payment result rejected",
			zap.String("booking_id", result.BookingID.String()),
			zap.String("reference", result.Reference),
			zap.Bool("success", result.Success),
			zap.Error(err))
		return nil, err
	}
	return booking, nil
}

func (s *ConfirmationServiceImpl) SubmitPaymentResult(ctx context.Context, result model.PaymentResult) error {
	if err := validateStruct(result); err != nil {
		return err
	}
	if s.payments == nil {
		return fmt.Errorf("%w: payment queue not configured", apperrors.ErrInternalServerError)
	}
	if err := s.payments.Publish(ctx, result); err != nil {
		return fmt.Errorf("publish payment result: %w", err)
	}
	return nil
}
