package handler_test

import (
	"context"

	"ticket-booking/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type BookingServiceMock struct {
	mock.Mock
}

func bookingResult(args mock.Arguments) (*model.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) CreatePaid(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, actorID, req))
}

func (m *BookingServiceMock) CreateFree(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, actorID, req))
}

func (m *BookingServiceMock) Initiate(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, actorID, req))
}

func (m *BookingServiceMock) Confirm(ctx context.Context, bookingID uuid.UUID, reference, gatewayReference string) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, bookingID, reference, gatewayReference))
}

func (m *BookingServiceMock) MarkPaymentFailed(ctx context.Context, bookingID uuid.UUID, reference string) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, bookingID, reference))
}

func (m *BookingServiceMock) Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, actorID, bookingID))
}

func (m *BookingServiceMock) Refund(ctx context.Context, req model.RefundApproved) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, req))
}

func (m *BookingServiceMock) RedeemCode(ctx context.Context, bookingID uuid.UUID, code string, staffID uuid.UUID) (*model.RedemptionResult, error) {
	args := m.Called(ctx, bookingID, code, staffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedemptionResult), args.Error(1)
}

func (m *BookingServiceMock) Get(ctx context.Context, actorID, bookingID uuid.UUID) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, actorID, bookingID))
}

func (m *BookingServiceMock) ListForUser(ctx context.Context, actorID uuid.UUID) ([]*model.Booking, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) TicketQR(ctx context.Context, actorID, bookingID uuid.UUID, ticketNumber int) ([]byte, error) {
	args := m.Called(ctx, actorID, bookingID, ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type ConfirmationServiceMock struct {
	mock.Mock
}

func (m *ConfirmationServiceMock) Confirm(ctx context.Context, bookingID uuid.UUID, reference string) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, bookingID, reference))
}

func (m *ConfirmationServiceMock) HandlePaymentResult(ctx context.Context, result model.PaymentResult) (*model.Booking, error) {
	return bookingResult(m.Called(ctx, result))
}

func (m *ConfirmationServiceMock) SubmitPaymentResult(ctx context.Context, result model.PaymentResult) error {
	return m.Called(ctx, result).Error(0)
}

type EventServiceMock struct {
	mock.Mock
}

func eventResult(args mock.Arguments) (*model.Event, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *EventServiceMock) List(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *EventServiceMock) Get(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	return eventResult(m.Called(ctx, eventID))
}

func (m *EventServiceMock) Create(ctx context.Context, actorID uuid.UUID, req model.CreateEventRequest) (*model.Event, error) {
	return eventResult(m.Called(ctx, actorID, req))
}

func (m *EventServiceMock) Approve(ctx context.Context, actorID, eventID uuid.UUID) (*model.Event, error) {
	return eventResult(m.Called(ctx, actorID, eventID))
}

func (m *EventServiceMock) AssignStaff(ctx context.Context, actorID, eventID, staffID uuid.UUID) error {
	return m.Called(ctx, actorID, eventID, staffID).Error(0)
}

func (m *EventServiceMock) Availability(ctx context.Context, eventID uuid.UUID) ([]model.InventorySnapshot, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InventorySnapshot), args.Error(1)
}

func (m *EventServiceMock) WarmUp(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type RedemptionServiceMock struct {
	mock.Mock
}

func (m *RedemptionServiceMock) Redeem(ctx context.Context, eventID uuid.UUID, code string, staffID uuid.UUID) (*model.RedemptionResult, error) {
	args := m.Called(ctx, eventID, code, staffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedemptionResult), args.Error(1)
}
