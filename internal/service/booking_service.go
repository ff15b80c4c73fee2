package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/codegen"
	"ticket-booking/internal/metrics"
	"ticket-booking/internal/model"
	"ticket-booking/internal/queue"
	"ticket-booking/internal/repository"
	apperrors "ticket-booking/pkg/app_errors"
	"ticket-booking/pkg/logger"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ActorDirectory resolves an authenticated id to its role variant.
type ActorDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (model.Actor, error)
}

type CodeIssuer interface {
	IssueBatch(bc codegen.BookingContext, attendees []model.Attendee) ([]model.VerificationCode, error)
	Verify(bc codegen.BookingContext, code, storedHash string) bool
}

type InventoryLedger interface {
	Reserve(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error)
	Release(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error)
	Available(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName) (int, error)
}

type BookingService interface {
	// 付費訂位：立即確認並發放驗證碼，以付款參考碼冪等
	CreatePaid(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error)
	// 免費報名：同一活動僅能有一筆進行中的報名
	CreateFree(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error)
	// 建立待付款訂位，不保留庫存
	Initiate(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error)
	Confirm(ctx context.Context, bookingID uuid.UUID, paymentReference, gatewayReference string) (*model.Booking, error)
	MarkPaymentFailed(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*model.Booking, error)
	Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (*model.Booking, error)
	Refund(ctx context.Context, req model.RefundApproved) (*model.Booking, error)
	RedeemCode(ctx context.Context, bookingID uuid.UUID, code string, staffID uuid.UUID) (*model.RedemptionResult, error)
	Get(ctx context.Context, actorID, bookingID uuid.UUID) (*model.Booking, error)
	ListForUser(ctx context.Context, actorID uuid.UUID) ([]*model.Booking, error)
	TicketQR(ctx context.Context, actorID, bookingID uuid.UUID, ticketNumber int) ([]byte, error)
}

type BookingOptions struct {
	Pricing            Pricing
	MaxQuantity        int
	CancellationCutoff time.Duration
	MaxCodeAttempts    int
	Now                func() time.Time
}

func DefaultBookingOptions() BookingOptions {
	return BookingOptions{
		Pricing:            DefaultPricing(),
		MaxQuantity:        10,
		CancellationCutoff: 24 * time.Hour,
		MaxCodeAttempts:    3,
		Now:                time.Now,
	}
}

type BookingDeps struct {
	Tx            repository.TxManager
	Bookings      repository.BookingRepository
	Events        repository.EventRepository
	TicketTypes   repository.TicketTypeRepository
	Actors        ActorDirectory
	Ledger        InventoryLedger
	Issuer        CodeIssuer
	Notifications queue.Queue[model.Notification]
	Inventory     cache.InventoryCache
}

type BookingServiceImpl struct {
	tx          repository.TxManager
	bookings    repository.BookingRepository
	events      repository.EventRepository
	ticketTypes repository.TicketTypeRepository
	actors      ActorDirectory
	ledger      InventoryLedger
	issuer      CodeIssuer
	effects     *sideEffects
	opts        BookingOptions
}

func NewBookingService(deps BookingDeps, opts BookingOptions) BookingService {
	defaults := DefaultBookingOptions()
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = defaults.MaxQuantity
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = defaults.MaxCodeAttempts
	}
	if opts.CancellationCutoff <= 0 {
		opts.CancellationCutoff = defaults.CancellationCutoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Pricing.ServiceFeePercent.IsZero() && opts.Pricing.TaxPercent.IsZero() {
		opts.Pricing = defaults.Pricing
	}

	return &BookingServiceImpl{
		tx:          deps.Tx,
		bookings:    deps.Bookings,
		events:      deps.Events,
		ticketTypes: deps.TicketTypes,
		actors:      deps.Actors,
		ledger:      deps.Ledger,
		issuer:      deps.Issuer,
		effects:     &sideEffects{notifications: deps.Notifications, inventory: deps.Inventory},
		opts:        opts,
	}
}

// bookingDraft is everything the creation paths share after their guards pass.
type bookingDraft struct {
	buyer      model.Buyer
	event      *model.Event
	ticketType *model.TicketType
	quote      Quote
	roster     []model.Attendee
}

func (s *BookingServiceImpl) prepare(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*bookingDraft, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Quantity < 1 || req.Quantity > s.opts.MaxQuantity {
		return nil, apperrors.ErrInvalidQuantity
	}
	if len(req.Attendees) > s.opts.MaxQuantity {
		return nil, fmt.Errorf("%w: too many attendees", apperrors.ErrInvalidInput)
	}

	actor, err := s.actors.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	buyer, ok := actor.(model.Buyer)
	if !ok {
		return nil, apperrors.ErrNotBuyer
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Approved {
		return nil, apperrors.ErrEventNotApproved
	}
	if event.HasStarted(s.opts.Now()) {
		return nil, apperrors.ErrEventAlreadyPassed
	}

	ticketType, err := s.ticketTypes.FindByEventAndName(ctx, req.EventID, req.TicketType)
	if err != nil {
		return nil, err
	}

	return &bookingDraft{
		buyer:      buyer,
		event:      event,
		ticketType: ticketType,
		quote:      s.opts.Pricing.Quote(ticketType.UnitPrice, req.Quantity),
		roster:     normalizeRoster(req.Attendees, buyer.ActorAttributes, req.Quantity),
	}, nil
}

func (d *bookingDraft) newBooking(req model.CreateBookingRequest, status model.BookingStatus, payment model.PaymentStatus, reference string) *model.Booking {
	return &model.Booking{
		ID:               uuid.New(),
		UserID:           d.buyer.ID,
		EventID:          d.event.ID,
		TicketType:       d.ticketType.Name,
		Quantity:         req.Quantity,
		UnitPrice:        d.quote.UnitPrice,
		BaseAmount:       d.quote.BaseAmount,
		PlatformFee:      d.quote.PlatformFee,
		Tax:              d.quote.Tax,
		FinalAmount:      d.quote.FinalAmount,
		RefundAmount:     decimal.Zero,
		Status:           status,
		PaymentStatus:    payment,
		PaymentReference: reference,
		Attendees:        d.roster,
	}
}

func (s *BookingServiceImpl) CreatePaid(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error) {
	if req.PaymentReference == "" {
		return nil, fmt.Errorf("%w: payment reference is required", apperrors.ErrInvalidInput)
	}
	if existing, ok, err := s.existingPaid(ctx, actorID, req); ok || err != nil {
		return existing, err
	}

	draft, err := s.prepare(ctx, actorID, req)
	if err != nil {
		return nil, err
	}
	if draft.ticketType.IsFree() {
		return nil, apperrors.ErrTicketTypeIsFree
	}

	booking, ticketType, err := s.createConfirmed(ctx, draft, req, model.PaymentStatusPaid, req.PaymentReference, nil)
	if errors.Is(err, repository.ErrDuplicatePaymentReference) {
		// 併發的相同請求已先寫入
		existing, _, findErr := s.existingPaid(ctx, actorID, req)
		return existing, findErr
	}
	if err != nil {
		return nil, err
	}

	s.afterConfirmed(ctx, "create_paid", booking, ticketType)
	return booking, nil
}

func (s *BookingServiceImpl) CreateFree(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error) {
	draft, err := s.prepare(ctx, actorID, req)
	if err != nil {
		return nil, err
	}
	if !draft.ticketType.IsFree() {
		return nil, apperrors.ErrTicketTypeNotFree
	}

	guard := func(ctx context.Context) error {
		_, err := s.bookings.FindActiveByUserAndEvent(ctx, draft.buyer.ID, draft.event.ID)
		switch {
		case err == nil:
			return apperrors.ErrDuplicateRegistration
		case errors.Is(err, apperrors.ErrBookingNotFound):
			return nil
		default:
			return err
		}
	}

	reference := "free_" + shortuuid.New()
	booking, ticketType, err := s.createConfirmed(ctx, draft, req, model.PaymentStatusFree, reference, guard)
	if err != nil {
		return nil, err
	}

	s.afterConfirmed(ctx, "create_free", booking, ticketType)
	return booking, nil
}

// createConfirmed reserves inventory, persists a confirmed booking and issues
// its codes in one unit of work, retrying the whole unit on a code collision.
func (s *BookingServiceImpl) createConfirmed(
	ctx context.Context,
	draft *bookingDraft,
	req model.CreateBookingRequest,
	payment model.PaymentStatus,
	reference string,
	guard func(ctx context.Context) error,
) (*model.Booking, *model.TicketType, error) {
	var (
		booking    *model.Booking
		ticketType *model.TicketType
	)

	err := s.withCodeRetry(ctx, func(ctx context.Context) error {
		if guard != nil {
			if err := guard(ctx); err != nil {
				return err
			}
		}

		var err error
		ticketType, err = s.ledger.Reserve(ctx, draft.event.ID, draft.ticketType.Name, req.Quantity)
		if err != nil {
			return err
		}

		booking = draft.newBooking(req, model.BookingStatusConfirmed, payment, reference)
		if _, err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}
		return s.issueCodes(ctx, booking)
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, ticketType, nil
}

func (s *BookingServiceImpl) Initiate(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, error) {
	if req.PaymentReference != "" {
		if existing, ok, err := s.existingForReference(ctx, actorID, req); ok || err != nil {
			return existing, err
		}
	}

	draft, err := s.prepare(ctx, actorID, req)
	if err != nil {
		return nil, err
	}
	if draft.ticketType.IsFree() {
		return nil, apperrors.ErrTicketTypeIsFree
	}

	// 非保留性檢查：庫存在確認付款時才扣
	available, err := s.ledger.Available(ctx, draft.event.ID, draft.ticketType.Name)
	if err != nil {
		return nil, err
	}
	if available < req.Quantity {
		return nil, apperrors.ErrInsufficientInventory
	}

	reference := req.PaymentReference
	if reference == "" {
		reference = "pay_" + shortuuid.New()
	}
	booking := draft.newBooking(req, model.BookingStatusPending, model.PaymentStatusPending, reference)

	if _, err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrDuplicatePaymentReference) {
			existing, _, findErr := s.existingForReference(ctx, actorID, req)
			return existing, findErr
		}
		return nil, err
	}

	metrics.BookingsTransitions.WithLabelValues("initiate", string(booking.Status)).Inc()
	return booking, nil
}

// existingForReference returns the booking already recorded under the
// request's payment reference when it belongs to the same buyer and event.
func (s *BookingServiceImpl) existingForReference(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, bool, error) {
	existing, err := s.bookings.FindByPaymentReference(ctx, req.PaymentReference)
	if errors.Is(err, apperrors.ErrBookingNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if existing.UserID != actorID || existing.EventID != req.EventID ||
		existing.TicketType != req.TicketType || existing.Quantity != req.Quantity {
		return nil, false, apperrors.ErrPaymentReference
	}
	return existing, true, nil
}

// existingPaid is existingForReference for the immediate paid path: a pending
// booking under the reference belongs to the gateway flow and must go
// through Confirm.
func (s *BookingServiceImpl) existingPaid(ctx context.Context, actorID uuid.UUID, req model.CreateBookingRequest) (*model.Booking, bool, error) {
	existing, ok, err := s.existingForReference(ctx, actorID, req)
	if !ok || err != nil {
		return nil, ok, err
	}
	if existing.Status == model.BookingStatusPending {
		return nil, false, fmt.Errorf("%w: booking %s is awaiting payment confirmation", apperrors.ErrPaymentReference, existing.ID)
	}
	return existing, true, nil
}

func (s *BookingServiceImpl) Confirm(ctx context.Context, bookingID uuid.UUID, paymentReference, gatewayReference string) (*model.Booking, error) {
	var (
		booking    *model.Booking
		ticketType *model.TicketType
		noop       bool
	)

	err := s.withCodeRetry(ctx, func(ctx context.Context) error {
		noop = false
		ticketType = nil

		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		if paymentReference != "" && booking.PaymentReference != paymentReference {
			return apperrors.ErrPaymentReference
		}
		if booking.Status == model.BookingStatusConfirmed {
			noop = true
			return nil
		}
		if !booking.Status.CanTransitionTo(model.BookingStatusConfirmed) {
			return apperrors.ErrBookingNotPending
		}

		ticketType, err = s.ledger.Reserve(ctx, booking.EventID, booking.TicketType, booking.Quantity)
		if err != nil {
			return err
		}

		if len(booking.Codes) == 0 {
			if err := s.issueCodes(ctx, booking); err != nil {
				return err
			}
		}

		booking.Status = model.BookingStatusConfirmed
		booking.PaymentStatus = model.PaymentStatusPaid
		if gatewayReference != "" {
			booking.GatewayReference = &gatewayReference
		}
		return s.bookings.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	if !noop {
		s.afterConfirmed(ctx, "confirm", booking, ticketType)
	}
	return booking, nil
}

func (s *BookingServiceImpl) MarkPaymentFailed(ctx context.Context, bookingID uuid.UUID, paymentReference string) (*model.Booking, error) {
	var booking *model.Booking

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != model.BookingStatusPending {
			return apperrors.ErrBookingNotPending
		}
		if paymentReference != "" && booking.PaymentReference != paymentReference {
			return apperrors.ErrPaymentReference
		}

		booking.PaymentStatus = model.PaymentStatusFailed
		return s.bookings.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsTransitions.WithLabelValues("payment_failed", string(booking.Status)).Inc()
	s.effects.notifyBooking(ctx, model.NotificationPaymentFailed, booking, "")
	return booking, nil
}

func (s *BookingServiceImpl) Cancel(ctx context.Context, actorID, bookingID uuid.UUID) (*model.Booking, error) {
	var (
		booking    *model.Booking
		ticketType *model.TicketType
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != actorID {
			return apperrors.ErrNotBookingOwner
		}
		if !booking.Status.CanTransitionTo(model.BookingStatusCancelled) {
			return apperrors.ErrBookingNotConfirmed
		}
		if booking.AnyCodeUsed() {
			return apperrors.ErrAlreadyCheckedIn
		}

		event, err := s.events.FindByID(ctx, booking.EventID)
		if err != nil {
			return err
		}
		if !s.opts.Now().Before(event.StartDate.Add(-s.opts.CancellationCutoff)) {
			return apperrors.ErrCancellationWindow
		}

		ticketType, err = s.ledger.Release(ctx, booking.EventID, booking.TicketType, booking.Quantity)
		if err != nil {
			return err
		}

		booking.Status = model.BookingStatusCancelled
		return s.bookings.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsTransitions.WithLabelValues("cancel", string(booking.Status)).Inc()
	s.effects.notifyBooking(ctx, model.NotificationBookingCancelled, booking, "")
	s.effects.inventoryChanged(ctx, ticketType)
	return booking, nil
}

func (s *BookingServiceImpl) Refund(ctx context.Context, req model.RefundApproved) (*model.Booking, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}

	var (
		booking    *model.Booking
		ticketType *model.TicketType
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookings.FindByIDForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransitionTo(model.BookingStatusRefunded) {
			return apperrors.ErrBookingNotConfirmed
		}
		if booking.AnyCodeUsed() {
			return apperrors.ErrAlreadyCheckedIn
		}
		if req.Amount.GreaterThan(booking.FinalAmount) {
			return apperrors.ErrInvalidAmount
		}

		ticketType, err = s.ledger.Release(ctx, booking.EventID, booking.TicketType, booking.Quantity)
		if err != nil {
			return err
		}

		booking.Status = model.BookingStatusRefunded
		booking.PaymentStatus = model.PaymentStatusRefunded
		booking.RefundAmount = req.Amount
		return s.bookings.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsTransitions.WithLabelValues("refund", string(booking.Status)).Inc()
	s.effects.notifyBooking(ctx, model.NotificationBookingRefunded, booking, "")
	s.effects.inventoryChanged(ctx, ticketType)
	return booking, nil
}

func (s *BookingServiceImpl) RedeemCode(ctx context.Context, bookingID uuid.UUID, code string, staffID uuid.UUID) (*model.RedemptionResult, error) {
	var result *model.RedemptionResult

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		vc, ok := booking.FindCode(code)
		if !ok {
			return apperrors.ErrCodeNotFound
		}
		if vc.IsUsed {
			used := &apperrors.CodeAlreadyUsedError{Code: vc.Code}
			if vc.UsedAt != nil {
				used.UsedAt = *vc.UsedAt
			}
			if vc.UsedBy != nil {
				used.UsedBy = *vc.UsedBy
			}
			return used
		}
		if booking.Status == model.BookingStatusUsed {
			return apperrors.ErrAlreadyCheckedIn
		}
		if !booking.Status.CanTransitionTo(model.BookingStatusUsed) {
			return apperrors.ErrBookingNotConfirmed
		}
		if !s.issuer.Verify(codegen.ContextOf(booking), vc.Code, vc.IntegrityHash) {
			return apperrors.ErrHashMismatch
		}

		now := s.opts.Now().UTC()
		if err := s.bookings.MarkCodeUsed(ctx, vc.ID, now, staffID); err != nil {
			return err
		}
		vc.IsUsed = true
		vc.UsedAt = &now
		vc.UsedBy = &staffID

		allUsed := booking.AllCodesUsed()
		if allUsed {
			booking.Status = model.BookingStatusUsed
			booking.IsFullyCheckedIn = true
			booking.CheckInTime = &now
			booking.CheckedInBy = &staffID
		}
		if err := s.bookings.Update(ctx, booking); err != nil {
			return err
		}

		result = &model.RedemptionResult{
			Booking:      booking,
			Attendee:     vc.Attendee,
			TicketNumber: vc.TicketNumber,
			AllCodesUsed: allUsed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsTransitions.WithLabelValues("redeem", string(result.Booking.Status)).Inc()
	s.effects.notifyBooking(ctx, model.NotificationCodeRedeemed, result.Booking, code)
	return result, nil
}

func (s *BookingServiceImpl) Get(ctx context.Context, actorID, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID == actorID {
		return booking, nil
	}

	actor, err := s.actors.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}
	if !canManageEvent(actor, event) {
		return nil, apperrors.ErrNotBookingOwner
	}
	return booking, nil
}

func (s *BookingServiceImpl) ListForUser(ctx context.Context, actorID uuid.UUID) ([]*model.Booking, error) {
	return s.bookings.ListByUser(ctx, actorID)
}

func (s *BookingServiceImpl) TicketQR(ctx context.Context, actorID, bookingID uuid.UUID, ticketNumber int) ([]byte, error) {
	booking, err := s.Get(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusConfirmed && booking.Status != model.BookingStatusUsed {
		return nil, apperrors.ErrBookingNotConfirmed
	}
	vc, ok := booking.FindTicket(ticketNumber)
	if !ok {
		return nil, apperrors.ErrTicketNumberNotSet
	}
	return codegen.QRPNG(booking.EventID, vc.Code, codegen.DefaultQRSize)
}

func (s *BookingServiceImpl) issueCodes(ctx context.Context, booking *model.Booking) error {
	codes, err := s.issuer.IssueBatch(codegen.ContextOf(booking), booking.Attendees)
	if err != nil {
		return err
	}
	return s.bookings.InsertCodes(ctx, booking, codes)
}

// withCodeRetry runs fn in a fresh unit of work, again when a freshly drawn
// code collides with one already stored for the event.
func (s *BookingServiceImpl) withCodeRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.opts.MaxCodeAttempts; attempt++ {
		err = s.tx.WithTx(ctx, fn)
		if !errors.Is(err, apperrors.ErrCodeCollision) {
			return err
		}
		logger.WithComponent("service").Warn("verification code collision, retrying",
			zap.Int("attempt", attempt))
	}
	return err
}

func (s *BookingServiceImpl) afterConfirmed(ctx context.Context, operation string, booking *model.Booking, ticketType *model.TicketType) {
	metrics.BookingsTransitions.WithLabelValues(operation, string(booking.Status)).Inc()
	logger.WithComponent("service").Info("booking confirmed",
		zap.String("operation", operation),
		zap.String("booking_id", booking.ID.String()),
		zap.String("event_id", booking.EventID.String()),
		zap.Int("quantity", booking.Quantity))

	s.effects.notifyBooking(ctx, model.NotificationBookingConfirmed, booking, "")
	s.effects.inventoryChanged(ctx, ticketType)
}

// canManageEvent reports whether actor is the event's organizer or staff assigned to it.
func canManageEvent(actor model.Actor, event *model.Event) bool {
	switch a := actor.(type) {
	case model.Organizer:
		return a.ID == event.OrganizerID
	case model.Staff:
		return a.IsAssignedTo(event.ID)
	default:
		return false
	}
}
