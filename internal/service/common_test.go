package service_test

import (
	"context"
	"testing"
	"time"

	"ticket-booking/internal/codegen"
	"ticket-booking/internal/inventory"
	"ticket-booking/internal/model"
	"ticket-booking/internal/queue"
	"ticket-booking/internal/repository/memory"
	"ticket-booking/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-booking-code-secret"

type fixture struct {
	store         *memory.Store
	issuer        *codegen.Issuer
	now           time.Time
	notifications queue.Queue[model.Notification]
	payments      queue.Queue[model.PaymentResult]

	bookings     service.BookingService
	events       service.EventService
	confirmation service.ConfirmationService
	redemption   service.RedemptionService

	organizer model.Organizer
	staff     model.Staff
	buyer     model.Buyer
	eventID   uuid.UUID
}

// newFixture 建立記憶體版的完整服務組合，並預先建立一個已核准的活動：
// regular 100.00 x50, vip 250.00 x10, student 免費 x20
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	issuer, err := codegen.NewIssuer(testSecret)
	require.NoError(t, err)

	f := &fixture{
		store:         memory.NewStore(),
		issuer:        issuer,
		now:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		notifications: queue.NewMemoryQueue[model.Notification](1024),
		payments:      queue.NewMemoryQueue[model.PaymentResult](16),
	}
	f.bookings = f.newBookingService(issuer)
	f.events = service.NewEventService(f.store, f.store.Events(), f.store.TicketTypes(), f.store.Actors(), nil)
	f.confirmation = service.NewConfirmationService(f.bookings, f.payments)
	f.redemption = service.NewRedemptionService(f.store.Actors(), f.store.Events(), f.store.Bookings(), f.bookings)

	f.organizer = model.Organizer{ActorAttributes: f.newActor(t, model.RoleOrganizer, "Olivia Organizer")}
	f.staff = model.Staff{ActorAttributes: f.newActor(t, model.RoleStaff, "Sam Staff")}
	f.buyer = f.newBuyer(t, "Bo Buyer")

	f.eventID = f.createEvent(t, f.now.Add(72*time.Hour), []model.TicketTypeRequest{
		{Name: model.TicketTypeRegular, UnitPrice: decimal.RequireFromString("100.00"), Capacity: 50},
		{Name: model.TicketTypeVIP, UnitPrice: decimal.RequireFromString("250.00"), Capacity: 10},
		{Name: model.TicketTypeStudent, UnitPrice: decimal.Zero, Capacity: 20},
	})
	require.NoError(t, f.events.AssignStaff(ctx, f.organizer.ID, f.eventID, f.staff.ID))
	f.staff.AssignedEvents = []uuid.UUID{f.eventID}

	return f
}

func (f *fixture) newBookingService(issuer service.CodeIssuer) service.BookingService {
	opts := service.DefaultBookingOptions()
	opts.Now = func() time.Time { return f.now }

	return service.NewBookingService(service.BookingDeps{
		Tx:            f.store,
		Bookings:      f.store.Bookings(),
		Events:        f.store.Events(),
		TicketTypes:   f.store.TicketTypes(),
		Actors:        f.store.Actors(),
		Ledger:        inventory.NewLedger(f.store.TicketTypes()),
		Issuer:        issuer,
		Notifications: f.notifications,
	}, opts)
}

func (f *fixture) newActor(t *testing.T, role model.Role, name string) model.ActorAttributes {
	t.Helper()
	attrs := model.ActorAttributes{
		ID:    uuid.New(),
		Name:  name,
		Email: uuid.NewString()[:8] + "@example.com",
		Phone: "+886900000000",
	}
	actor, ok := model.NewActor(role, attrs, nil)
	require.True(t, ok)
	require.NoError(t, f.store.Actors().Create(context.Background(), actor))
	return attrs
}

func (f *fixture) newBuyer(t *testing.T, name string) model.Buyer {
	t.Helper()
	return model.Buyer{ActorAttributes: f.newActor(t, model.RoleUser, name)}
}

// createEvent 由 fixture 的主辦方建立活動並由 staff 核准
func (f *fixture) createEvent(t *testing.T, start time.Time, types []model.TicketTypeRequest) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	event, err := f.events.Create(ctx, f.organizer.ID, model.CreateEventRequest{
		Name:        "Go Conference",
		Venue:       "Taipei International Convention Center",
		StartDate:   start,
		TicketTypes: types,
	})
	require.NoError(t, err)

	_, err = f.events.Approve(ctx, f.staff.ID, event.ID)
	require.NoError(t, err)
	return event.ID
}

func (f *fixture) paidRequest(ticketType model.TicketTypeName, quantity int) model.CreateBookingRequest {
	return model.CreateBookingRequest{
		EventID:          f.eventID,
		TicketType:       ticketType,
		Quantity:         quantity,
		PaymentReference: "ref_" + uuid.NewString(),
	}
}

func (f *fixture) sold(t *testing.T, eventID uuid.UUID, name model.TicketTypeName) int {
	t.Helper()
	tt, err := f.store.TicketTypes().FindByEventAndName(context.Background(), eventID, name)
	require.NoError(t, err)
	return tt.Sold
}

// drainNotifications 讀出目前已發布的通知種類
func (f *fixture) drainNotifications(t *testing.T) []model.NotificationKind {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	deliveries, err := f.notifications.Subscribe(ctx)
	require.NoError(t, err)

	var kinds []model.NotificationKind
	for d := range deliveries {
		kinds = append(kinds, d.Data.Kind)
		d.Ack()
	}
	return kinds
}
