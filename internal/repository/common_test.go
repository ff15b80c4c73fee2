package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ticket-booking/internal/model"
	"ticket-booking/internal/repository"
	"ticket-booking/internal/testutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testDB *pgxpool.Pool
	dbErr  error
)

func TestMain(m *testing.M) {
	pool, cleanup, err := testutil.SetupDatabase()
	if err != nil {
		log.Printf("postgres integration tests will be skipped: %v", err)
		dbErr = err
	} else {
		testDB = pool
	}
	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}

// setupTestWithTruncate 清空所有資料表，保留 schema
func setupTestWithTruncate(t *testing.T) {
	t.Helper()
	testutil.Require(t, testDB, dbErr)

	_, err := testDB.Exec(context.Background(),
		"TRUNCATE verification_codes, bookings, ticket_types, staff_assignments, events, actors CASCADE")
	require.NoError(t, err)
}

func createTestActor(t *testing.T, role model.Role) uuid.UUID {
	t.Helper()
	id := uuid.New()
	actor, ok := model.NewActor(role, model.ActorAttributes{
		ID:    id,
		Name:  string(role) + " " + id.String()[:4],
		Email: id.String() + "@example.com",
	}, nil)
	require.True(t, ok)
	require.NoError(t, repository.NewActorRepository(testDB).Create(context.Background(), actor))
	return id
}

// createTestEvent 建立活動與一個 regular 票種
func createTestEvent(t *testing.T, capacity int) (eventID, organizerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	organizerID = createTestActor(t, model.RoleOrganizer)

	event, err := repository.NewEventRepository(testDB).Create(ctx, &model.Event{
		OrganizerID: organizerID,
		Name:        "Go Meetup",
		Venue:       "Room 1",
		StartDate:   time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)

	_, err = repository.NewTicketTypeRepository(testDB).Create(ctx, &model.TicketType{
		EventID:   event.ID,
		Name:      model.TicketTypeRegular,
		UnitPrice: decimal.RequireFromString("100.00"),
		Capacity:  capacity,
	})
	require.NoError(t, err)
	return event.ID, organizerID
}

func newTestBooking(userID, eventID uuid.UUID, reference string, payment model.PaymentStatus) *model.Booking {
	return &model.Booking{
		UserID:           userID,
		EventID:          eventID,
		TicketType:       model.TicketTypeRegular,
		Quantity:         1,
		UnitPrice:        decimal.RequireFromString("100.00"),
		BaseAmount:       decimal.RequireFromString("100.00"),
		PlatformFee:      decimal.RequireFromString("5.00"),
		Tax:              decimal.RequireFromString("0.38"),
		FinalAmount:      decimal.RequireFromString("105.38"),
		RefundAmount:     decimal.Zero,
		Status:           model.BookingStatusConfirmed,
		PaymentStatus:    payment,
		PaymentReference: reference,
		Attendees:        []model.Attendee{{Name: "Bo", Email: "bo@example.com"}},
	}
}
