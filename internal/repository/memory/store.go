// Package memory is an in-process storage driver with the same semantics as
// the Postgres repositories. A unit of work holds the store lock for its whole
// duration and is rolled back through an undo log when it fails.
package memory

import (
	"context"
	"sync"

	"ticket-booking/internal/model"
	"ticket-booking/internal/repository"

	"github.com/google/uuid"
)

type ticketTypeKey struct {
	eventID uuid.UUID
	name    model.TicketTypeName
}

type codeKey struct {
	eventID uuid.UUID
	code    string
}

type Store struct {
	mu sync.Mutex

	actors      map[uuid.UUID]model.Actor
	assignments map[uuid.UUID][]uuid.UUID
	events      map[uuid.UUID]*model.Event
	ticketTypes map[ticketTypeKey]*model.TicketType
	bookings    map[uuid.UUID]*model.Booking
	references  map[string]uuid.UUID
	codes       map[codeKey]uuid.UUID
	codeOwners  map[uuid.UUID]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		actors:      make(map[uuid.UUID]model.Actor),
		assignments: make(map[uuid.UUID][]uuid.UUID),
		events:      make(map[uuid.UUID]*model.Event),
		ticketTypes: make(map[ticketTypeKey]*model.TicketType),
		bookings:    make(map[uuid.UUID]*model.Booking),
		references:  make(map[string]uuid.UUID),
		codes:       make(map[codeKey]uuid.UUID),
		codeOwners:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *Store) Events() repository.EventRepository           { return &eventRepository{s: s} }
func (s *Store) TicketTypes() repository.TicketTypeRepository { return &ticketTypeRepository{s: s} }
func (s *Store) Bookings() repository.BookingRepository       { return &bookingRepository{s: s} }
func (s *Store) Actors() repository.ActorRepository           { return &actorRepository{s: s} }

type txKey struct{}

type unitOfWork struct {
	undo []func()
}

func (u *unitOfWork) onRollback(fn func()) {
	u.undo = append(u.undo, fn)
}

func (u *unitOfWork) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*unitOfWork); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uow := &unitOfWork{}
	committed := false
	defer func() {
		if !committed {
			uow.rollback()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, uow)); err != nil {
		return err
	}
	committed = true
	return nil
}

// run executes op inside the caller's unit of work, or in its own one.
func (s *Store) run(ctx context.Context, op func(uow *unitOfWork) error) error {
	if uow, ok := ctx.Value(txKey{}).(*unitOfWork); ok {
		return op(uow)
	}
	return s.WithTx(ctx, func(ctx context.Context) error {
		return op(ctx.Value(txKey{}).(*unitOfWork))
	})
}

func cloneBooking(b *model.Booking) *model.Booking {
	out := *b
	out.Attendees = append([]model.Attendee(nil), b.Attendees...)
	out.Codes = append([]model.VerificationCode(nil), b.Codes...)
	return &out
}

func cloneEvent(e *model.Event) *model.Event {
	out := *e
	out.TicketTypes = nil
	return &out
}
