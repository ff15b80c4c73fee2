package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ticket-booking/internal/model"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
)

type eventRepository struct {
	s *Store
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	err := r.s.run(ctx, func(uow *unitOfWork) error {
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		now := time.Now().UTC()
		event.CreatedAt, event.UpdatedAt = now, now
		r.s.events[event.ID] = cloneEvent(event)
		id := event.ID
		uow.onRollback(func() { delete(r.s.events, id) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*model.Event, error) {
	var events []*model.Event
	err := r.s.run(ctx, func(*unitOfWork) error {
		events = make([]*model.Event, 0, len(r.s.events))
		for _, e := range r.s.events {
			events = append(events, cloneEvent(e))
		}
		return nil
	})
	sort.Slice(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
	return events, err
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event *model.Event
	err := r.s.run(ctx, func(*unitOfWork) error {
		e, ok := r.s.events[id]
		if !ok {
			return apperrors.ErrEventNotFound
		}
		event = cloneEvent(e)
		return nil
	})
	return event, err
}

func (r *eventRepository) Approve(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event *model.Event
	err := r.s.run(ctx, func(uow *unitOfWork) error {
		e, ok := r.s.events[id]
		if !ok {
			return apperrors.ErrEventNotFound
		}
		prev := *e
		e.Approved = true
		e.UpdatedAt = time.Now().UTC()
		uow.onRollback(func() { *e = prev })
		event = cloneEvent(e)
		return nil
	})
	return event, err
}

type ticketTypeRepository struct {
	s *Store
}

func (r *ticketTypeRepository) Create(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error) {
	var created *model.TicketType
	err := r.s.run(ctx, func(uow *unitOfWork) error {
		key := ticketTypeKey{ticketType.EventID, ticketType.Name}
		if _, exists := r.s.ticketTypes[key]; exists {
			return fmt.Errorf("duplicate ticket type %s: %w", ticketType.Name, apperrors.ErrInvalidInput)
		}
		t := *ticketType
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		now := time.Now().UTC()
		t.Sold, t.Version = 0, 1
		t.CreatedAt, t.UpdatedAt = now, now
		r.s.ticketTypes[key] = &t
		uow.onRollback(func() { delete(r.s.ticketTypes, key) })
		out := t
		created = &out
		return nil
	})
	return created, err
}

func (r *ticketTypeRepository) FindByEventAndName(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName) (*model.TicketType, error) {
	var found *model.TicketType
	err := r.s.run(ctx, func(*unitOfWork) error {
		t, ok := r.s.ticketTypes[ticketTypeKey{eventID, name}]
		if !ok {
			return apperrors.ErrUnknownTicketType
		}
		out := *t
		found = &out
		return nil
	})
	return found, err
}

func (r *ticketTypeRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.TicketType, error) {
	return r.list(ctx, func(t *model.TicketType) bool { return t.EventID == eventID })
}

func (r *ticketTypeRepository) ListAll(ctx context.Context) ([]model.TicketType, error) {
	return r.list(ctx, func(*model.TicketType) bool { return true })
}

func (r *ticketTypeRepository) list(ctx context.Context, keep func(*model.TicketType) bool) ([]model.TicketType, error) {
	out := make([]model.TicketType, 0)
	err := r.s.run(ctx, func(*unitOfWork) error {
		for _, t := range r.s.ticketTypes {
			if keep(t) {
				out = append(out, *t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].UnitPrice.Cmp(out[j].UnitPrice); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r *ticketTypeRepository) Reserve(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error) {
	return r.adjust(ctx, eventID, name, func(t *model.TicketType) error {
		if t.Sold+quantity > t.Capacity {
			return apperrors.ErrInsufficientInventory
		}
		t.Sold += quantity
		return nil
	})
}

func (r *ticketTypeRepository) Release(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error) {
	return r.adjust(ctx, eventID, name, func(t *model.TicketType) error {
		t.Sold -= quantity
		if t.Sold < 0 {
			t.Sold = 0
		}
		return nil
	})
}

func (r *ticketTypeRepository) adjust(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, apply func(t *model.TicketType) error) (*model.TicketType, error) {
	var updated *model.TicketType
	err := r.s.run(ctx, func(uow *unitOfWork) error {
		t, ok := r.s.ticketTypes[ticketTypeKey{eventID, name}]
		if !ok {
			return apperrors.ErrUnknownTicketType
		}
		prev := *t
		if err := apply(t); err != nil {
			return err
		}
		t.Version++
		t.UpdatedAt = time.Now().UTC()
		uow.onRollback(func() { *t = prev })
		out := *t
		updated = &out
		return nil
	})
	return updated, err
}
