package memory

import (
	"context"

	"ticket-booking/internal/model"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type actorRepository struct {
	s *Store
}

func (r *actorRepository) Create(ctx context.Context, actor model.Actor) error {
	return r.s.run(ctx, func(uow *unitOfWork) error {
		id := actor.Attributes().ID
		prev, existed := r.s.actors[id]
		r.s.actors[id] = actor
		uow.onRollback(func() {
			if existed {
				r.s.actors[id] = prev
			} else {
				delete(r.s.actors, id)
			}
		})
		if staff, ok := actor.(model.Staff); ok {
			for _, eventID := range staff.AssignedEvents {
				r.assign(uow, id, eventID)
			}
		}
		return nil
	})
}

func (r *actorRepository) FindByID(ctx context.Context, id uuid.UUID) (model.Actor, error) {
	var actor model.Actor
	err := r.s.run(ctx, func(*unitOfWork) error {
		a, ok := r.s.actors[id]
		if !ok {
			return apperrors.ErrActorNotFound
		}
		if staff, ok := a.(model.Staff); ok {
			staff.AssignedEvents = append([]uuid.UUID(nil), r.s.assignments[id]...)
			a = staff
		}
		actor = a
		return nil
	})
	return actor, err
}

func (r *actorRepository) AssignStaff(ctx context.Context, staffID, eventID uuid.UUID) error {
	return r.s.run(ctx, func(uow *unitOfWork) error {
		r.assign(uow, staffID, eventID)
		return nil
	})
}

func (r *actorRepository) assign(uow *unitOfWork, staffID, eventID uuid.UUID) {
	current := r.s.assignments[staffID]
	if lo.Contains(current, eventID) {
		return
	}
	r.s.assignments[staffID] = append(append([]uuid.UUID(nil), current...), eventID)
	uow.onRollback(func() { r.s.assignments[staffID] = current })
}
