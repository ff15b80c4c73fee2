package repository

import (
	"context"
	"fmt"

	"ticket-booking/internal/model"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActorRepository interface {
	Create(ctx context.Context, actor model.Actor) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Actor, error)
	AssignStaff(ctx context.Context, staffID, eventID uuid.UUID) error
}

type ActorRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewActorRepository(pool *pgxpool.Pool) ActorRepository {
	return &ActorRepositoryImpl{
		pool: pool,
	}
}

func (r *ActorRepositoryImpl) Create(ctx context.Context, actor model.Actor) error {
	attrs := actor.Attributes()
	query := `
		INSERT INTO actors (id, role, name, email, phone)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := conn(ctx, r.pool).Exec(ctx, query, attrs.ID, actor.Role(), attrs.Name, attrs.Email, attrs.Phone)
	if err != nil {
		return fmt.Errorf("failed to create actor: %w", err)
	}

	if staff, ok := actor.(model.Staff); ok {
		for _, eventID := range staff.AssignedEvents {
			if err := r.AssignStaff(ctx, attrs.ID, eventID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ActorRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (model.Actor, error) {
	query := `
		SELECT a.id, a.role, a.name, a.email, a.phone,
		       COALESCE(array_agg(s.event_id) FILTER (WHERE s.event_id IS NOT NULL), '{}')
		FROM actors a
		LEFT JOIN staff_assignments s ON s.staff_id = a.id
		WHERE a.id = $1
		GROUP BY a.id
	`

	var (
		attrs    model.ActorAttributes
		role     model.Role
		assigned []uuid.UUID
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&attrs.ID,
		&role,
		&attrs.Name,
		&attrs.Email,
		&attrs.Phone,
		&assigned,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrActorNotFound
		}
		return nil, err
	}

	actor, ok := model.NewActor(role, attrs, assigned)
	if !ok {
		return nil, fmt.Errorf("unknown actor role %q", role)
	}
	return actor, nil
}

func (r *ActorRepositoryImpl) AssignStaff(ctx context.Context, staffID, eventID uuid.UUID) error {
	query := `
		INSERT INTO staff_assignments (staff_id, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := conn(ctx, r.pool).Exec(ctx, query, staffID, eventID); err != nil {
		return fmt.Errorf("failed to assign staff: %w", err)
	}
	return nil
}
