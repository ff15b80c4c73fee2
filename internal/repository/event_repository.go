package repository

import (
	"context"
	"fmt"
	"time"

	"ticket-booking/internal/model"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	Approve(ctx context.Context, id uuid.UUID) (*model.Event, error)
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

// Create 只寫入活動本身，票種由 TicketTypeRepository 建立
func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	query := `
		INSERT INTO events (id, organizer_id, name, description, venue, start_date, approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		event.ID, event.OrganizerID, event.Name, event.Description, event.Venue,
		event.StartDate.UTC(), event.Approved,
	).Scan(
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT id, organizer_id, name, description, venue, start_date, approved, created_at, updated_at
		FROM events
		ORDER BY start_date ASC
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, organizer_id, name, description, venue, start_date, approved, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	event, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

func (r *EventRepositoryImpl) Approve(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		UPDATE events
		SET approved = TRUE, updated_at = $1
		WHERE id = $2
		RETURNING id, organizer_id, name, description, venue, start_date, approved, created_at, updated_at
	`

	event, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, query, time.Now().UTC(), id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to approve event: %w", err)
	}

	return event, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Name,
		&event.Description,
		&event.Venue,
		&event.StartDate,
		&event.Approved,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
