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

type TicketTypeRepository interface {
	Create(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error)
	FindByEventAndName(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName) (*model.TicketType, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.TicketType, error)
	ListAll(ctx context.Context) ([]model.TicketType, error)

	// Reserve 條件式增加已售數量，數量不足時回傳 ErrInsufficientInventory
	Reserve(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error)
	// Release 減少已售數量，最低為 0
	Release(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error)
}

type TicketTypeRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketTypeRepository(pool *pgxpool.Pool) TicketTypeRepository {
	return &TicketTypeRepositoryImpl{
		pool: pool,
	}
}

const ticketTypeColumns = `id, event_id, name, unit_price, capacity, sold, version, created_at, updated_at`

func (r *TicketTypeRepositoryImpl) Create(ctx context.Context, ticketType *model.TicketType) (*model.TicketType, error) {
	if ticketType.ID == uuid.Nil {
		ticketType.ID = uuid.New()
	}
	query := `
		INSERT INTO ticket_types (id, event_id, name, unit_price, capacity, sold, version)
		VALUES ($1, $2, $3, $4, $5, 0, 1)
		RETURNING ` + ticketTypeColumns

	created, err := scanTicketType(conn(ctx, r.pool).QueryRow(ctx, query,
		ticketType.ID, ticketType.EventID, ticketType.Name, ticketType.UnitPrice, ticketType.Capacity,
	))
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("duplicate ticket type %s: %w", ticketType.Name, apperrors.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}
	return created, nil
}

func (r *TicketTypeRepositoryImpl) FindByEventAndName(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName) (*model.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + `
		FROM ticket_types
		WHERE event_id = $1 AND name = $2
	`

	ticketType, err := scanTicketType(conn(ctx, r.pool).QueryRow(ctx, query, eventID, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrUnknownTicketType
		}
		return nil, err
	}
	return ticketType, nil
}

func (r *TicketTypeRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + `
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY unit_price ASC, name ASC
	`
	return r.list(ctx, query, eventID)
}

func (r *TicketTypeRepositoryImpl) ListAll(ctx context.Context) ([]model.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + `
		FROM ticket_types
		ORDER BY event_id, name
	`
	return r.list(ctx, query)
}

func (r *TicketTypeRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]model.TicketType, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ticketTypes := make([]model.TicketType, 0)
	for rows.Next() {
		ticketType, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		ticketTypes = append(ticketTypes, *ticketType)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ticketTypes, nil
}

func (r *TicketTypeRepositoryImpl) Reserve(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET sold = sold + $1, version = version + 1, updated_at = $2
		WHERE event_id = $3 AND name = $4 AND sold + $1 <= capacity
		RETURNING ` + ticketTypeColumns

	ticketType, err := scanTicketType(conn(ctx, r.pool).QueryRow(ctx, query, quantity, time.Now().UTC(), eventID, name))
	if err == nil {
		return ticketType, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to reserve inventory: %w", err)
	}

	// 沒有更新任何資料：區分票種不存在與庫存不足
	if _, findErr := r.FindByEventAndName(ctx, eventID, name); findErr != nil {
		return nil, findErr
	}
	return nil, apperrors.ErrInsufficientInventory
}

func (r *TicketTypeRepositoryImpl) Release(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET sold = GREATEST(sold - $1, 0), version = version + 1, updated_at = $2
		WHERE event_id = $3 AND name = $4
		RETURNING ` + ticketTypeColumns

	ticketType, err := scanTicketType(conn(ctx, r.pool).QueryRow(ctx, query, quantity, time.Now().UTC(), eventID, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrUnknownTicketType
		}
		return nil, fmt.Errorf("failed to release inventory: %w", err)
	}
	return ticketType, nil
}

func scanTicketType(row pgx.Row) (*model.TicketType, error) {
	var t model.TicketType
	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.Name,
		&t.UnitPrice,
		&t.Capacity,
		&t.Sold,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
