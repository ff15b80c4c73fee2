// Package inventory guards the per-ticket-type sold counter. Reserve and
// Release are single conditional updates; they join the caller's unit of
// work when ctx carries one.
package inventory

import (
	"context"
	"errors"

	"ticket-booking/internal/metrics"
	"ticket-booking/internal/model"
	"ticket-booking/internal/repository"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
)

type Ledger struct {
	ticketTypes repository.TicketTypeRepository
}

func NewLedger(ticketTypes repository.TicketTypeRepository) *Ledger {
	return &Ledger{ticketTypes: ticketTypes}
}

func (l *Ledger) Reserve(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error) {
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	ticketType, err := l.ticketTypes.Reserve(ctx, eventID, name, quantity)
	metrics.InventoryOperations.WithLabelValues("reserve", resultLabel(err)).Inc()
	return ticketType, err
}

func (l *Ledger) Release(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName, quantity int) (*model.TicketType, error) {
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	ticketType, err := l.ticketTypes.Release(ctx, eventID, name, quantity)
	metrics.InventoryOperations.WithLabelValues("release", resultLabel(err)).Inc()
	return ticketType, err
}

// Available is a non-binding read of the remaining units.
func (l *Ledger) Available(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName) (int, error) {
	ticketType, err := l.ticketTypes.FindByEventAndName(ctx, eventID, name)
	if err != nil {
		return 0, err
	}
	return ticketType.Available(), nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrInsufficientInventory):
		return "insufficient"
	case errors.Is(err, apperrors.ErrUnknownTicketType):
		return "unknown_type"
	}
	return "error"
}
