package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Event struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	OrganizerID uuid.UUID    `json:"organizer_id" db:"organizer_id"`
	Name        string       `json:"name" db:"name"`
	Description *string      `json:"description,omitempty" db:"description"`
	Venue       string       `json:"venue" db:"venue"`
	StartDate   time.Time    `json:"start_date" db:"start_date"`
	Approved    bool         `json:"approved" db:"approved"`
	TicketTypes []TicketType `json:"ticket_types" db:"-"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// FindTicketType 依名稱取得票種
func (e *Event) FindTicketType(name TicketTypeName) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].Name == name {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}

func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartDate)
}

type TicketTypeRequest struct {
	Name      TicketTypeName  `json:"name" validate:"required,ticket_type"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Capacity  int             `json:"capacity" validate:"gte=0"`
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Venue       string              `json:"venue" validate:"required,max=200"`
	StartDate   time.Time           `json:"start_date" validate:"required"`
	TicketTypes []TicketTypeRequest `json:"ticket_types" validate:"required,min=1,dive"`
}
