package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketTypeName 票種名稱（封閉列舉）
type TicketTypeName string

const (
	TicketTypeRegular   TicketTypeName = "regular"
	TicketTypeVIP       TicketTypeName = "vip"
	TicketTypeVVIP      TicketTypeName = "vvip"
	TicketTypeEarlyBird TicketTypeName = "early_bird"
	TicketTypeStudent   TicketTypeName = "student"
)

// IsValid 驗證票種是否有效
func (n TicketTypeName) IsValid() bool {
	switch n {
	case TicketTypeRegular, TicketTypeVIP, TicketTypeVVIP, TicketTypeEarlyBird, TicketTypeStudent:
		return true
	}
	return false
}

// TicketType is one priced pool of an event. 0 <= Sold <= Capacity always holds.
type TicketType struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	EventID   uuid.UUID       `json:"event_id" db:"event_id"`
	Name      TicketTypeName  `json:"name" db:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Capacity  int             `json:"capacity" db:"capacity"`
	Sold      int             `json:"sold" db:"sold"`
	Version   int64           `json:"version" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

func (t *TicketType) Available() int {
	if t.Sold >= t.Capacity {
		return 0
	}
	return t.Capacity - t.Sold
}

func (t *TicketType) IsFree() bool {
	return t.UnitPrice.IsZero()
}

// InventorySnapshot 庫存快照，用於 Redis 讀模型與通知
type InventorySnapshot struct {
	EventID    uuid.UUID       `json:"event_id"`
	TicketType TicketTypeName  `json:"ticket_type"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Capacity   int             `json:"capacity"`
	Sold       int             `json:"sold"`
	Available  int             `json:"available"`
	Version    int64           `json:"version"`
}

func (t *TicketType) Snapshot() InventorySnapshot {
	return InventorySnapshot{
		EventID:    t.EventID,
		TicketType: t.Name,
		UnitPrice:  t.UnitPrice,
		Capacity:   t.Capacity,
		Sold:       t.Sold,
		Available:  t.Available(),
		Version:    t.Version,
	}
}
