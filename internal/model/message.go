package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentResult is what the payment gateway reports for a pending booking.
type PaymentResult struct {
	BookingID        uuid.UUID `json:"booking_id" validate:"required"`
	Reference        string    `json:"reference" validate:"required,max=128"`
	GatewayReference string    `json:"gateway_reference,omitempty"`
	Success          bool      `json:"success"`
	Reason           string    `json:"reason,omitempty"`
}

type RefundApproved struct {
	BookingID uuid.UUID       `json:"booking_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type RedemptionResult struct {
	Booking      *Booking `json:"booking"`
	Attendee     Attendee `json:"attendee"`
	TicketNumber int      `json:"ticket_number"`
	AllCodesUsed bool     `json:"all_codes_used"`
}

type NotificationKind string

const (
	NotificationBookingConfirmed NotificationKind = "booking.confirmed"
	NotificationCodeRedeemed     NotificationKind = "code.redeemed"
	NotificationBookingCancelled NotificationKind = "booking.cancelled"
	NotificationBookingRefunded  NotificationKind = "booking.refunded"
	NotificationPaymentFailed    NotificationKind = "payment.failed"
	NotificationInventoryChanged NotificationKind = "inventory.changed"
)

// Notification 對外通知事件，透過通知 stream 傳遞
type Notification struct {
	ID         string             `json:"id"`
	Kind       NotificationKind   `json:"kind"`
	EventID    uuid.UUID          `json:"event_id"`
	UserID     uuid.UUID          `json:"user_id,omitempty"`
	Booking    *Booking           `json:"booking,omitempty"`
	Inventory  *InventorySnapshot `json:"inventory,omitempty"`
	Code       string             `json:"code,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}
