package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus 訂位狀態
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRefunded  BookingStatus = "refunded"
	BookingStatusUsed      BookingStatus = "used"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusRefunded, BookingStatusUsed:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	transitions := map[BookingStatus][]BookingStatus{
		BookingStatusPending:   {BookingStatusConfirmed},
		BookingStatusConfirmed: {BookingStatusUsed, BookingStatusCancelled, BookingStatusRefunded},
		BookingStatusCancelled: {},
		BookingStatusRefunded:  {},
		BookingStatusUsed:      {},
	}

	for _, status := range transitions[s] {
		if status == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusRefunded || s == BookingStatusUsed
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFree     PaymentStatus = "free"
)

type Attendee struct {
	Name  string `json:"name" validate:"omitempty,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

type VerificationCode struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	BookingID     uuid.UUID  `json:"booking_id" db:"booking_id"`
	EventID       uuid.UUID  `json:"event_id" db:"event_id"`
	Code          string     `json:"code" db:"code"`
	TicketNumber  int        `json:"ticket_number" db:"ticket_number"`
	Attendee      Attendee   `json:"attendee" db:"attendee"`
	IntegrityHash string     `json:"-" db:"integrity_hash"`
	IsUsed        bool       `json:"is_used" db:"is_used"`
	UsedAt        *time.Time `json:"used_at,omitempty" db:"used_at"`
	UsedBy        *uuid.UUID `json:"used_by,omitempty" db:"used_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Booking 訂位模型
type Booking struct {
	ID               uuid.UUID          `json:"id" db:"id"`
	UserID           uuid.UUID          `json:"user_id" db:"user_id"`
	EventID          uuid.UUID          `json:"event_id" db:"event_id"`
	TicketType       TicketTypeName     `json:"ticket_type" db:"ticket_type"`
	Quantity         int                `json:"quantity" db:"quantity"`
	UnitPrice        decimal.Decimal    `json:"unit_price" db:"unit_price"`
	BaseAmount       decimal.Decimal    `json:"base_amount" db:"base_amount"`
	PlatformFee      decimal.Decimal    `json:"platform_fee" db:"platform_fee"`
	Tax              decimal.Decimal    `json:"tax" db:"tax"`
	FinalAmount      decimal.Decimal    `json:"final_amount" db:"final_amount"`
	RefundAmount     decimal.Decimal    `json:"refund_amount" db:"refund_amount"`
	Status           BookingStatus      `json:"status" db:"status"`
	PaymentStatus    PaymentStatus      `json:"payment_status" db:"payment_status"`
	PaymentReference string             `json:"payment_reference" db:"payment_reference"`
	GatewayReference *string            `json:"gateway_reference,omitempty" db:"gateway_reference"`
	Attendees        []Attendee         `json:"attendees" db:"attendees"`
	Codes            []VerificationCode `json:"verification_codes" db:"-"`
	IsFullyCheckedIn bool               `json:"is_fully_checked_in" db:"is_fully_checked_in"`
	CheckInTime      *time.Time         `json:"check_in_time,omitempty" db:"check_in_time"`
	CheckedInBy      *uuid.UUID         `json:"checked_in_by,omitempty" db:"checked_in_by"`
	Version          int64              `json:"version" db:"version"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

func (b *Booking) AnyCodeUsed() bool {
	for _, c := range b.Codes {
		if c.IsUsed {
			return true
		}
	}
	return false
}

func (b *Booking) AllCodesUsed() bool {
	if len(b.Codes) == 0 {
		return false
	}
	for _, c := range b.Codes {
		if !c.IsUsed {
			return false
		}
	}
	return true
}

// FindCode 在訂位內尋找驗證碼，回傳索引
func (b *Booking) FindCode(code string) (*VerificationCode, bool) {
	for i := range b.Codes {
		if b.Codes[i].Code == code {
			return &b.Codes[i], true
		}
	}
	return nil, false
}

func (b *Booking) FindTicket(ticketNumber int) (*VerificationCode, bool) {
	for i := range b.Codes {
		if b.Codes[i].TicketNumber == ticketNumber {
			return &b.Codes[i], true
		}
	}
	return nil, false
}

// BookingMode selects which creation path POST /bookings takes.
type BookingMode string

const (
	BookingModePaid    BookingMode = "paid"
	BookingModeFree    BookingMode = "free"
	BookingModePending BookingMode = "pending"
)

// CreateBookingRequest 建立訂位請求
type CreateBookingRequest struct {
	EventID          uuid.UUID      `json:"event_id" validate:"required"`
	TicketType       TicketTypeName `json:"ticket_type" validate:"required,ticket_type"`
	Quantity         int            `json:"quantity"`
	PaymentReference string         `json:"payment_reference" validate:"omitempty,max=128"`
	Attendees        []Attendee     `json:"attendees" validate:"omitempty,dive"`
	Mode             BookingMode    `json:"mode" validate:"omitempty,oneof=paid free pending"`
}
