package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-booking/internal/model"
	apperrors "ticket-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicatePaymentReference is returned by Create when the payment
// reference already belongs to another booking.
var ErrDuplicatePaymentReference = errors.New("duplicate payment reference")

type BookingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindByPaymentReference(ctx context.Context, reference string) (*model.Booking, error)
	FindActiveByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*model.Booking, error)
	FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error)

	// Transaction methods
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Update 以 version 做樂觀鎖，版本不符時回傳 ErrConcurrentUpdate
	Update(ctx context.Context, booking *model.Booking) error
	InsertCodes(ctx context.Context, booking *model.Booking, codes []model.VerificationCode) error
	MarkCodeUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time, usedBy uuid.UUID) error
}

type BookingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &BookingRepositoryImpl{
		pool: pool,
	}
}

const bookingColumns = `
	id, user_id, event_id, ticket_type, quantity, unit_price, base_amount, platform_fee, tax,
	final_amount, refund_amount, status, payment_status, payment_reference, gateway_reference,
	attendees, is_fully_checked_in, check_in_time, checked_in_by, version, created_at, updated_at`

func (r *BookingRepositoryImpl) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.Version = 1
	query := `
		INSERT INTO bookings (
			id, user_id, event_id, ticket_type, quantity, unit_price, base_amount, platform_fee, tax,
			final_amount, refund_amount, status, payment_status, payment_reference, gateway_reference,
			attendees, is_fully_checked_in, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, FALSE, $17)
		RETURNING created_at, updated_at
	`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		booking.ID, booking.UserID, booking.EventID, booking.TicketType, booking.Quantity,
		booking.UnitPrice, booking.BaseAmount, booking.PlatformFee, booking.Tax,
		booking.FinalAmount, booking.RefundAmount, booking.Status, booking.PaymentStatus,
		booking.PaymentReference, booking.GatewayReference, booking.Attendees, booking.Version,
	).Scan(
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "bookings_payment_reference_key"):
			return nil, ErrDuplicatePaymentReference
		case isUniqueViolation(err, "uq_bookings_free_registration"):
			return nil, apperrors.ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if len(booking.Codes) > 0 {
		codes := booking.Codes
		booking.Codes = nil
		if err := r.InsertCodes(ctx, booking, codes); err != nil {
			return nil, err
		}
	}

	return booking, nil
}

func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *BookingRepositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *BookingRepositoryImpl) FindByPaymentReference(ctx context.Context, reference string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_reference = $1`
	return r.findOne(ctx, query, reference)
}

func (r *BookingRepositoryImpl) FindActiveByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1 AND event_id = $2 AND status IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, userID, eventID, model.BookingStatusPending, model.BookingStatusConfirmed)
}

func (r *BookingRepositoryImpl) FindByCode(ctx context.Context, eventID uuid.UUID, code string) (*model.Booking, error) {
	query := `
		SELECT booking_id
		FROM verification_codes
		WHERE event_id = $1 AND code = $2
	`
	var bookingID uuid.UUID
	if err := conn(ctx, r.pool).QueryRow(ctx, query, eventID, code).Scan(&bookingID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrCodeNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, bookingID)
}

func (r *BookingRepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, booking := range bookings {
		if booking.Codes, err = r.loadCodes(ctx, booking.ID); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *BookingRepositoryImpl) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, payment_reference = $3, gateway_reference = $4,
		    refund_amount = $5, is_fully_checked_in = $6, check_in_time = $7, checked_in_by = $8,
		    version = version + 1, updated_at = $9
		WHERE id = $10 AND version = $11
		RETURNING version, updated_at
	`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		booking.Status, booking.PaymentStatus, booking.PaymentReference, booking.GatewayReference,
		booking.RefundAmount, booking.IsFullyCheckedIn, booking.CheckInTime, booking.CheckedInBy,
		time.Now().UTC(), booking.ID, booking.Version,
	).Scan(&booking.Version, &booking.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrConcurrentUpdate
		}
		if isUniqueViolation(err, "bookings_payment_reference_key") {
			return ErrDuplicatePaymentReference
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return nil
}

func (r *BookingRepositoryImpl) InsertCodes(ctx context.Context, booking *model.Booking, codes []model.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (
			id, booking_id, event_id, code, ticket_number, attendee, integrity_hash, is_used
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING created_at
	`

	db := conn(ctx, r.pool)
	for i := range codes {
		code := &codes[i]
		if code.ID == uuid.Nil {
			code.ID = uuid.New()
		}
		code.BookingID = booking.ID
		code.EventID = booking.EventID
		err := db.QueryRow(ctx, query,
			code.ID, code.BookingID, code.EventID, code.Code, code.TicketNumber, code.Attendee, code.IntegrityHash,
		).Scan(&code.CreatedAt)
		if err != nil {
			if isUniqueViolation(err, "verification_codes_event_id_code_key") {
				return apperrors.ErrCodeCollision
			}
			return fmt.Errorf("failed to insert verification code: %w", err)
		}
	}

	booking.Codes = append(booking.Codes, codes...)
	return nil
}

func (r *BookingRepositoryImpl) MarkCodeUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time, usedBy uuid.UUID) error {
	query := `
		UPDATE verification_codes
		SET is_used = TRUE, used_at = $1, used_by = $2
		WHERE id = $3 AND is_used = FALSE
	`
	result, err := conn(ctx, r.pool).Exec(ctx, query, usedAt.UTC(), usedBy, codeID)
	if err != nil {
		return fmt.Errorf("failed to mark code used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrCodeAlreadyUsed
	}
	return nil
}

func (r *BookingRepositoryImpl) findOne(ctx context.Context, query string, args ...any) (*model.Booking, error) {
	booking, err := scanBooking(conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}

	if booking.Codes, err = r.loadCodes(ctx, booking.ID); err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *BookingRepositoryImpl) loadCodes(ctx context.Context, bookingID uuid.UUID) ([]model.VerificationCode, error) {
	query := `
		SELECT id, booking_id, event_id, code, ticket_number, attendee, integrity_hash,
		       is_used, used_at, used_by, created_at
		FROM verification_codes
		WHERE booking_id = $1
		ORDER BY ticket_number ASC
	`

	rows, err := conn(ctx, r.pool).Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]model.VerificationCode, 0)
	for rows.Next() {
		var code model.VerificationCode
		err := rows.Scan(
			&code.ID,
			&code.BookingID,
			&code.EventID,
			&code.Code,
			&code.TicketNumber,
			&code.Attendee,
			&code.IntegrityHash,
			&code.IsUsed,
			&code.UsedAt,
			&code.UsedBy,
			&code.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.EventID,
		&b.TicketType,
		&b.Quantity,
		&b.UnitPrice,
		&b.BaseAmount,
		&b.PlatformFee,
		&b.Tax,
		&b.FinalAmount,
		&b.RefundAmount,
		&b.Status,
		&b.PaymentStatus,
		&b.PaymentReference,
		&b.GatewayReference,
		&b.Attendees,
		&b.IsFullyCheckedIn,
		&b.CheckInTime,
		&b.CheckedInBy,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !b.Status.IsValid() {
		return nil, fmt.Errorf("%w: booking %s has unknown status %q", apperrors.ErrIntegrity, b.ID, b.Status)
	}
	return &b, nil
}
