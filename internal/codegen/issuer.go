// Package codegen issues and verifies per-seat verification codes.
//
// A code is ten decimal digits drawn uniformly from [0, 10^10). Each code is
// bound to its booking by a keyed BLAKE3 hash over the length-prefixed tuple
// (booking id, event id, user id, payment reference, code).
package codegen

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	"ticket-booking/internal/model"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const (
	CodeLength = 10

	keyContext = "ticket-booking 2024 verification code integrity key"
	// regenerate attempts per seat before giving up on a batch
	maxDrawAttempts = 16
)

var codeSpace = big.NewInt(10_000_000_000)

var ErrEmptySecret = errors.New("code secret must not be empty")

type BookingContext struct {
	BookingID        uuid.UUID
	EventID          uuid.UUID
	UserID           uuid.UUID
	PaymentReference string
}

func ContextOf(b *model.Booking) BookingContext {
	return BookingContext{
		BookingID:        b.ID,
		EventID:          b.EventID,
		UserID:           b.UserID,
		PaymentReference: b.PaymentReference,
	}
}

type Issuer struct {
	key    []byte
	random io.Reader
}

type Option func(*Issuer)

// WithRandom replaces crypto/rand as the digit source.
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) { i.random = r }
}

func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, 32)
	blake3.DeriveKey(keyContext, []byte(secret), key)

	i := &Issuer{key: key, random: rand.Reader}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueBatch returns one code per attendee, numbered from 1, pairwise distinct.
func (i *Issuer) IssueBatch(bc BookingContext, attendees []model.Attendee) ([]model.VerificationCode, error) {
	seen := make(map[string]struct{}, len(attendees))
	codes := make([]model.VerificationCode, 0, len(attendees))

	for n, attendee := range attendees {
		code, err := i.drawUnique(seen)
		if err != nil {
			return nil, err
		}
		hash, err := i.Hash(bc, code)
		if err != nil {
			return nil, err
		}
		codes = append(codes, model.VerificationCode{
			ID:            uuid.New(),
			BookingID:     bc.BookingID,
			EventID:       bc.EventID,
			Code:          code,
			TicketNumber:  n + 1,
			Attendee:      attendee,
			IntegrityHash: hash,
		})
	}
	return codes, nil
}

func (i *Issuer) drawUnique(seen map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxDrawAttempts; attempt++ {
		code, err := NewCode(i.random)
		if err != nil {
			return "", err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		return code, nil
	}
	return "", fmt.Errorf("could not draw a distinct code after %d attempts", maxDrawAttempts)
}

// NewCode draws a single zero-padded ten digit code from r.
func NewCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// IsWellFormed reports whether code has the issued shape: CodeLength ASCII digits.
func IsWellFormed(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func (i *Issuer) Hash(bc BookingContext, code string) (string, error) {
	h, err := blake3.NewKeyed(i.key)
	if err != nil {
		return "", err
	}
	for _, field := range []string{
		bc.BookingID.String(),
		bc.EventID.String(),
		bc.UserID.String(),
		bc.PaymentReference,
		code,
	} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		_, _ = h.Write(size[:])
		_, _ = h.WriteString(field)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the hash of code and compares it in constant time.
func (i *Issuer) Verify(bc BookingContext, code, storedHash string) bool {
	hash, err := i.Hash(bc, code)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(storedHash)) == 1
}
