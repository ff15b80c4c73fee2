// Package notify delivers outbound booking notifications. Rendering and
// transport belong to an external service; the default Notifier only logs.
package notify

import (
	"context"

	"ticket-booking/internal/model"
	"ticket-booking/pkg/logger"

	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier() Notifier {
	return &LogNotifier{log: logger.WithComponent("notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, n model.Notification) error {
	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.String("event_id", n.EventID.String()),
		zap.Time("occurred_at", n.OccurredAt),
	}
	if n.Booking != nil {
		fields = append(fields,
			zap.String("booking_id", n.Booking.ID.String()),
			zap.String("status", string(n.Booking.Status)),
			zap.Int("codes", len(n.Booking.Codes)))
	}
	if n.Inventory != nil {
		fields = append(fields,
			zap.String("ticket_type", string(n.Inventory.TicketType)),
			zap.Int("available", n.Inventory.Available),
			zap.Int64("version", n.Inventory.Version))
	}
	l.log.Info("notification delivered", fields...)
	return nil
}
