package service

import (
	"context"
	"time"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/model"
	"ticket-booking/internal/queue"
	"ticket-booking/pkg/logger"

	"github.com/lithammer/shortuuid/v3"
	"go.uber.org/zap"
)

const sideEffectTimeout = 3 * time.Second

// sideEffects runs after a unit of work has committed. Failures are logged
// and swallowed; a committed transition is never reported as failed.
type sideEffects struct {
	notifications queue.Queue[model.Notification]
	inventory     cache.InventoryCache
}

func (e *sideEffects) notifyBooking(ctx context.Context, kind model.NotificationKind, b *model.Booking, code string) {
	e.publish(ctx, model.Notification{
		Kind:    kind,
		EventID: b.EventID,
		UserID:  b.UserID,
		Booking: b,
		Code:    code,
	})
}

func (e *sideEffects) inventoryChanged(ctx context.Context, t *model.TicketType) {
	if t == nil {
		return
	}
	snapshot := t.Snapshot()

	if e.inventory != nil {
		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		if _, err := e.inventory.Sync(syncCtx, snapshot); err != nil {
			logger.WithComponent("service").Warn("inventory cache sync failed",
				zap.String("event_id", t.EventID.String()),
				zap.String("ticket_type", string(t.Name)),
				zap.Error(err))
		}
		cancel()
	}

	e.publish(ctx, model.Notification{
		Kind:      model.NotificationInventoryChanged,
		EventID:   t.EventID,
		Inventory: &snapshot,
	})
}

func (e *sideEffects) publish(ctx context.Context, n model.Notification) {
	if e.notifications == nil {
		return
	}
	n.ID = shortuuid.New()
	n.OccurredAt = time.Now().UTC()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := e.notifications.Publish(pubCtx, n); err != nil {
		logger.WithComponent("service").Warn("publish notification failed",
			zap.String("kind", string(n.Kind)),
			zap.String("event_id", n.EventID.String()),
			zap.Error(err))
	}
}
