package worker

import (
	"context"

	"ticket-booking/internal/metrics"
	"ticket-booking/internal/model"
	"ticket-booking/internal/notify"
	"ticket-booking/internal/queue"
	"ticket-booking/pkg/logger"

	"go.uber.org/zap"
)

// NotificationWorkerImpl forwards outbound notifications. Delivery is best
// effort: a failed notification is logged and acknowledged.
type NotificationWorkerImpl struct {
	notifier notify.Notifier
	queue    queue.Queue[model.Notification]
	done     chan struct{}
}

func NewNotificationWorker(notifier notify.Notifier, queue queue.Queue[model.Notification]) Worker {
	return &NotificationWorkerImpl{
		notifier: notifier,
		queue:    queue,
		done:     make(chan struct{}),
	}
}

func (w *NotificationWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		close(w.done)
		return err
	}

	go func() {
		defer close(w.done)
		for msg := range msgs {
			if err := w.notifier.Notify(ctx, msg.Data); err != nil {
				logger.WithComponent("worker").Warn("notification dropped",
					zap.String("notification_id", msg.Data.ID),
					zap.String("kind", string(msg.Data.Kind)),
					zap.Error(err))
				metrics.MessagesProcessed.WithLabelValues("notifications", "dropped").Inc()
			} else {
				metrics.MessagesProcessed.WithLabelValues("notifications", "ok").Inc()
			}
			msg.Ack()
		}
	}()
	return nil
}

func (w *NotificationWorkerImpl) Wait() {
	<-w.done
}
