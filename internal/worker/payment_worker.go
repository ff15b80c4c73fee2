package worker

import (
	"context"
	"errors"

	"ticket-booking/internal/metrics"
	"ticket-booking/internal/model"
	"ticket-booking/internal/queue"
	"ticket-booking/internal/service"
	apperrors "ticket-booking/pkg/app_errors"
	"ticket-booking/pkg/logger"

	"go.uber.org/zap"
)

type Worker interface {
	// 訂閱隊列並在背景處理，ctx 結束時停止
	Start(ctx context.Context) error
	// Wait 等待背景處理結束
	Wait()
}

type PaymentWorkerImpl struct {
	service service.ConfirmationService
	queue   queue.Queue[model.PaymentResult]
	done    chan struct{}
}

func NewPaymentWorker(service service.ConfirmationService, queue queue.Queue[model.PaymentResult]) Worker {
	return &PaymentWorkerImpl{
		service: service,
		queue:   queue,
		done:    make(chan struct{}),
	}
}

func (w *PaymentWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		close(w.done)
		return err
	}

	log := logger.WithComponent("worker").With(zap.String("worker", "payment"))
	go func() {
		defer close(w.done)
		for msg := range msgs {
			_, err := w.service.HandlePaymentResult(ctx, msg.Data)

			switch {
			case err == nil:
				metrics.MessagesProcessed.WithLabelValues("payments", "ok").Inc()
				msg.Ack()
			case isPermanent(err):
				// 業務錯誤重試也不會成功，直接結案
				log.Warn("payment result rejected",
					zap.String("booking_id", msg.Data.BookingID.String()),
					zap.Error(err))
				metrics.MessagesProcessed.WithLabelValues("payments", "rejected").Inc()
				msg.Ack()
			default:
				// 資料庫暫時連不上之類的錯誤，交回隊列重試
				log.Error("payment result failed, requeue",
					zap.String("booking_id", msg.Data.BookingID.String()),
					zap.Error(err))
				metrics.MessagesProcessed.WithLabelValues("payments", "retry").Inc()
				msg.Nack(true)
			}
		}
	}()
	return nil
}

func (w *PaymentWorkerImpl) Wait() {
	<-w.done
}

// isPermanent reports whether err is a domain outcome rather than an infrastructure failure.
func isPermanent(err error) bool {
	for _, kind := range []error{
		apperrors.ErrValidation,
		apperrors.ErrForbidden,
		apperrors.ErrNotFound,
		apperrors.ErrState,
		apperrors.ErrIntegrity,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	// 併發更新衝突可以重試，其餘衝突（庫存不足等）不行
	return errors.Is(err, apperrors.ErrConflict) && !errors.Is(err, apperrors.ErrConcurrentUpdate)
}
