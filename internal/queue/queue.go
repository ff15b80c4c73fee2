package queue

import (
	"context"

	"ticket-booking/pkg/logger"

	"go.uber.org/zap"
)

type Delivery[T any] struct {
	Data T
	Ack  func()
	Nack func(requeue bool)
}

type Queue[T any] interface {
	// 發送訊息到隊列
	Publish(ctx context.Context, msg T) error
	// 訂閱隊列
	Subscribe(ctx context.Context) (<-chan Delivery[T], error)
}

type MemoryQueue[T any] struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan T
}

func NewMemoryQueue[T any](bufferSize int) Queue[T] {
	return &MemoryQueue[T]{
		ch: make(chan T, bufferSize),
	}
}

func (q *MemoryQueue[T]) Publish(ctx context.Context, msg T) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue[T]) Subscribe(ctx context.Context) (<-chan Delivery[T], error) {
	out := make(chan Delivery[T])

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery[T]{
					Data: msg,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						// 簡單模擬重回隊列；滿了就丟棄，避免阻塞 worker
						select {
						case q.ch <- msg:
						default:
							logger.WithComponent("mq").Warn("memory queue full, dropping requeued message")
						}
					},
				}

				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// logDrop is shared by both queue kinds when a payload cannot be decoded.
func logDrop(stream, messageID string, err error) {
	logger.WithComponent("mq").Warn("drop undecodable message",
		zap.String("stream", stream), zap.String("message_id", messageID), zap.Error(err))
}
