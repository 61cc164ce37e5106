package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/order"
	"github.com/fekuna/omnipos-checkout-service/internal/order/dto"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventStatusChangeRequested = "OrderStatusChangeRequested"

// MessageReader is satisfied by *broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// StatusListener applies status changes that staff dashboards publish on the
// order status command topic.
type StatusListener struct {
	consumer MessageReader
	uc       order.UseCase
	logger   logger.ZapLogger
}

func NewStatusListener(consumer MessageReader, uc order.UseCase, logger logger.ZapLogger) *StatusListener {
	return &StatusListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *StatusListener) Start(ctx context.Context) {
	l.logger.Info("Starting order status listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order status listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type StatusCommand struct {
	EventID   string        `json:"event_id"`
	EventType string        `json:"event_type"`
	Payload   StatusPayload `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

type StatusPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Actor   string `json:"actor"`
	Reason  string `json:"reason"`
}

func (l *StatusListener) processMessage(ctx context.Context, value []byte) {
	var cmd StatusCommand
	if err := json.Unmarshal(value, &cmd); err != nil {
		l.logger.Error("Failed to unmarshal status command", zap.Error(err))
		return
	}
	if cmd.EventType != EventStatusChangeRequested {
		return
	}

	_, err := l.uc.UpdateStatus(ctx, &dto.UpdateStatusInput{
		OrderID: cmd.Payload.OrderID,
		Status:  cmd.Payload.Status,
		Actor:   cmd.Payload.Actor,
		Reason:  cmd.Payload.Reason,
	})
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrInvalidTransition), errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrInvalidArgument):
		// Redelivered or stale commands land here; they are dropped.
		l.logger.Warn("Ignoring status command",
			zap.String("event_id", cmd.EventID),
			zap.String("order_id", cmd.Payload.OrderID),
			zap.Error(err),
		)
	default:
		l.logger.Error("Failed to apply status command",
			zap.String("event_id", cmd.EventID),
			zap.String("order_id", cmd.Payload.OrderID),
			zap.Error(err),
		)
	}
}
