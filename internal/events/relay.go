package events

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"go.uber.org/zap"
)

// Publisher delivers one message to a topic. *broker.KafkaProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Topics       Topics
}

// Relay moves committed outbox rows to the broker. A row is marked sent only
// after the broker accepted it, so a crash between the two republishes it.
type Relay struct {
	uow     uow.Manager
	pub     Publisher
	cfg     RelayConfig
	metrics *metrics.CheckoutMetrics
	logger  logger.ZapLogger
	wake    chan struct{}
	now     func() time.Time
}

func NewRelay(m uow.Manager, pub Publisher, cfg RelayConfig, mt *metrics.CheckoutMetrics, log logger.ZapLogger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Topics == (Topics{}) {
		cfg.Topics = DefaultTopics()
	}
	return &Relay{
		uow:     m,
		pub:     pub,
		cfg:     cfg,
		metrics: mt,
		logger:  log,
		wake:    make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Wake asks the relay to flush now instead of at the next tick. It never blocks.
func (r *Relay) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("Starting outbox relay", zap.Duration("poll_interval", r.cfg.PollInterval))
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping outbox relay")
			return
		case <-ticker.C:
		case <-r.wake:
		}

		for {
			n, err := r.Flush(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Error("Failed to flush outbox", zap.Error(err))
				}
				break
			}
			if n < r.cfg.BatchSize {
				break
			}
		}
	}
}

// Flush publishes one batch of pending rows and returns how many were sent.
// Rows are read in one unit of work and marked sent in another; broker I/O
// happens between the two, outside any transaction. Publishing stops at the
// first broker error; rows already accepted are still marked sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	var pending []model.OutboxEvent
	err := r.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		pending, err = tx.Outbox().FetchPending(ctx, r.cfg.BatchSize)
		return err
	})
	if err != nil {
		return 0, err
	}

	var pubErr error
	ids := make([]int64, 0, len(pending))
	for _, ev := range pending {
		topic := r.cfg.Topics.Resolve(ev.Topic)
		if err := r.pub.Publish(ctx, topic, ev.Key, ev.Payload); err != nil {
			r.observe(topic, "error")
			pubErr = err
			break
		}
		r.observe(topic, "ok")
		ids = append(ids, ev.ID)
	}
	if len(ids) == 0 {
		return 0, pubErr
	}

	err = r.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		return tx.Outbox().MarkSent(ctx, ids, r.now())
	})
	if err != nil {
		return 0, err
	}
	return len(ids), pubErr
}

func (r *Relay) observe(topic, result string) {
	if r.metrics != nil {
		r.metrics.OutboxSent.WithLabelValues(topic, result).Inc()
	}
}
