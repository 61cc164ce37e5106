package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/cart/snapshot"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-checkout-service/internal/events"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory/ledger"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/internal/promotion/validator"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/fekuna/omnipos-checkout-service/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Config struct {
	// MaxAttempts bounds how often a unit that failed transiently is run.
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	RequestTimeout  time.Duration
	IdempotencyTTL  time.Duration
	PendingClaimTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialBackoff:  20 * time.Millisecond,
		MaxBackoff:      200 * time.Millisecond,
		RequestTimeout:  5 * time.Second,
		IdempotencyTTL:  24 * time.Hour,
		PendingClaimTTL: time.Minute,
	}
}

// Notifier is told when new outbox rows have been committed.
type Notifier interface {
	Wake()
}

type checkoutUseCase struct {
	uow       uow.Manager
	ledger    *ledger.Ledger
	validator *validator.Validator
	idem      *idempotency
	notifier  Notifier
	metrics   *metrics.CheckoutMetrics
	tracer    trace.Tracer
	logger    logger.ZapLogger
	cfg       Config
	now       func() time.Time
}

type Option func(*checkoutUseCase)

// WithClock drives the promotion window check, the ledger timestamps and the
// order timestamps from now.
func WithClock(now func() time.Time) Option {
	return func(uc *checkoutUseCase) { uc.now = now }
}

// WithIdempotency enables Idempotency-Key handling backed by Redis.
func WithIdempotency(client *cache.RedisClient) Option {
	return func(uc *checkoutUseCase) {
		if client != nil {
			uc.idem = &idempotency{cache: client}
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(uc *checkoutUseCase) { uc.notifier = n }
}

func NewCheckoutUseCase(m uow.Manager, mt *metrics.CheckoutMetrics, log logger.ZapLogger, cfg Config, opts ...Option) checkout.UseCase {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if mt == nil {
		mt = metrics.NewCheckoutMetrics(nil)
	}

	uc := &checkoutUseCase{
		uow:     m,
		metrics: mt,
		tracer:  otel.Tracer("github.com/fekuna/omnipos-checkout-service/checkout"),
		logger:  log,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.ledger = ledger.New().WithClock(uc.now)
	uc.validator = validator.New().WithClock(uc.now)
	if uc.idem != nil {
		uc.idem.ttl = cfg.IdempotencyTTL
		uc.idem.pendingTTL = cfg.PendingClaimTTL
	}
	return uc
}

func (uc *checkoutUseCase) Checkout(ctx context.Context, input *dto.CheckoutInput) (summary *dto.OrderSummary, err error) {
	if (input.CustomerID == "") == (input.GuestID == "") {
		return nil, fmt.Errorf("%w: exactly one of customer id or guest id is required", apperror.ErrInvalidArgument)
	}

	start := time.Now()
	ctx, span := uc.tracer.Start(ctx, "checkout.Checkout", trace.WithAttributes(
		attribute.String("checkout.owner", input.Owner()),
		attribute.Bool("checkout.guest", input.CustomerID == ""),
		attribute.Bool("checkout.promotion", input.PromotionCode != ""),
	))
	defer func() {
		uc.metrics.LatencyMS.Observe(float64(time.Since(start).Milliseconds()))
		uc.metrics.Checkouts.WithLabelValues(apperror.Reason(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, apperror.Reason(err))
		}
		span.End()
	}()

	if uc.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.RequestTimeout)
		defer cancel()
	}

	log := uc.logger.With(zap.String("customer_id", input.Owner()))

	if uc.idem != nil && input.IdempotencyKey != "" {
		orderID, claimed, claimErr := uc.idem.claim(ctx, input.Owner(), input.IdempotencyKey)
		if claimErr != nil {
			return nil, claimErr
		}
		if !claimed {
			log.Info("Replaying idempotent checkout", zap.String("order_id", orderID))
			return uc.replay(ctx, orderID)
		}
		defer func() {
			uc.idem.finish(context.WithoutCancel(ctx), input.Owner(), input.IdempotencyKey, summary, err, log)
		}()
	}

	summary, lowStock, err := uc.runWithRetry(ctx, input, log)
	if err != nil {
		uc.logFailure(log, input, err)
		return nil, err
	}

	uc.metrics.LowStockEvents.Add(float64(lowStock))
	if uc.notifier != nil {
		uc.notifier.Wake()
	}

	span.SetAttributes(attribute.String("order.id", summary.OrderID))
	log.Info("Checkout completed",
		zap.String("order_id", summary.OrderID),
		zap.String("total", summary.Total.String()),
		zap.Int("low_stock_events", lowStock),
	)
	return summary, nil
}

func (uc *checkoutUseCase) runWithRetry(ctx context.Context, input *dto.CheckoutInput, log logger.ZapLogger) (*dto.OrderSummary, int, error) {
	type result struct {
		summary  *dto.OrderSummary
		lowStock int
	}

	attempt := 0
	op := func() (result, error) {
		attempt++
		if attempt > 1 {
			uc.metrics.Retries.Inc()
		}
		summary, lowStock, err := uc.attempt(ctx, input)
		if err == nil {
			return result{summary, lowStock}, nil
		}
		if apperror.IsTransient(err) && ctx.Err() == nil {
			log.Warn("Checkout attempt failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return result{}, err
		}
		return result{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = uc.cfg.InitialBackoff
	b.MaxInterval = uc.cfg.MaxBackoff

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(uc.cfg.MaxAttempts)),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = apperror.NewTransient(err)
		}
		return nil, 0, err
	}
	return res.summary, res.lowStock, nil
}

// attempt runs one complete checkout in a single unit of work. Nothing it
// writes, outbox rows included, survives unless the whole unit commits.
func (uc *checkoutUseCase) attempt(ctx context.Context, input *dto.CheckoutInput) (*dto.OrderSummary, int, error) {
	var (
		order    *model.Order
		lowStock int
	)

	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		order, lowStock = nil, 0
		now := uc.now()
		orderID := uuid.New().String()

		// Started -> ItemsResolved
		snap, err := uc.snapshot(ctx, tx, input.Owner())
		if err != nil {
			return err
		}

		// ItemsResolved -> StockReserved
		reservations, err := uc.reserve(ctx, tx, snap, orderID)
		if err != nil {
			return err
		}

		// StockReserved -> PromotionApplied
		discount := decimal.Zero
		var applied *validator.Applied
		if input.PromotionCode != "" {
			applied, err = uc.applyPromotion(ctx, tx, input.PromotionCode, snap.Subtotal)
			if err != nil {
				return err
			}
			discount = applied.Discount
		}

		// PromotionApplied -> OrderCommitted
		order = buildOrder(orderID, input, snap, discount, applied, now)
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		// OrderCommitted -> CartCleared
		if err := tx.Carts().DeleteLines(ctx, input.Owner(), snap.LineIDs()); err != nil {
			return err
		}

		records, err := outboxRecords(order, reservations, now)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := tx.Outbox().Insert(ctx, rec); err != nil {
				return fmt.Errorf("stage %s event: %w", rec.Topic, err)
			}
		}
		lowStock = len(records) - 1
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return dto.NewOrderSummary(order), lowStock, nil
}

func (uc *checkoutUseCase) snapshot(ctx context.Context, tx uow.Tx, owner string) (*model.CartSnapshot, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.snapshot")
	defer span.End()

	snap, err := snapshot.TakeLocked(ctx, tx.Carts(), tx.Catalog(), owner)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("cart.lines", len(snap.Lines)))
	return snap, nil
}

// reserve takes stock for every ingredient the cart consumes, one
// requirement per ingredient in ascending id order.
func (uc *checkoutUseCase) reserve(ctx context.Context, tx uow.Tx, snap *model.CartSnapshot, orderID string) ([]*ledger.Reservation, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.reserve")
	defer span.End()

	reqs := ledger.Plan(snap.Lines)
	span.SetAttributes(attribute.Int("stock.ingredients", len(reqs)))

	reservations := make([]*ledger.Reservation, 0, len(reqs))
	for _, req := range reqs {
		r, err := uc.ledger.Reserve(ctx, tx.Stock(), req.IngredientID, req.Quantity, orderID)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, nil
}

func (uc *checkoutUseCase) applyPromotion(ctx context.Context, tx uow.Tx, code string, subtotal decimal.Decimal) (*validator.Applied, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.promotion", trace.WithAttributes(
		attribute.String("promotion.code", validator.NormalizeCode(code)),
	))
	defer span.End()

	return uc.validator.ValidateAndConsume(ctx, tx.Promotions(), code, subtotal)
}

func buildOrder(id string, input *dto.CheckoutInput, snap *model.CartSnapshot, discount decimal.Decimal, applied *validator.Applied, now time.Time) *model.Order {
	o := &model.Order{
		BaseModel:  model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		CustomerID: optional(input.CustomerID),
		GuestID:    optional(input.GuestID),
		TableID:    optional(input.TableID),
		Subtotal:   snap.Subtotal,
		Discount:   discount,
		Total:      snap.Subtotal.Sub(discount),
		Status:     model.OrderPendingConfirmation,
		Items:      make([]model.OrderItemSnapshot, 0, len(snap.Lines)),
	}
	if applied != nil {
		o.PromotionID = &applied.PromotionID
		o.PromotionCode = &applied.Code
	}

	for i, line := range snap.Lines {
		o.Items = append(o.Items, model.OrderItemSnapshot{
			ID:          uuid.New().String(),
			OrderID:     id,
			Position:    i + 1,
			ItemID:      line.ItemID,
			Name:        line.Name,
			OptionLabel: line.OptionLabel,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal,
		})
	}
	return o
}

// outboxRecords returns the order.created record first, followed by one
// low-stock record per ingredient that crossed its threshold.
func outboxRecords(o *model.Order, reservations []*ledger.Reservation, now time.Time) ([]*model.OutboxEvent, error) {
	created, err := events.OrderCreatedRecord(o, now)
	if err != nil {
		return nil, err
	}
	records := []*model.OutboxEvent{created}

	for _, r := range reservations {
		if !r.CrossedThreshold() {
			continue
		}
		rec, err := events.LowStockRecord(events.LowStock{
			IngredientID:    r.IngredientID,
			ItemName:        r.Name,
			CurrentQuantity: r.After,
			Threshold:       r.Threshold,
		}, now)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (uc *checkoutUseCase) replay(ctx context.Context, orderID string) (*dto.OrderSummary, error) {
	var order *model.Order
	err := uc.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s recorded for idempotency key", apperror.ErrNotFound, orderID)
	}
	return dto.NewOrderSummary(order), nil
}

func (uc *checkoutUseCase) logFailure(log logger.ZapLogger, input *dto.CheckoutInput, err error) {
	fields := []zap.Field{zap.String("reason", apperror.Reason(err)), zap.Error(err)}
	if input.PromotionCode != "" {
		fields = append(fields, zap.String("promotion_code", input.PromotionCode))
	}
	var stockErr *apperror.InsufficientStockError
	if errors.As(err, &stockErr) {
		fields = append(fields, zap.String("ingredient_id", stockErr.IngredientID))
	}

	if apperror.IsBusiness(err) {
		log.Warn("Checkout rejected", fields...)
		return
	}
	log.Error("Checkout failed", fields...)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
