// Package postgres runs units of work as READ COMMITTED transactions. Rows
// that guard invariants (stock levels, promotions, orders) are taken with
// SELECT ... FOR UPDATE by the repositories, and lock waits are bounded by
// lock_timeout so a stuck unit surfaces as a retryable failure.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	cartRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/cart/repository"
	catalogRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/catalog/repository"
	invRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/inventory/repository"
	orderRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/order/repository"
	outboxRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/outbox/repository"
	promoRepoPkg "github.com/fekuna/omnipos-checkout-service/internal/promotion/repository"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/cart"
	"github.com/fekuna/omnipos-checkout-service/internal/catalog"
	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/order"
	"github.com/fekuna/omnipos-checkout-service/internal/outbox"
	"github.com/fekuna/omnipos-checkout-service/internal/promotion"
	"github.com/fekuna/omnipos-checkout-service/internal/uow"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// SQLSTATE codes worth a fresh attempt.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

type Manager struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

var _ uow.Manager = (*Manager)(nil)

func NewManager(db *sqlx.DB, lockTimeout time.Duration) *Manager {
	return &Manager{db: db, lockTimeout: lockTimeout}
}

func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, tx uow.Tx) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(ctx, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if m.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return classify(ctx, err)
		}
	}

	if err = fn(ctx, newTx(tx)); err != nil {
		return classify(ctx, err)
	}

	// A unit whose caller already gave up must not commit.
	if err = ctx.Err(); err != nil {
		return apperror.NewTransient(err)
	}
	if err = tx.Commit(); err != nil {
		return classify(ctx, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// classify wraps infrastructure failures that are safe to retry as
// apperror.TransientError and leaves every other error untouched.
func classify(ctx context.Context, err error) error {
	if err == nil || apperror.IsTransient(err) || apperror.IsBusiness(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return apperror.NewTransient(err)
		}
		return err
	}

	if pgconn.SafeToRetry(err) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return apperror.NewTransient(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return apperror.NewTransient(err)
	}
	return err
}

type pgTx struct {
	catalog    *catalogRepoPkg.PGRepository
	carts      *cartRepoPkg.PGRepository
	stock      *invRepoPkg.PGRepository
	promotions *promoRepoPkg.PGRepository
	orders     *orderRepoPkg.PGRepository
	outbox     *outboxRepoPkg.PGRepository
}

func newTx(tx *sqlx.Tx) *pgTx {
	return &pgTx{
		catalog:    catalogRepoPkg.NewPGRepository(tx),
		carts:      cartRepoPkg.NewPGRepository(tx),
		stock:      invRepoPkg.NewPGRepository(tx),
		promotions: promoRepoPkg.NewPGRepository(tx),
		orders:     orderRepoPkg.NewPGRepository(tx),
		outbox:     outboxRepoPkg.NewPGRepository(tx),
	}
}

func (t *pgTx) Catalog() catalog.Reader { return t.catalog }
func (t *pgTx) Carts() cart.Repository { return t.carts }
func (t *pgTx) Stock() inventory.Repository { return t.stock }
func (t *pgTx) Promotions() promotion.Repository { return t.promotions }
func (t *pgTx) Orders() order.Repository { return t.orders }
func (t *pgTx) Outbox() outbox.Repository { return t.outbox }
