package outbox

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type Repository interface {
	Insert(ctx context.Context, ev *model.OutboxEvent) error
	// FetchPending returns up to limit unsent rows, skipping rows another
	// unit currently holds. Delivery is at-least-once: a row fetched by two
	// relays may be published twice.
	FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64, at time.Time) error
}
