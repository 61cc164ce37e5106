package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	customerIDKey contextKey = "customer_id"
	guestIDKey    contextKey = "guest_id"
)

// Identity is the session a request acts for. Exactly one of CustomerID and
// GuestID is set for shopper calls; staff calls carry UserID.
type Identity struct {
	CustomerID string
	GuestID    string
	UserID     string
}

// Owner is the id carts are stored under.
func (i Identity) Owner() string {
	if i.CustomerID != "" {
		return i.CustomerID
	}
	return i.GuestID
}

// WithCustomerID lets an upstream interceptor that already verified the
// session pin the customer on the context.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerIDKey, customerID)
}

func WithGuestID(ctx context.Context, guestID string) context.Context {
	return context.WithValue(ctx, guestIDKey, guestID)
}

func GetCustomerID(ctx context.Context) string {
	if val, ok := ctx.Value(customerIDKey).(string); ok {
		return val
	}
	return fromMetadata(ctx, "x-customer-id")
}

func GetGuestID(ctx context.Context) string {
	if val, ok := ctx.Value(guestIDKey).(string); ok {
		return val
	}
	return fromMetadata(ctx, "x-guest-id")
}

func GetUserID(ctx context.Context) string {
	return fromMetadata(ctx, "x-user-id")
}

// FromContext resolves the caller. A signed-in customer wins over a guest
// session id sent alongside it.
func FromContext(ctx context.Context) Identity {
	id := Identity{
		CustomerID: GetCustomerID(ctx),
		UserID:     GetUserID(ctx),
	}
	if id.CustomerID == "" {
		id.GuestID = GetGuestID(ctx)
	}
	return id
}

func GetLanguage(ctx context.Context) string {
	return fromMetadata(ctx, "accept-language")
}

func GetIdempotencyKey(ctx context.Context) string {
	return fromMetadata(ctx, "idempotency-key")
}

func fromMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(key); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
