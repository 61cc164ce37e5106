package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestFromContext(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		"x-customer-id", "c1",
		"x-guest-id", "g1",
		"x-user-id", "staff-1",
		"accept-language", "vi-VN",
		"idempotency-key", "k-1",
	))

	id := FromContext(ctx)
	assert.Equal(t, "c1", id.CustomerID)
	assert.Empty(t, id.GuestID)
	assert.Equal(t, "staff-1", id.UserID)
	assert.Equal(t, "c1", id.Owner())
	assert.Equal(t, "vi-VN", GetLanguage(ctx))
	assert.Equal(t, "k-1", GetIdempotencyKey(ctx))
}

func TestGuestIdentity(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-guest-id", "g1"))

	id := FromContext(ctx)
	assert.Empty(t, id.CustomerID)
	assert.Equal(t, "g1", id.Owner())
}

func TestContextValuesWin(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-customer-id", "from-md"))
	ctx = WithCustomerID(ctx, "verified")

	assert.Equal(t, "verified", GetCustomerID(ctx))
	assert.Empty(t, FromContext(context.Background()).Owner())
}
