package ports

import (
	"context"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// Account is the authenticated trading surface of the venue.
type Account interface {
	// GetBalance returns the available cash balance in dollars.
	GetBalance(ctx context.Context) (float64, error)

	// GetPositions returns every nonzero position.
	GetPositions(ctx context.Context) ([]domain.Position, error)

	// GetOrders returns orders filtered by status. An empty status returns all.
	GetOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)

	// CreateOrder submits a limit order and returns the venue order ID.
	// Never retried: the idempotency token guards duplicate submission.
	CreateOrder(ctx context.Context, spec domain.OrderSpec) (string, error)
}
