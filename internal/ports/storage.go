package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// StatsStore persists the daily risk counters.
type StatsStore interface {
	// Load returns the last saved counters, or zero stats when none exist.
	Load(ctx context.Context) (domain.DailyStats, error)
	Save(ctx context.Context, stats domain.DailyStats) error
}

// Journal keeps a local history of comparisons and order decisions.
type Journal interface {
	// SaveComparisons upserts one cycle's comparison rows.
	SaveComparisons(ctx context.Context, at time.Time, rows []domain.Comparison) error

	SaveOrder(ctx context.Context, order domain.OrderRecord) error

	// RecentOrders returns the newest orders first.
	RecentOrders(ctx context.Context, limit int) ([]domain.OrderRecord, error)

	// Close releases the database handle.
	Close() error
}
