package ports

import (
	"context"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// Notifier presents a finished cycle to the operator.
type Notifier interface {
	NotifyCycle(ctx context.Context, report domain.CycleReport) error
}
