package ports

import (
	"context"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// OddsSource reads sportsbook moneylines. sport is the feed's sport key,
// e.g. basketball_nba.
type OddsSource interface {
	FetchOdds(ctx context.Context, sport string) ([]domain.ReferenceOdds, error)
}
