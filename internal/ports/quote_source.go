package ports

import (
	"context"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// QuoteSource reads prediction-market quotes from the venue.
type QuoteSource interface {
	// FetchQuotes returns every open market in a series, with Game left
	// unresolved.
	FetchQuotes(ctx context.Context, series string) ([]domain.MarketQuote, error)

	// FetchQuote returns the current quote for one symbol.
	FetchQuote(ctx context.Context, symbol string) (domain.MarketQuote, error)
}
