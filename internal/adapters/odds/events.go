package odds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

type eventDTO struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	CommenceTime string         `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Completed    *bool          `json:"completed"`
	Bookmakers   []bookmakerDTO `json:"bookmakers"`
}

type bookmakerDTO struct {
	Key     string      `json:"key"`
	Title   string      `json:"title"`
	Markets []marketDTO `json:"markets"`
}

type marketDTO struct {
	Key      string       `json:"key"`
	Outcomes []outcomeDTO `json:"outcomes"`
}

type outcomeDTO struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

// FetchOdds returns the h2h moneyline for every upcoming event of sportKey.
// Events without a usable two-way line are skipped.
func (c *Client) FetchOdds(ctx context.Context, sportKey string) ([]domain.ReferenceOdds, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	var events []eventDTO
	if err := c.get(ctx, c.oddsURL(sportKey), &events); err != nil {
		return nil, fmt.Errorf("odds.FetchOdds: %s: %w", sportKey, err)
	}

	out := make([]domain.ReferenceOdds, 0, len(events))
	for _, e := range events {
		home, away, ok := moneyline(e)
		if !ok {
			slog.Debug("odds: no h2h line", "event", e.ID, "home", e.HomeTeam, "away", e.AwayTeam)
			continue
		}

		ref, err := domain.NewReferenceOdds(domain.ReferenceOdds{
			EventID:      e.ID,
			Sport:        e.SportKey,
			HomeTeam:     e.HomeTeam,
			AwayTeam:     e.AwayTeam,
			HomeAmerican: home,
			AwayAmerican: away,
			Scheduled:    parseTime(e.CommenceTime),
			Status:       status(e),
		}, c.removeVig)
		if err != nil {
			slog.Debug("odds: bad line", "event", e.ID, "err", err)
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

// moneyline takes the first bookmaker that quotes both teams in h2h.
func moneyline(e eventDTO) (home, away int, ok bool) {
	for _, b := range e.Bookmakers {
		for _, m := range b.Markets {
			if m.Key != "h2h" {
				continue
			}
			var gotHome, gotAway bool
			for _, o := range m.Outcomes {
				if o.Price == nil {
					continue
				}
				switch o.Name {
				case e.HomeTeam:
					home, gotHome = int(*o.Price), true
				case e.AwayTeam:
					away, gotAway = int(*o.Price), true
				}
			}
			if gotHome && gotAway {
				return home, away, true
			}
		}
	}
	return 0, 0, false
}

func status(e eventDTO) string {
	if e.Completed != nil && *e.Completed {
		return "completed"
	}
	return "scheduled"
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
