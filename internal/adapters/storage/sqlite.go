package storage

// sqlite.go: local journal of what each cycle saw and did.
//
//   - `comparisons`: one row per (cycle, symbol). Re-saving the same cycle
//     upserts instead of duplicating.
//   - `orders`: every placement decision, dry runs included.
//   - Prune at open: comparisons older than 14d, orders older than 90d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS comparisons (
    cycle_at   TEXT    NOT NULL,
    symbol     TEXT    NOT NULL,
    game_key   TEXT    NOT NULL,
    sport      TEXT    NOT NULL DEFAULT '',
    side_team  TEXT    NOT NULL DEFAULT '',
    quote_prob REAL    NOT NULL DEFAULT 0,
    ref_prob   REAL    NOT NULL DEFAULT 0,
    divergence REAL    NOT NULL DEFAULT 0,
    flagged    INTEGER NOT NULL DEFAULT 0,
    fuzzy      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (cycle_at, symbol)
);

CREATE TABLE IF NOT EXISTS orders (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT    NOT NULL,
    strategy    TEXT    NOT NULL,
    game_key    TEXT    NOT NULL,
    symbol      TEXT    NOT NULL,
    side        TEXT    NOT NULL,
    action      TEXT    NOT NULL,
    quantity    INTEGER NOT NULL,
    price_cents INTEGER NOT NULL,
    stake       REAL    NOT NULL DEFAULT 0,
    dry_run     INTEGER NOT NULL DEFAULT 0,
    reason      TEXT    NOT NULL DEFAULT '',
    created_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cmp_game   ON comparisons(game_key);
CREATE INDEX IF NOT EXISTS idx_orders_at  ON orders(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_gk  ON orders(game_key);
`

const (
	retentionComparisons = 14 * 24 * time.Hour
	retentionOrders      = 90 * 24 * time.Hour
	timeLayout           = time.RFC3339Nano
)

// SQLiteJournal implements ports.Journal on SQLite (pure Go, no CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the database at path, applies the
// schema and prunes old rows.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	j := &SQLiteJournal{db: db}
	j.pruneOld(context.Background(), time.Now())
	return j, nil
}

// SaveComparisons upserts the comparison rows of the cycle that started at at.
func (j *SQLiteJournal) SaveComparisons(ctx context.Context, at time.Time, rows []domain.Comparison) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveComparisons: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comparisons
			(cycle_at, symbol, game_key, sport, side_team, quote_prob, ref_prob,
			 divergence, flagged, fuzzy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cycle_at, symbol) DO UPDATE SET
			game_key   = excluded.game_key,
			sport      = excluded.sport,
			side_team  = excluded.side_team,
			quote_prob = excluded.quote_prob,
			ref_prob   = excluded.ref_prob,
			divergence = excluded.divergence,
			flagged    = excluded.flagged,
			fuzzy      = excluded.fuzzy
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveComparisons: prepare: %w", err)
	}
	defer stmt.Close()

	cycleAt := at.UTC().Format(timeLayout)
	for _, c := range rows {
		if _, err := stmt.ExecContext(ctx,
			cycleAt,
			c.Symbol,
			c.GameKey,
			c.Game.Sport,
			c.SideTeam,
			c.QuoteProb,
			c.RefProb,
			c.Divergence,
			boolInt(c.Flagged),
			boolInt(c.Fuzzy),
		); err != nil {
			return fmt.Errorf("storage.SaveComparisons: upsert %s: %w", c.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveComparisons: commit: %w", err)
	}
	return nil
}

// CountComparisons returns how many rows were stored for one cycle.
func (j *SQLiteJournal) CountComparisons(ctx context.Context, at time.Time) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comparisons WHERE cycle_at = ?`, at.UTC().Format(timeLayout),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage.CountComparisons: %w", err)
	}
	return n, nil
}

// SaveOrder appends one order decision.
func (j *SQLiteJournal) SaveOrder(ctx context.Context, o domain.OrderRecord) error {
	created := o.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := j.db.ExecContext(ctx, `
		INSERT INTO orders
			(order_id, strategy, game_key, symbol, side, action, quantity,
			 price_cents, stake, dry_run, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		string(o.Strategy),
		o.GameKey,
		o.Symbol,
		string(o.Side),
		string(o.Action),
		o.Quantity,
		o.PriceCents,
		o.Stake,
		boolInt(o.DryRun),
		o.Reason,
		created.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("storage.SaveOrder: %s: %w", o.Symbol, err)
	}
	return nil
}

// RecentOrders returns up to limit orders, newest first.
func (j *SQLiteJournal) RecentOrders(ctx context.Context, limit int) ([]domain.OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT order_id, strategy, game_key, symbol, side, action, quantity,
		       price_cents, stake, dry_run, reason, created_at
		FROM orders
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentOrders: query: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderRecord
	for rows.Next() {
		var o domain.OrderRecord
		var strategy, side, action, created string
		var dryRun int
		if err := rows.Scan(
			&o.ID,
			&strategy,
			&o.GameKey,
			&o.Symbol,
			&side,
			&action,
			&o.Quantity,
			&o.PriceCents,
			&o.Stake,
			&dryRun,
			&o.Reason,
			&created,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentOrders: scan row: %w", err)
		}
		o.Strategy = domain.Strategy(strategy)
		o.Side = domain.Side(side)
		o.Action = domain.Action(action)
		o.DryRun = dryRun == 1
		o.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// pruneOld drops rows past retention to keep the file small.
func (j *SQLiteJournal) pruneOld(ctx context.Context, now time.Time) {
	cutoffCmp := now.UTC().Add(-retentionComparisons).Format(timeLayout)
	cutoffOrders := now.UTC().Add(-retentionOrders).Format(timeLayout)
	j.db.ExecContext(ctx, `DELETE FROM comparisons WHERE cycle_at < ?`, cutoffCmp)
	j.db.ExecContext(ctx, `DELETE FROM orders WHERE created_at < ?`, cutoffOrders)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
