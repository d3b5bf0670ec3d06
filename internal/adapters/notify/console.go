package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const (
	maxCompactItems = 4
	historyRows     = 10
)

// OrderHistory supplies journaled orders for the table view.
type OrderHistory interface {
	RecentOrders(ctx context.Context, limit int) ([]domain.OrderRecord, error)
}

// Console implements ports.Notifier.
type Console struct {
	out     io.Writer
	table   bool
	history OrderHistory
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// WithHistory adds the journal's latest orders to the table view.
func (c *Console) WithHistory(h OrderHistory) *Console {
	c.history = h
	return c
}

// NotifyCycle prints the cycle summary in the configured mode.
func (c *Console) NotifyCycle(ctx context.Context, r domain.CycleReport) error {
	now := r.StartedAt.Format("15:04:05")
	if len(r.Comparisons) == 0 && len(r.Bundles) == 0 && len(r.Orders) == 0 {
		fmt.Fprintf(c.out, "[%s] no comparable games found%s\n", now, errorSuffix(r))
		return nil
	}

	if c.table {
		c.printFull(ctx, r)
	} else {
		c.printCompact(r)
	}
	return nil
}

// printCompact prints the essentials on one line.
func (c *Console) printCompact(r domain.CycleReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s bal $%.2f | cmp:%d flag:%d arb:%d ext:%d | orders:%d skip:%d",
		r.StartedAt.Format("15:04:05"), modeLabel(r.Live), r.Balance,
		len(r.Comparisons), r.Opportunities, len(r.Bundles), len(r.Extremes),
		len(r.Orders), r.Rejections)

	for i, o := range r.Orders {
		if i >= maxCompactItems {
			fmt.Fprintf(&sb, " | +%d more", len(r.Orders)-i)
			break
		}
		fmt.Fprintf(&sb, " | %s %s %s %d@%d¢", o.Strategy, o.Action, strings.ToUpper(string(o.Side)), o.Quantity, o.PriceCents)
	}
	sb.WriteString(errorSuffix(r))
	fmt.Fprintln(c.out, sb.String())
}

// printFull prints comparison, bundle and order tables.
func (c *Console) printFull(ctx context.Context, r domain.CycleReport) {
	fmt.Fprintf(c.out, "\n[%s] %s cycle in %s, balance $%.2f\n",
		r.StartedAt.Format("15:04:05"), modeLabel(r.Live), r.Duration.Round(time.Millisecond), r.Balance)

	if len(r.Comparisons) > 0 {
		c.printComparisons(r.Comparisons)
	}
	if len(r.Bundles) > 0 {
		c.printBundles(r.Bundles)
	}
	if len(r.Orders) > 0 {
		c.printOrders(r.Orders)
	}

	fmt.Fprintf(c.out, "  flagged:%d extremes:%d rejected:%d\n", r.Opportunities, len(r.Extremes), r.Rejections)
	for _, e := range r.Errors {
		fmt.Fprintf(c.out, "  ! %s\n", e)
	}
	c.printHistory(ctx)
	fmt.Fprintln(c.out)
}

// printHistory shows the latest journaled orders across runs.
func (c *Console) printHistory(ctx context.Context) {
	if c.history == nil {
		return
	}
	orders, err := c.history.RecentOrders(ctx, historyRows)
	if err != nil {
		fmt.Fprintf(c.out, "  ! history: %v\n", err)
		return
	}
	if len(orders) == 0 {
		return
	}

	fmt.Fprintln(c.out, "  recent orders:")
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Strategy", "Symbol", "Order", "Qty", "Price", "Mode")

	for _, o := range orders {
		mode := "live"
		if o.DryRun {
			mode = "dry-run"
		}
		table.Append(
			o.CreatedAt.Format("01-02 15:04"),
			string(o.Strategy),
			o.Symbol,
			fmt.Sprintf("%s %s", o.Action, strings.ToUpper(string(o.Side))),
			fmt.Sprintf("%d", o.Quantity),
			fmt.Sprintf("%d¢", o.PriceCents),
			mode,
		)
	}
	table.Render()
}

func (c *Console) printComparisons(rows []domain.Comparison) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Game", "Side", "Venue", "Ref", "Div", "Match", "")

	for _, cmp := range rows {
		match := "exact"
		if cmp.Fuzzy {
			match = "fuzzy"
		}
		flag := ""
		if cmp.Flagged {
			flag = "*"
		}
		table.Append(
			cmp.GameKey,
			cmp.SideTeam,
			fmt.Sprintf("%.1f%%", cmp.QuoteProb*100),
			fmt.Sprintf("%.1f%%", cmp.RefProb*100),
			fmt.Sprintf("%.1f", cmp.Divergence),
			match,
			flag,
		)
	}
	table.Render()
}

func (c *Console) printBundles(bundles []domain.ArbitrageBundle) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Game", "Home", "Away", "Sum", "Edge")

	for _, b := range bundles {
		table.Append(
			b.GameKey,
			fmt.Sprintf("%s %.2f", b.Game.Home, b.Home.Probability()),
			fmt.Sprintf("%s %.2f", b.Game.Away, b.Away.Probability()),
			fmt.Sprintf("%.3f", b.CombinedProb),
			fmt.Sprintf("%.1f%%", b.EdgePct),
		)
	}
	table.Render()
}

func (c *Console) printOrders(orders []domain.OrderRecord) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Strategy", "Symbol", "Order", "Qty", "Price", "Stake", "ID")

	for _, o := range orders {
		id := o.ID
		if o.Reason != "" {
			id += " (" + o.Reason + ")"
		}
		table.Append(
			string(o.Strategy),
			o.Symbol,
			fmt.Sprintf("%s %s", o.Action, strings.ToUpper(string(o.Side))),
			fmt.Sprintf("%d", o.Quantity),
			fmt.Sprintf("%d¢", o.PriceCents),
			fmt.Sprintf("$%.2f", o.Stake),
			id,
		)
	}
	table.Render()
}

func modeLabel(live bool) string {
	if live {
		return "LIVE"
	}
	return "DRY-RUN"
}

func errorSuffix(r domain.CycleReport) string {
	if len(r.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf(" | errors:%d", len(r.Errors))
}
