// Package stats aggregates each agent's trading activity into the
// end-of-run summary row: fill counts, average prices, and a
// per-counterparty-group breakdown.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/domain"
)

// CounterpartyStats is one (agent, counterparty-group) cell of the
// breakdown: how many fills were made against that group, split by
// the reporting agent's own side.
type CounterpartyStats struct {
	Group string

	BuyCount     int64
	BuyPriceSum  decimal.Decimal
	SellCount    int64
	SellPriceSum decimal.Decimal
}

func (c *CounterpartyStats) avgBuy() decimal.Decimal {
	if c.BuyCount == 0 {
		return decimal.Zero
	}
	return c.BuyPriceSum.Div(decimal.NewFromInt(c.BuyCount))
}

func (c *CounterpartyStats) avgSell() decimal.Decimal {
	if c.SellCount == 0 {
		return decimal.Zero
	}
	return c.SellPriceSum.Div(decimal.NewFromInt(c.SellCount))
}

// Count returns the total number of fills against this group.
func (c *CounterpartyStats) Count() int64 {
	return c.BuyCount + c.SellCount
}

// AgentStats accumulates one agent's lifetime activity. Record* methods
// are the only mutators; everything else is a derived read.
type AgentStats struct {
	Name string

	OrdersSent     int64
	OrdersMatched  int64
	OrdersCanceled int64
	OrdersStanding int64

	matchPriceSum decimal.Decimal
	matchCount    int64
	buyPriceSum   decimal.Decimal
	buyCount      int64
	sellPriceSum  decimal.Decimal
	sellCount     int64

	counterparties map[string]*CounterpartyStats
}

// NewAgentStats creates an empty accumulator for one agent.
func NewAgentStats(name string) *AgentStats {
	return &AgentStats{Name: name, counterparties: make(map[string]*CounterpartyStats)}
}

// RecordSent increments the sent-order counter.
func (a *AgentStats) RecordSent() {
	a.OrdersSent++
}

// RecordCanceled increments the canceled-order counter. A cancel only
// ever succeeds against a still-resting order, so it also leaves the
// standing count.
func (a *AgentStats) RecordCanceled() {
	a.OrdersCanceled++
	a.OrdersStanding--
}

// RecordResting marks one order as now resting in the book (admitted
// without being fully filled).
func (a *AgentStats) RecordResting() {
	a.OrdersStanding++
}

// RecordFilled marks one previously-resting order as fully filled and
// removed from the book.
func (a *AgentStats) RecordFilled() {
	a.OrdersStanding--
}

// RecordFill folds one side of a Trade into this agent's history: the
// overall/buy/sell price sums and the counterparty-group breakdown
// keyed by the other side's group name.
func (a *AgentStats) RecordFill(counterpartyGroup string, price decimal.Decimal, isBuy bool) {
	a.OrdersMatched++
	a.matchPriceSum = a.matchPriceSum.Add(price)
	a.matchCount++

	cp, ok := a.counterparties[counterpartyGroup]
	if !ok {
		cp = &CounterpartyStats{Group: counterpartyGroup}
		a.counterparties[counterpartyGroup] = cp
	}

	if isBuy {
		a.buyPriceSum = a.buyPriceSum.Add(price)
		a.buyCount++
		cp.BuyCount++
		cp.BuyPriceSum = cp.BuyPriceSum.Add(price)
	} else {
		a.sellPriceSum = a.sellPriceSum.Add(price)
		a.sellCount++
		cp.SellCount++
		cp.SellPriceSum = cp.SellPriceSum.Add(price)
	}
}

func avg(sum decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(n))
}

// AvgMatchPrice is the mean price across every fill, buy or sell.
func (a *AgentStats) AvgMatchPrice() decimal.Decimal { return avg(a.matchPriceSum, a.matchCount) }

// AvgBuyPrice is the mean price across buy-side fills only.
func (a *AgentStats) AvgBuyPrice() decimal.Decimal { return avg(a.buyPriceSum, a.buyCount) }

// AvgSellPrice is the mean price across sell-side fills only.
func (a *AgentStats) AvgSellPrice() decimal.Decimal { return avg(a.sellPriceSum, a.sellCount) }

// Counterparties returns the per-group breakdown sorted by group name,
// so the summary row is stable across runs.
func (a *AgentStats) Counterparties() []*CounterpartyStats {
	out := make([]*CounterpartyStats, 0, len(a.counterparties))
	for _, cp := range a.counterparties {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// Row is the flattened end-of-run summary line for one agent.
type Row struct {
	Name           string
	AvgMatchPrice  decimal.Decimal
	AvgBuyPrice    decimal.Decimal
	AvgSellPrice   decimal.Decimal
	Sent           int64
	Matched        int64
	Canceled       int64
	Standing       int64
	Counterparties []CounterpartyRow
}

// CounterpartyRow is one (count, buy_count, avg_buy_price, sell_count,
// avg_sell_price) tuple for a single counterparty group.
type CounterpartyRow struct {
	Group        string
	Count        int64
	BuyCount     int64
	AvgBuyPrice  decimal.Decimal
	SellCount    int64
	AvgSellPrice decimal.Decimal
}

// Row flattens the accumulator into its summary form.
func (a *AgentStats) Row() Row {
	r := Row{
		Name:          a.Name,
		AvgMatchPrice: a.AvgMatchPrice(),
		AvgBuyPrice:   a.AvgBuyPrice(),
		AvgSellPrice:  a.AvgSellPrice(),
		Sent:          a.OrdersSent,
		Matched:       a.OrdersMatched,
		Canceled:      a.OrdersCanceled,
		Standing:      a.OrdersStanding,
	}
	for _, cp := range a.Counterparties() {
		r.Counterparties = append(r.Counterparties, CounterpartyRow{
			Group:        cp.Group,
			Count:        cp.Count(),
			BuyCount:     cp.BuyCount,
			AvgBuyPrice:  cp.avgBuy(),
			SellCount:    cp.SellCount,
			AvgSellPrice: cp.avgSell(),
		})
	}
	return r
}

// Table accumulates AgentStats across a run, keyed by agent index so
// iteration order matches declaration order.
type Table struct {
	order []domain.AgentIndex
	stats map[domain.AgentIndex]*AgentStats
}

// NewTable creates an empty stats table.
func NewTable() *Table {
	return &Table{stats: make(map[domain.AgentIndex]*AgentStats)}
}

// Register adds an agent to the table in declaration order. Calling it
// twice for the same index is a no-op.
func (t *Table) Register(idx domain.AgentIndex, name string) *AgentStats {
	if s, ok := t.stats[idx]; ok {
		return s
	}
	s := NewAgentStats(name)
	t.stats[idx] = s
	t.order = append(t.order, idx)
	return s
}

// For returns the accumulator for idx; panics if never Registered.
func (t *Table) For(idx domain.AgentIndex) *AgentStats {
	s, ok := t.stats[idx]
	if !ok {
		panic("stats: agent index not registered")
	}
	return s
}

// Rows returns every agent's summary row in declaration order.
func (t *Table) Rows() []Row {
	rows := make([]Row, 0, len(t.order))
	for _, idx := range t.order {
		rows = append(rows, t.stats[idx].Row())
	}
	return rows
}
