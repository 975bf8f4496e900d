// Package output captures the per-admission time series and renders it
// as a flat CSV row stream. The end-of-run per-agent stats live in
// package stats.
package output

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// AgentSnapshot is one agent's state at the moment a DataPoint was
// captured, scoped to the symbol the owning book trades.
type AgentSnapshot struct {
	Name     string
	Cash     decimal.Decimal
	Shares   int64
	NetWorth decimal.Decimal

	OrdersSent     int64
	OrdersMatched  int64
	OrdersCanceled int64
}

// DataPoint is appended once per admitted non-cancel order.
type DataPoint struct {
	Time      int64
	Price     decimal.Decimal
	BookSize  int64
	Gap       decimal.Decimal // -1 when either side of the book is empty
	QueueSize int64
	Agents    []AgentSnapshot
}

// Collector accumulates one book's DataPoint history and renders it.
// Agent order within Agents must be stable (declaration order) across
// every appended point; Append does not itself enforce that.
type Collector struct {
	Symbol string
	Points []DataPoint
}

// NewCollector creates an empty collector for one book.
func NewCollector(symbol string) *Collector {
	return &Collector{Symbol: symbol}
}

// Append records one DataPoint.
func (c *Collector) Append(p DataPoint) {
	c.Points = append(c.Points, p)
}

// Volatility returns the standard deviation of Price over every point
// in [t-window, t], scanning backward from the point at index i.
func (c *Collector) Volatility(i int, window int64) float64 {
	t := c.Points[i].Time
	var prices []float64
	for j := i; j >= 0; j-- {
		if t-c.Points[j].Time > window {
			break
		}
		f, _ := c.Points[j].Price.Float64()
		prices = append(prices, f)
	}
	if len(prices) < 2 {
		return 0
	}
	var mean float64
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))
	var variance float64
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(prices))
	return math.Sqrt(variance)
}

// WriteCSV renders every DataPoint as a row. orderCounterAgents lists
// the agent names eligible for the Orders/Sent|Matched|Canceled
// columns — names beginning with "_" are excluded there by the caller,
// but still appear in the cash/shares/netWorth columns.
func WriteCSV(path string, c *Collector, window int64, orderCounterAgents map[string]bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(c.Points) == 0 {
		return nil
	}

	header := []string{"time", "price", "bookSize", "gap", "volatility", "queueSize"}
	for _, a := range c.Points[0].Agents {
		header = append(header, "cash/"+a.Name)
	}
	for _, a := range c.Points[0].Agents {
		header = append(header, "shares/"+a.Name)
	}
	for _, a := range c.Points[0].Agents {
		header = append(header, "netWorth/"+a.Name)
	}
	for _, a := range c.Points[0].Agents {
		if !orderCounterAgents[a.Name] {
			continue
		}
		header = append(header,
			a.Name+" Orders/Sent",
			a.Name+" Orders/Matched",
			a.Name+" Orders/Canceled",
		)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, p := range c.Points {
		row := []string{
			strconv.FormatInt(p.Time, 10),
			p.Price.String(),
			strconv.FormatInt(p.BookSize, 10),
			p.Gap.String(),
			strconv.FormatFloat(c.Volatility(i, window), 'f', -1, 64),
			strconv.FormatInt(p.QueueSize, 10),
		}
		for _, a := range p.Agents {
			row = append(row, a.Cash.String())
		}
		for _, a := range p.Agents {
			row = append(row, strconv.FormatInt(a.Shares, 10))
		}
		for _, a := range p.Agents {
			row = append(row, a.NetWorth.String())
		}
		for _, a := range p.Agents {
			if !orderCounterAgents[a.Name] {
				continue
			}
			row = append(row,
				strconv.FormatInt(a.OrdersSent, 10),
				strconv.FormatInt(a.OrdersMatched, 10),
				strconv.FormatInt(a.OrdersCanceled, 10),
			)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
