package agent

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/domain"
)

// World is the narrow view of the owning simulation an Agent needs:
// reading balances/quotes and submitting orders, cancels, wakeups, and
// snapshot requests, all addressed by AgentIndex rather than pointer.
type World interface {
	Now() int64
	Balance(idx domain.AgentIndex) decimal.Decimal
	Shares(idx domain.AgentIndex, symbol string) int64
	BBO(symbol string) (bid, ask decimal.Decimal, bidOK, askOK bool)
	LastTradePrice(symbol string) decimal.Decimal
	FundamentalValue(t float64) float64
	Submit(owner domain.AgentIndex, side domain.Side, symbol string, qty int64, price decimal.Decimal) domain.OrderID
	Cancel(owner domain.AgentIndex, id domain.OrderID)
	ScheduleWakeup(owner domain.AgentIndex, at int64)
	RequestSnapshot(owner domain.AgentIndex, symbol string, depth int, at int64)
}

// openOrder tracks one of this agent's live order ids for age-based
// auto-cancellation.
type openOrder struct {
	id         domain.OrderID
	submitTime int64
}

// Behavior decides when an Agent consults its Algorithm and how it
// reacts to the three event kinds Simulation may deliver.
type Behavior interface {
	OnData(a *Agent, w World, trade domain.Trade, t int64)
	OnWakeup(a *Agent, w World, t int64)
	OnSnapshot(a *Agent, w World, view domain.BookView, t int64)
}

// Agent is the common state every strategy shares: identity, the
// algorithm it consults, and the bookkeeping needed for overdraft
// guards and age-based cancellation. Behavior-specific state lives on
// the Behavior value itself.
type Agent struct {
	Index  domain.AgentIndex
	Name   string
	Group  string
	Symbol string

	Algorithm Algorithm
	Behavior  Behavior
	Rand      *rand.Rand

	// OrderBlockTime is the agent's self-imposed cooldown: market-data
	// events that would arrive at or before this time are dropped by
	// the simulation's broadcast fan-out rather than delivered.
	OrderBlockTime int64

	AllowShort bool // skip the overdraft guard entirely

	open []openOrder

	// Sent is incremented locally when an order is submitted. Matched
	// and Canceled are incremented by the owning World once a fill or
	// cancellation actually lands — cancels travel through the same
	// latency-delayed admission pipeline as orders, so the outcome is
	// not known at the moment the intent is issued.
	Sent, Matched, Canceled int64
}

// New constructs an Agent ready to be registered with a World.
func New(idx domain.AgentIndex, name, group, symbol string, algo Algorithm, behavior Behavior, seed int64) *Agent {
	return &Agent{
		Index:     idx,
		Name:      name,
		Group:     group,
		Symbol:    symbol,
		Algorithm: algo,
		Behavior:  behavior,
		Rand:      rand.New(rand.NewSource(seed)),
	}
}

// trackOrder records a newly submitted order for age-based cancellation
// and increments the sent counter.
func (a *Agent) trackOrder(id domain.OrderID, t int64) {
	a.open = append(a.open, openOrder{id: id, submitTime: t})
	a.Sent++
}

// forgetOrder drops bookkeeping for an order that is known to be gone
// (filled or canceled). It leaves the Matched and Canceled counters
// untouched.
func (a *Agent) forgetOrder(id domain.OrderID) {
	for i, o := range a.open {
		if o.id == id {
			a.open = append(a.open[:i], a.open[i+1:]...)
			return
		}
	}
}

// NoteMatched is called by the simulation when one of this agent's
// orders fills, fully or partially.
func (a *Agent) NoteMatched(id domain.OrderID, residual int64) {
	a.Matched++
	if residual == 0 {
		a.forgetOrder(id)
	}
}

// cancelOlderThan cancels every open order whose submit time is more
// than lifespan ticks before now.
func (a *Agent) cancelOlderThan(w World, now, lifespan int64) {
	var stale []domain.OrderID
	for _, o := range a.open {
		if now-o.submitTime > lifespan {
			stale = append(stale, o.id)
		}
	}
	for _, id := range stale {
		w.Cancel(a.Index, id)
		a.forgetOrder(id)
	}
}

// attemptSubmit applies the overdraft guard from the agent contract: a
// buy is refused if balance can't cover amount*last_price, a sell is
// refused if shares are insufficient. AllowShort skips the check
// entirely. Refusals are silent — the order is simply not sent.
func (a *Agent) attemptSubmit(w World, side domain.Side, qty int64, price decimal.Decimal) (domain.OrderID, bool) {
	if !a.AllowShort {
		if side == domain.Buy {
			cost := w.LastTradePrice(a.Symbol).Mul(decimal.NewFromInt(qty))
			if w.Balance(a.Index).LessThan(cost) {
				return domain.OrderID{}, false
			}
		} else {
			if w.Shares(a.Index, a.Symbol) < qty {
				return domain.OrderID{}, false
			}
		}
	}
	id := w.Submit(a.Index, side, a.Symbol, qty, price)
	a.trackOrder(id, w.Now())
	return id, true
}

// context builds the Algorithm view for the current instant.
func (a *Agent) context(w World, t int64, history []decimal.Decimal) Context {
	bid, ask, bidOK, askOK := w.BBO(a.Symbol)
	return Context{
		Symbol:       a.Symbol,
		Time:         t,
		LastPrice:    w.LastTradePrice(a.Symbol),
		BestBid:      bid,
		BidOK:        bidOK,
		BestAsk:      ask,
		AskOK:        askOK,
		Fundamental:  w.FundamentalValue(float64(t)),
		PriceHistory: history,
		Position:     w.Shares(a.Index, a.Symbol),
		Rand:         a.Rand,
	}
}

// consult runs the Algorithm and applies every resulting Intent.
func (a *Agent) consult(w World, t int64, history []decimal.Decimal) {
	for _, in := range a.Algorithm.GetOrders(a.context(w, t, history)) {
		if in.Cancel {
			w.Cancel(a.Index, in.TargetID)
			a.forgetOrder(in.TargetID)
			continue
		}
		if id, ok := a.attemptSubmit(w, in.Side, in.Qty, in.Price); ok {
			notifySubmitted(a.Algorithm, id)
		}
	}
}

// notifySubmitted tells algorithms that track their own outstanding
// order id (market makers, ZI) what id their new order received.
func notifySubmitted(algo Algorithm, id domain.OrderID) {
	switch v := algo.(type) {
	case *SimpleMarketMaker:
		v.NoteSubmitted(id)
	case *FixedMarketMaker:
		v.NoteSubmitted(id)
	case *ZeroIntelligence:
		v.NoteSubmitted(id)
	}
}

// Reactive submits on every market-data tick.
type Reactive struct{}

func (Reactive) OnData(a *Agent, w World, trade domain.Trade, t int64) {
	a.consult(w, t, nil)
}
func (Reactive) OnWakeup(a *Agent, w World, t int64)                       {}
func (Reactive) OnSnapshot(a *Agent, w World, view domain.BookView, t int64) {}

// CancelingReactive is Reactive plus auto-cancellation of stale orders,
// probabilistic submission, and a post-submission cooldown.
type CancelingReactive struct {
	OrderLifespan int64
	OrderChance   float64
	OrderCooldown int64
}

func (c *CancelingReactive) OnData(a *Agent, w World, trade domain.Trade, t int64) {
	a.cancelOlderThan(w, t, c.OrderLifespan)
	if a.Rand.Float64() >= c.OrderChance {
		return
	}
	a.consult(w, t, nil)
	a.OrderBlockTime = t + c.OrderCooldown
}
func (c *CancelingReactive) OnWakeup(a *Agent, w World, t int64)                       {}
func (c *CancelingReactive) OnSnapshot(a *Agent, w World, view domain.BookView, t int64) {}

// HistoryRecording is CancelingReactive plus a windowed trade-price
// history fed to mean-reversion-style algorithms.
type HistoryRecording struct {
	CancelingReactive
	TimeInterval int64

	history     []decimal.Decimal
	historyTime []int64
}

func (h *HistoryRecording) OnData(a *Agent, w World, trade domain.Trade, t int64) {
	h.history = append(h.history, trade.Price)
	h.historyTime = append(h.historyTime, t)
	cutoff := t - h.TimeInterval
	i := 0
	for i < len(h.historyTime) && h.historyTime[i] < cutoff {
		i++
	}
	h.history = h.history[i:]
	h.historyTime = h.historyTime[i:]

	a.cancelOlderThan(w, t, h.OrderLifespan)
	if a.Rand.Float64() >= h.OrderChance {
		return
	}
	a.consult(w, t, h.history)
	a.OrderBlockTime = t + h.OrderCooldown
}

// BasicMarketMaker reacts to every tick, delegating quote construction
// to a market-making Algorithm that tracks its own last buy/sell.
type BasicMarketMaker struct{}

func (BasicMarketMaker) OnData(a *Agent, w World, trade domain.Trade, t int64) {
	if mm, ok := a.Algorithm.(*SimpleMarketMaker); ok {
		if trade.Buyer == a.Index {
			mm.NoteFill(domain.Buy, trade.Price)
		} else if trade.Seller == a.Index {
			mm.NoteFill(domain.Sell, trade.Price)
		}
	}
	a.consult(w, t, nil)
}
func (BasicMarketMaker) OnWakeup(a *Agent, w World, t int64)                       {}
func (BasicMarketMaker) OnSnapshot(a *Agent, w World, view domain.BookView, t int64) {}

// IntervalTrader ignores market data and self-schedules every Interval
// ticks.
type IntervalTrader struct {
	Interval int64
}

func (it *IntervalTrader) OnData(a *Agent, w World, trade domain.Trade, t int64) {}
func (it *IntervalTrader) OnWakeup(a *Agent, w World, t int64) {
	a.consult(w, t, nil)
	w.ScheduleWakeup(a.Index, t+it.Interval)
}
func (it *IntervalTrader) OnSnapshot(a *Agent, w World, view domain.BookView, t int64) {}

// PoissonTrader self-schedules after an exponential(Rate) interval.
type PoissonTrader struct {
	Rate float64
}

func (p *PoissonTrader) OnData(a *Agent, w World, trade domain.Trade, t int64) {}
func (p *PoissonTrader) OnWakeup(a *Agent, w World, t int64) {
	a.consult(w, t, nil)
	u := a.Rand.Float64()
	for u <= 0 {
		u = a.Rand.Float64()
	}
	delta := int64(math.Round(-math.Log(u) / p.Rate))
	if delta < 1 {
		delta = 1
	}
	w.ScheduleWakeup(a.Index, t+delta)
}
func (p *PoissonTrader) OnSnapshot(a *Agent, w World, view domain.BookView, t int64) {}

// SnapshotArbitrage periodically requests a top-N snapshot; on the
// delayed response it hands the (now stale) view to a
// StaleQuoteArbitrage algorithm and submits its intents.
type SnapshotArbitrage struct {
	Interval int64
	Depth    int
}

func (s *SnapshotArbitrage) OnData(a *Agent, w World, trade domain.Trade, t int64) {}
func (s *SnapshotArbitrage) OnWakeup(a *Agent, w World, t int64) {
	w.RequestSnapshot(a.Index, a.Symbol, s.Depth, t)
	w.ScheduleWakeup(a.Index, t+s.Interval)
}
func (s *SnapshotArbitrage) OnSnapshot(a *Agent, w World, view domain.BookView, t int64) {
	if sq, ok := a.Algorithm.(*StaleQuoteArbitrage); ok {
		sq.Snapshot = view
	}
	a.consult(w, t, nil)
}
