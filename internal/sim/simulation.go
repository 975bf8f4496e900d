// Package sim wires together the order books, event queue, agents,
// fundamental process, and output writers into one simulation run.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aehmttw/marketsim/internal/agent"
	"github.com/aehmttw/marketsim/internal/config"
	"github.com/aehmttw/marketsim/internal/domain"
	"github.com/aehmttw/marketsim/internal/engine"
	"github.com/aehmttw/marketsim/internal/eventlog"
	"github.com/aehmttw/marketsim/internal/fundamental"
	"github.com/aehmttw/marketsim/internal/latency"
	"github.com/aehmttw/marketsim/internal/orderbook"
	"github.com/aehmttw/marketsim/internal/output"
	"github.com/aehmttw/marketsim/internal/stats"
)

// defaultSnapshotDepth is the top-N captured when a snapshot request
// passes a non-positive depth.
const defaultSnapshotDepth = 5

// agentState is the per-agent ledger Simulation mutates directly;
// Agent itself holds only strategy bookkeeping.
type agentState struct {
	balance     decimal.Decimal
	shares      map[string]int64
	sharePrices map[string]decimal.Decimal
}

// Simulation owns every book, the event queue, the agent population,
// and the fundamental process, and drives the event loop described in
// the main-loop contract: synthesize market data on an empty queue,
// otherwise pop and run the next event until runtime is exceeded.
type Simulation struct {
	cfg *config.Document
	log *zap.SugaredLogger

	books      map[string]*orderbook.Book
	symbolList []string

	queue       *engine.EventQueue
	fundamental *fundamental.Fundamental

	agents    []*agent.Agent
	latencies []latency.Function
	states    []agentState

	orderSymbol map[domain.OrderID]string

	now int64

	stats      *stats.Table
	collectors map[string]*output.Collector
	logWriter  *eventlog.Writer

	counterAgents map[string]bool // names eligible for order-counter columns
}

// New builds a Simulation from a validated config document. cfg.Seed
// (1 when zero) seeds every deterministic RNG stream the run uses
// (fundamental, agent latencies, agent algorithms, order ids).
func New(cfg *config.Document, logWriter *eventlog.Writer, log *zap.SugaredLogger) (*Simulation, error) {
	s := &Simulation{
		cfg:           cfg,
		log:           log,
		books:         make(map[string]*orderbook.Book),
		queue:         engine.NewEventQueue(),
		orderSymbol:   make(map[domain.OrderID]string),
		stats:         stats.NewTable(),
		collectors:    make(map[string]*output.Collector),
		logWriter:     logWriter,
		counterAgents: make(map[string]bool),
	}

	for sym := range cfg.Symbols {
		s.symbolList = append(s.symbolList, sym)
	}
	sort.Strings(s.symbolList)
	for _, sym := range s.symbolList {
		s.books[sym] = orderbook.New(sym, domain.Price(cfg.Symbols[sym]))
		s.collectors[sym] = output.NewCollector(sym)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	// Order ids are written into the event log, so they are drawn from
	// a seeded stream to keep two runs of one config byte-identical.
	uuid.SetRand(rand.New(rand.NewSource(seed)))
	if cfg.Fundamental != nil {
		fc := cfg.Fundamental
		s.fundamental = fundamental.New(fc.Kappa, fc.Mean, fc.Shock, fc.Prob, seed)
	} else {
		s.fundamental = fundamental.New(0, 0, 0, 0, seed)
	}

	if err := s.buildAgents(seed); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Simulation) buildAgents(seed int64) error {
	var streamSeed int64 = seed
	nextSeed := func() int64 {
		streamSeed++
		return streamSeed*2654435761 + seed
	}

	for _, spec := range s.cfg.Agents {
		count := spec.Count
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			name := spec.Name
			if count > 1 {
				name = fmt.Sprintf("%s%d", spec.Name, i)
			}

			idx := domain.AgentIndex(len(s.agents))
			startPrice := domain.Price(s.cfg.Symbols[spec.Symbol])

			latFn, err := agent.BuildLatency(spec.Latency, spec.LatencyArgs, nextSeed())
			if err != nil {
				return fmt.Errorf("agent %s: %w", name, err)
			}
			algoRand := rand.New(rand.NewSource(nextSeed()))
			algo, err := agent.BuildAlgorithm(spec.Algorithm, spec.AlgorithmArgs, startPrice, algoRand)
			if err != nil {
				return fmt.Errorf("agent %s: %w", name, err)
			}
			behavior, err := agent.BuildBehavior(spec.Type, spec.TypeArgs)
			if err != nil {
				return fmt.Errorf("agent %s: %w", name, err)
			}

			a := agent.New(idx, name, spec.Name, spec.Symbol, algo, behavior, nextSeed())
			a.AllowShort = spec.TypeArgs.AllowShort

			sharesCopy := make(map[string]int64, len(spec.Shares))
			pricesCopy := make(map[string]decimal.Decimal, len(spec.Shares))
			for sym, n := range spec.Shares {
				sharesCopy[sym] = n
				pricesCopy[sym] = domain.Price(s.cfg.Symbols[sym])
			}

			s.agents = append(s.agents, a)
			s.latencies = append(s.latencies, latFn)
			s.states = append(s.states, agentState{
				balance:     domain.Price(spec.Balance),
				shares:      sharesCopy,
				sharePrices: pricesCopy,
			})
			s.stats.Register(idx, name)
			if len(name) == 0 || name[0] != '_' {
				s.counterAgents[name] = true
			}

			// Every agent may self-schedule its first wakeup at
			// construction (self-scheduling families like
			// IntervalTrader/PoissonTrader/SnapshotArbitrage push their
			// own EventAgentWakeup here; reactive families no-op).
			behavior.OnWakeup(a, s, 0)
		}
	}
	return nil
}

// --- agent.World ---

func (s *Simulation) Now() int64 { return s.now }

func (s *Simulation) Balance(idx domain.AgentIndex) decimal.Decimal {
	return s.states[idx].balance
}

func (s *Simulation) Shares(idx domain.AgentIndex, symbol string) int64 {
	return s.states[idx].shares[symbol]
}

func (s *Simulation) BBO(symbol string) (bid, ask decimal.Decimal, bidOK, askOK bool) {
	b, bOK, a, aOK := s.books[symbol].BBO()
	return b, a, bOK, aOK
}

func (s *Simulation) LastTradePrice(symbol string) decimal.Decimal {
	return s.books[symbol].LastTradePrice
}

func (s *Simulation) FundamentalValue(t float64) float64 {
	return s.fundamental.Value(t)
}

func (s *Simulation) Submit(owner domain.AgentIndex, side domain.Side, symbol string, qty int64, price decimal.Decimal) domain.OrderID {
	order := &domain.Order{
		ID:         domain.NewOrderID(),
		Owner:      owner,
		Side:       side,
		Symbol:     symbol,
		Residual:   qty,
		Price:      domain.RoundPrice(price),
		SubmitTime: s.now,
	}
	s.orderSymbol[order.ID] = symbol
	s.stats.For(owner).RecordSent()
	s.scheduleArrival(owner, symbol, order)
	return order.ID
}

func (s *Simulation) Cancel(owner domain.AgentIndex, target domain.OrderID) {
	symbol, ok := s.orderSymbol[target]
	if !ok {
		return
	}
	cancel := &domain.Order{
		ID:         target,
		Owner:      owner,
		Symbol:     symbol,
		SubmitTime: s.now,
		IsCancel:   true,
		CancelID:   target,
	}
	s.scheduleArrival(owner, symbol, cancel)
}

func (s *Simulation) scheduleArrival(owner domain.AgentIndex, symbol string, order *domain.Order) {
	lat := s.latencies[owner].Sample()
	fireTime := s.now + int64(math.Round(lat))
	s.queue.Push(&domain.Event{
		Time:   fireTime,
		Type:   domain.EventOrderSubmission,
		Symbol: symbol,
		Order:  order,
	})
}

func (s *Simulation) ScheduleWakeup(owner domain.AgentIndex, at int64) {
	s.queue.Push(&domain.Event{Time: at, Type: domain.EventAgentWakeup, Target: owner})
}

func (s *Simulation) RequestSnapshot(owner domain.AgentIndex, symbol string, depth int, at int64) {
	if depth <= 0 {
		depth = defaultSnapshotDepth
	}
	s.queue.Push(&domain.Event{
		Time:          at,
		Type:          domain.EventSnapshotRequest,
		Symbol:        symbol,
		Target:        owner,
		SnapshotDepth: depth,
	})
}

// logw is a nil-safe wrapper so a Simulation built without a logger
// (as in tests) never has to special-case every call site.
func (s *Simulation) logw(msg string, kv ...interface{}) {
	if s.log != nil {
		s.log.Infow(msg, kv...)
	}
}

// --- run loop ---

// Run executes the event loop to completion: on an empty queue it
// synthesizes a market-data broadcast per book at the current virtual
// time; otherwise it pops and runs the next event, stopping once a
// popped event's time exceeds maxRuntime.
func (s *Simulation) Run(maxRuntime int64) error {
	s.logw("simulation starting", "runtime", maxRuntime, "symbols", s.symbolList, "agents", len(s.agents))
	if s.logWriter != nil {
		if err := s.logWriter.Write(&domain.Event{Time: s.now, Type: domain.EventSimStart}); err != nil {
			return fmt.Errorf("write event log: %w", err)
		}
	}
	s.seedStartBroadcast()

	for {
		if s.queue.Len() == 0 {
			if !s.synthesizeBroadcast() {
				break
			}
			continue
		}
		e := s.queue.Pop()
		if e.Time > maxRuntime {
			break
		}
		s.now = e.Time
		if s.logWriter != nil {
			if err := s.logWriter.Write(e); err != nil {
				return fmt.Errorf("write event log: %w", err)
			}
		}
		if err := s.dispatch(e); err != nil {
			return err
		}
	}
	if s.logWriter != nil {
		if err := s.logWriter.Write(&domain.Event{Time: s.now, Type: domain.EventSimEnd}); err != nil {
			return fmt.Errorf("write event log: %w", err)
		}
	}
	s.logw("simulation complete", "finalTime", s.now, "eventsLogged", s.loggedCount())
	return nil
}

func (s *Simulation) loggedCount() uint64 {
	if s.logWriter == nil {
		return 0
	}
	return s.logWriter.Count()
}

// seedStartBroadcast delivers a synthetic zero-amount trade at t=0 for
// every book, at its starting price, so agents that react only to
// market data have an initial price to anchor on.
func (s *Simulation) seedStartBroadcast() {
	for _, sym := range s.symbolList {
		book := s.books[sym]
		trade := domain.Trade{Symbol: sym, Price: book.LastTradePrice, Amount: 0, Time: 0}
		s.broadcast(trade)
	}
}

// synthesizeBroadcast resolves an empty-queue stall: it rebroadcasts
// each book's last trade price at the current time, and if that still
// produces no events (every agent is in cooldown), advances virtual
// time to the earliest agent cooldown expiry. Returns false if no
// agent will ever wake (nothing left to do).
func (s *Simulation) synthesizeBroadcast() bool {
	for _, sym := range s.symbolList {
		book := s.books[sym]
		trade := domain.Trade{Symbol: sym, Price: book.LastTradePrice, Amount: 0, Time: s.now}
		s.broadcast(trade)
	}
	if s.queue.Len() > 0 {
		return true
	}
	next := int64(math.MaxInt64)
	found := false
	for _, a := range s.agents {
		if a.OrderBlockTime > s.now && a.OrderBlockTime < next {
			next = a.OrderBlockTime
			found = true
		}
	}
	if !found {
		return false
	}
	s.now = next
	return true
}

func (s *Simulation) dispatch(e *domain.Event) error {
	switch e.Type {
	case domain.EventOrderSubmission:
		return s.handleArrival(e.Symbol, e.Order, e.Time)
	case domain.EventOrderQueued:
		return s.admit(e.Symbol, e.Order)
	case domain.EventMarketData:
		s.agents[e.Target].Behavior.OnData(s.agents[e.Target], s, *e.Trade, e.Time)
	case domain.EventSnapshotRequest:
		s.handleSnapshotRequest(e)
	case domain.EventSnapshotResponse:
		s.agents[e.Target].Behavior.OnSnapshot(s.agents[e.Target], s, *e.SnapshotView, e.Time)
	case domain.EventAgentWakeup:
		s.agents[e.Target].Behavior.OnWakeup(s.agents[e.Target], s, e.Time)
	case domain.EventSimStart, domain.EventSimEnd:
		// bookend markers only; no simulation semantics.
	}
	return nil
}

// handleArrival implements single-order-per-tick admission: admit
// immediately if the book is free, otherwise defer into a queued slot
// that always admits when it fires.
func (s *Simulation) handleArrival(symbol string, order *domain.Order, fireTime int64) error {
	book := s.books[symbol]
	admitTime, deferred := book.NextAdmissionTime(fireTime)
	order.ReceiveTime = fireTime
	order.ProcessTime = admitTime
	if deferred {
		s.queue.Push(&domain.Event{Time: admitTime, Type: domain.EventOrderQueued, Symbol: symbol, Order: order})
		return nil
	}
	return s.admit(symbol, order)
}

func (s *Simulation) admit(symbol string, order *domain.Order) error {
	book := s.books[symbol]

	if order.IsCancel {
		if _, ok := book.Cancel(order.CancelID); ok {
			s.stats.For(order.Owner).RecordCanceled()
			s.agents[order.Owner].Canceled++
		}
		return nil
	}

	trades := book.Admit(order)
	for _, t := range trades {
		s.applyTrade(t, order.ID)
	}
	if order.Residual > 0 {
		s.stats.For(order.Owner).RecordResting()
	}
	if err := book.AssertInvariants(); err != nil {
		s.logw("invariant violation", "symbol", symbol, "order", order.ID, "error", err)
		return fmt.Errorf("invariant violation on %s after admitting %s: %w", symbol, order.ID, err)
	}
	s.capturePoint(symbol, order)
	return nil
}

// applyTrade folds one match into cash/shares, stats, and per-agent
// bookkeeping. incomingID is the order that was just admitted and
// triggered this trade; its own standing count is settled once by the
// caller after every trade from this admission has been applied, not
// here, so it is excluded from the resting-side settlement below.
func (s *Simulation) applyTrade(t *domain.Trade, incomingID domain.OrderID) {
	t.Process(s)
	s.stats.For(t.Buyer).RecordFill(s.agents[t.Seller].Group, t.Price, true)
	s.stats.For(t.Seller).RecordFill(s.agents[t.Buyer].Group, t.Price, false)

	buyResidual := s.residualOf(t.Symbol, t.BuyOrderID)
	sellResidual := s.residualOf(t.Symbol, t.SellOrderID)
	if buyResidual == 0 && t.BuyOrderID != incomingID {
		s.stats.For(t.Buyer).RecordFilled()
	}
	if sellResidual == 0 && t.SellOrderID != incomingID {
		s.stats.For(t.Seller).RecordFilled()
	}

	s.agents[t.Buyer].NoteMatched(t.BuyOrderID, buyResidual)
	s.agents[t.Seller].NoteMatched(t.SellOrderID, sellResidual)
	s.broadcast(*t)
}

// residualOf looks up an order's current residual, used only to tell
// NoteMatched whether the fill fully consumed the order. A missing
// order (already fully removed from the book) is treated as residual
// zero.
func (s *Simulation) residualOf(symbol string, id domain.OrderID) int64 {
	book := s.books[symbol]
	if book == nil {
		return 0
	}
	return book.ResidualOf(id)
}

// ApplyFill implements domain.AgentBook: it transfers cash and shares
// between the two counterparties of a processed Trade.
func (s *Simulation) ApplyFill(owner, counterparty domain.AgentIndex, symbol string, amount int64, price decimal.Decimal, isBuy bool) {
	st := &s.states[owner]
	if st.shares == nil {
		st.shares = make(map[string]int64)
	}
	if st.sharePrices == nil {
		st.sharePrices = make(map[string]decimal.Decimal)
	}
	cost := price.Mul(decimal.NewFromInt(amount))
	if isBuy {
		st.balance = st.balance.Sub(cost)
		st.shares[symbol] += amount
	} else {
		st.balance = st.balance.Add(cost)
		st.shares[symbol] -= amount
	}
	st.sharePrices[symbol] = price
}

// broadcast fans a Trade out to every agent, subject to each agent's
// own cooldown: the market-data event is delivered only if
// trade.time + sampled_latency exceeds the agent's order_block_time;
// otherwise it is dropped.
func (s *Simulation) broadcast(t domain.Trade) {
	trade := t
	for i, a := range s.agents {
		l := s.latencies[i].Sample()
		fireTime := t.Time + int64(math.Round(l))
		if fireTime <= a.OrderBlockTime {
			continue
		}
		s.queue.Push(&domain.Event{
			Time:   fireTime,
			Type:   domain.EventMarketData,
			Symbol: trade.Symbol,
			Target: domain.AgentIndex(i),
			Trade:  &trade,
		})
	}
}

func (s *Simulation) handleSnapshotRequest(e *domain.Event) {
	view := s.books[e.Symbol].Snapshot(e.SnapshotDepth)
	lat := s.latencies[e.Target].Sample()
	fireTime := e.Time + int64(math.Round(lat))
	s.queue.Push(&domain.Event{
		Time:         fireTime,
		Type:         domain.EventSnapshotResponse,
		Symbol:       e.Symbol,
		Target:       e.Target,
		SnapshotView: &view,
		RequestTime:  e.Time,
	})
}

// capturePoint appends one DataPoint per admitted non-cancel order.
func (s *Simulation) capturePoint(symbol string, order *domain.Order) {
	book := s.books[symbol]
	bid, bidOK, ask, askOK := book.BBO()
	gap := decimal.NewFromInt(-1)
	if bidOK && askOK {
		gap = ask.Sub(bid)
	}

	agents := make([]output.AgentSnapshot, len(s.agents))
	for i, a := range s.agents {
		st := s.states[i]
		shares := st.shares[symbol]
		netWorth := st.balance
		for sym, n := range st.shares {
			netWorth = netWorth.Add(st.sharePrices[sym].Mul(decimal.NewFromInt(n)))
		}
		agents[i] = output.AgentSnapshot{
			Name:           a.Name,
			Cash:           st.balance,
			Shares:         shares,
			NetWorth:       netWorth,
			OrdersSent:     a.Sent,
			OrdersMatched:  a.Matched,
			OrdersCanceled: a.Canceled,
		}
	}

	s.collectors[symbol].Append(output.DataPoint{
		Time:      order.ProcessTime,
		Price:     book.LastTradePrice,
		BookSize:  book.TotalResidual(),
		Gap:       gap,
		QueueSize: order.ProcessTime - book.LastUnqueueTime,
		Agents:    agents,
	})
	book.LastUnqueueTime = order.ReceiveTime
}

// Collector returns the accumulated data-point history for symbol.
func (s *Simulation) Collector(symbol string) *output.Collector {
	return s.collectors[symbol]
}

// Stats returns the end-of-run per-agent summary rows, in declaration
// order.
func (s *Simulation) Stats() []stats.Row {
	return s.stats.Rows()
}

// CounterAgents reports which agent names are eligible for the
// per-agent order-counter columns (names not beginning with "_").
func (s *Simulation) CounterAgents() map[string]bool {
	return s.counterAgents
}

// Symbols returns the run's declared symbols in stable order.
func (s *Simulation) Symbols() []string {
	return s.symbolList
}
