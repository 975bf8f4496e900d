// Package agent hosts the strategy abstractions consulted by the
// simulation: Algorithm variants turn market context into order
// intents, and Agent variants decide when to consult their algorithm.
package agent

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/domain"
)

// Intent is either a new order or a cancellation of a previously
// submitted one; an Algorithm emits a batch of these per invocation.
type Intent struct {
	Cancel   bool
	TargetID domain.OrderID

	Side  domain.Side
	Qty   int64
	Price decimal.Decimal
}

// Context is the market view an Algorithm consults to produce Intents.
// It is read-only; algorithms never mutate it.
type Context struct {
	Symbol    string
	Time      int64
	LastPrice decimal.Decimal

	BestBid   decimal.Decimal
	BidOK     bool
	BestAsk   decimal.Decimal
	AskOK     bool

	Fundamental float64

	// PriceHistory is a recent trade-price window, oldest first, for
	// algorithms that need a moving average.
	PriceHistory []decimal.Decimal

	// Position is the host agent's current share count in Symbol.
	Position int64

	Rand *rand.Rand
}

func (c Context) avgHistory() decimal.Decimal {
	if len(c.PriceHistory) == 0 {
		return c.LastPrice
	}
	sum := decimal.Zero
	for _, p := range c.PriceHistory {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(c.PriceHistory))))
}

// Algorithm is consulted by a hosting Agent to produce order intents.
type Algorithm interface {
	GetOrders(ctx Context) []Intent
}

// FixedPrice always submits the same (side, qty, price).
type FixedPrice struct {
	Side  domain.Side
	Qty   int64
	Price decimal.Decimal
}

func (a *FixedPrice) GetOrders(ctx Context) []Intent {
	return []Intent{{Side: a.Side, Qty: a.Qty, Price: a.Price}}
}

// perturbKind selects the distribution RandomPrice multiplies the last
// price by.
type perturbKind int8

const (
	perturbNormal perturbKind = iota
	perturbLinear
	perturbLognormal
)

// RandomPrice covers random-normal, random-linear, and random-lognormal:
// price = last_price * perturbation; qty uniform in [Qmin, Qmax]; side
// is a fair coin unless BuyChance is set.
type RandomPrice struct {
	Kind      perturbKind
	Mean, Dev float64 // normal/lognormal perturbation params
	Min, Max  float64 // linear perturbation bounds
	Qmin, Qmax int64
	BuyChance  float64 // 0 means fair coin
}

func NewRandomNormal(mean, dev float64, qmin, qmax int64, buyChance float64) *RandomPrice {
	return &RandomPrice{Kind: perturbNormal, Mean: mean, Dev: dev, Qmin: qmin, Qmax: qmax, BuyChance: buyChance}
}

func NewRandomLinear(min, max float64, qmin, qmax int64, buyChance float64) *RandomPrice {
	return &RandomPrice{Kind: perturbLinear, Min: min, Max: max, Qmin: qmin, Qmax: qmax, BuyChance: buyChance}
}

func NewRandomLognormal(mean, dev float64, qmin, qmax int64, buyChance float64) *RandomPrice {
	return &RandomPrice{Kind: perturbLognormal, Mean: mean, Dev: dev, Qmin: qmin, Qmax: qmax, BuyChance: buyChance}
}

func (a *RandomPrice) perturbation(r *rand.Rand) float64 {
	switch a.Kind {
	case perturbLinear:
		return r.Float64()*(a.Max-a.Min) + a.Min
	case perturbLognormal:
		return math.Exp(r.NormFloat64()*a.Dev + a.Mean)
	default:
		return r.NormFloat64()*a.Dev + a.Mean
	}
}

func (a *RandomPrice) GetOrders(ctx Context) []Intent {
	price := domain.RoundPrice(ctx.LastPrice.Mul(decimal.NewFromFloat(a.perturbation(ctx.Rand))))
	qty := a.Qmin
	if a.Qmax > a.Qmin {
		qty += ctx.Rand.Int63n(a.Qmax - a.Qmin + 1)
	}
	side := domain.Buy
	chance := a.BuyChance
	if chance == 0 {
		chance = 0.5
	}
	if ctx.Rand.Float64() >= chance {
		side = domain.Sell
	}
	return []Intent{{Side: side, Qty: qty, Price: price}}
}

// Threshold buys iff price <= BuyThreshold, sells iff price >=
// SellThreshold, else emits nothing.
type Threshold struct {
	BuyThreshold, SellThreshold decimal.Decimal
	Qty                         int64
}

func (a *Threshold) GetOrders(ctx Context) []Intent {
	if ctx.LastPrice.LessThanOrEqual(a.BuyThreshold) {
		return []Intent{{Side: domain.Buy, Qty: a.Qty, Price: ctx.LastPrice}}
	}
	if ctx.LastPrice.GreaterThanOrEqual(a.SellThreshold) {
		return []Intent{{Side: domain.Sell, Qty: a.Qty, Price: ctx.LastPrice}}
	}
	return nil
}

// MeanReversion buys below and sells above the host's recorded average
// by a fractional band.
type MeanReversion struct {
	Band float64
	Qty  int64
}

func (a *MeanReversion) GetOrders(ctx Context) []Intent {
	avg := ctx.avgHistory()
	lower := avg.Mul(decimal.NewFromFloat(1 - a.Band))
	upper := avg.Mul(decimal.NewFromFloat(1 + a.Band))
	if ctx.LastPrice.LessThan(lower) {
		return []Intent{{Side: domain.Buy, Qty: a.Qty, Price: ctx.LastPrice}}
	}
	if ctx.LastPrice.GreaterThan(upper) {
		return []Intent{{Side: domain.Sell, Qty: a.Qty, Price: ctx.LastPrice}}
	}
	return nil
}

// SimpleMarketMaker quotes distance ticks inside its own last
// executed buy/sell, canceling its previous pair first, and only if
// the resulting quote does not cross itself.
type SimpleMarketMaker struct {
	Distance decimal.Decimal
	Qty      int64

	lastBuy, lastSell decimal.Decimal
	outstanding       []domain.OrderID
}

func NewSimpleMarketMaker(distance decimal.Decimal, qty int64, startPrice decimal.Decimal) *SimpleMarketMaker {
	return &SimpleMarketMaker{Distance: distance, Qty: qty, lastBuy: startPrice, lastSell: startPrice}
}

func (a *SimpleMarketMaker) GetOrders(ctx Context) []Intent {
	var intents []Intent
	for _, id := range a.outstanding {
		intents = append(intents, Intent{Cancel: true, TargetID: id})
	}
	a.outstanding = nil

	buy := a.lastBuy.Add(a.Distance)
	sell := a.lastSell.Sub(a.Distance)
	if buy.GreaterThanOrEqual(sell) {
		return intents
	}
	intents = append(intents,
		Intent{Side: domain.Buy, Qty: a.Qty, Price: buy},
		Intent{Side: domain.Sell, Qty: a.Qty, Price: sell},
	)
	return intents
}

// NoteFill lets the host tell the maker where its last buy/sell filled,
// re-anchoring future quotes.
func (a *SimpleMarketMaker) NoteFill(side domain.Side, price decimal.Decimal) {
	if side == domain.Buy {
		a.lastBuy = price
	} else {
		a.lastSell = price
	}
}

// NoteSubmitted records an order id so the next invocation cancels it.
func (a *SimpleMarketMaker) NoteSubmitted(id domain.OrderID) {
	a.outstanding = append(a.outstanding, id)
}

// Keyframe is one (time, price) anchor of a FixedMarketMaker's
// piecewise-linear target curve.
type Keyframe struct {
	Time  int64
	Price decimal.Decimal
}

// FixedMarketMaker follows a linear-interpolated price curve and, each
// invocation, quotes a spread around the curve plus a self-matched
// pair at the curve price — the self-match forces the trade tape to
// the target even with no other participants.
type FixedMarketMaker struct {
	Keyframes []Keyframe
	Spread    decimal.Decimal
	Qty       int64

	outstanding []domain.OrderID
}

func (a *FixedMarketMaker) targetPrice(t int64) decimal.Decimal {
	kf := a.Keyframes
	if len(kf) == 0 {
		return decimal.Zero
	}
	if t <= kf[0].Time {
		return kf[0].Price
	}
	if t >= kf[len(kf)-1].Time {
		return kf[len(kf)-1].Price
	}
	for i := 1; i < len(kf); i++ {
		if t <= kf[i].Time {
			span := kf[i].Time - kf[i-1].Time
			if span == 0 {
				return kf[i].Price
			}
			frac := decimal.NewFromInt(t - kf[i-1].Time).Div(decimal.NewFromInt(span))
			return kf[i-1].Price.Add(kf[i].Price.Sub(kf[i-1].Price).Mul(frac))
		}
	}
	return kf[len(kf)-1].Price
}

func (a *FixedMarketMaker) GetOrders(ctx Context) []Intent {
	var intents []Intent
	for _, id := range a.outstanding {
		intents = append(intents, Intent{Cancel: true, TargetID: id})
	}
	a.outstanding = nil

	p := a.targetPrice(ctx.Time)
	half := a.Spread.Div(decimal.NewFromInt(2))
	intents = append(intents,
		Intent{Side: domain.Buy, Qty: a.Qty, Price: p.Sub(half)},
		Intent{Side: domain.Sell, Qty: a.Qty, Price: p.Add(half)},
		Intent{Side: domain.Buy, Qty: a.Qty, Price: p},
		Intent{Side: domain.Sell, Qty: a.Qty, Price: p},
	)
	return intents
}

func (a *FixedMarketMaker) NoteSubmitted(id domain.OrderID) {
	a.outstanding = append(a.outstanding, id)
}

// FundamentalMarketMaker ladders quotes around the latent fundamental
// value, only emitting levels that would improve the current best on
// that side.
type FundamentalMarketMaker struct {
	Spread, TickSpread decimal.Decimal
	TickCount          int
	Qty                int64
}

func (a *FundamentalMarketMaker) GetOrders(ctx Context) []Intent {
	p := domain.Price(ctx.Fundamental)
	var intents []Intent
	for i := 0; i < a.TickCount; i++ {
		offset := a.Spread.Add(a.TickSpread.Mul(decimal.NewFromInt(int64(i))))
		buyPrice := p.Sub(offset)
		sellPrice := p.Add(offset)
		if !ctx.BidOK || buyPrice.GreaterThan(ctx.BestBid) {
			intents = append(intents, Intent{Side: domain.Buy, Qty: a.Qty, Price: buyPrice})
		}
		if !ctx.AskOK || sellPrice.LessThan(ctx.BestAsk) {
			intents = append(intents, Intent{Side: domain.Sell, Qty: a.Qty, Price: sellPrice})
		}
	}
	return intents
}

// ZeroIntelligence submits a single one-share order priced off a
// private-value curve plus a uniform offset, canceling its previous
// order first.
type ZeroIntelligence struct {
	Value      *PrivateValue
	OffsetMin  float64
	OffsetMax  float64

	outstanding domain.OrderID
	hasOutstanding bool
}

func NewZeroIntelligence(v *PrivateValue, offsetMin, offsetMax float64) *ZeroIntelligence {
	return &ZeroIntelligence{Value: v, OffsetMin: offsetMin, OffsetMax: offsetMax}
}

func (a *ZeroIntelligence) GetOrders(ctx Context) []Intent {
	var intents []Intent
	if a.hasOutstanding {
		intents = append(intents, Intent{Cancel: true, TargetID: a.outstanding})
		a.hasOutstanding = false
	}

	isBuy := ctx.Rand.Float64() < 0.5
	side := domain.Sell
	if isBuy {
		side = domain.Buy
	}
	value := a.Value.Value(ctx.Position, isBuy)
	offset := ctx.Rand.Float64()*(a.OffsetMax-a.OffsetMin) + a.OffsetMin
	price := domain.RoundPrice(value.Add(decimal.NewFromFloat(offset)))

	intents = append(intents, Intent{Side: side, Qty: 1, Price: price})
	return intents
}

// NoteSubmitted records the order id this invocation's single new
// order was minted as, so the next invocation cancels it.
func (a *ZeroIntelligence) NoteSubmitted(id domain.OrderID) {
	a.outstanding = id
	a.hasOutstanding = true
}

// StaleQuoteArbitrage compares a previously captured (possibly stale)
// book snapshot against the current fundamental and counter-trades any
// level mispriced by more than Threshold.
type StaleQuoteArbitrage struct {
	Threshold decimal.Decimal
	Qty       int64

	Snapshot domain.BookView
}

func (a *StaleQuoteArbitrage) GetOrders(ctx Context) []Intent {
	fair := domain.Price(ctx.Fundamental)
	var intents []Intent
	for _, lvl := range a.Snapshot.Sell {
		if lvl.Price.Sub(fair).GreaterThan(a.Threshold) {
			continue
		}
		if fair.Sub(lvl.Price).GreaterThan(a.Threshold) {
			intents = append(intents, Intent{Side: domain.Buy, Qty: a.Qty, Price: lvl.Price})
		}
	}
	for _, lvl := range a.Snapshot.Buy {
		if fair.Sub(lvl.Price).GreaterThan(a.Threshold) {
			continue
		}
		if lvl.Price.Sub(fair).GreaterThan(a.Threshold) {
			intents = append(intents, Intent{Side: domain.Sell, Qty: a.Qty, Price: lvl.Price})
		}
	}
	return intents
}
