package agent

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/domain"
)

func TestThresholdBuysBelowAndSellsAbove(t *testing.T) {
	a := &Threshold{BuyThreshold: decimal.NewFromInt(90), SellThreshold: decimal.NewFromInt(110), Qty: 1}

	if got := a.GetOrders(Context{LastPrice: decimal.NewFromInt(85)}); len(got) != 1 || got[0].Side != domain.Buy {
		t.Fatalf("expected a buy below threshold, got %+v", got)
	}
	if got := a.GetOrders(Context{LastPrice: decimal.NewFromInt(120)}); len(got) != 1 || got[0].Side != domain.Sell {
		t.Fatalf("expected a sell above threshold, got %+v", got)
	}
	if got := a.GetOrders(Context{LastPrice: decimal.NewFromInt(100)}); len(got) != 0 {
		t.Fatalf("expected no order inside the band, got %+v", got)
	}
}

func TestSimpleMarketMakerCancelsPreviousPair(t *testing.T) {
	mm := &SimpleMarketMaker{Distance: decimal.NewFromInt(1), Qty: 10, lastBuy: decimal.NewFromInt(90), lastSell: decimal.NewFromInt(110)}
	first := mm.GetOrders(Context{})
	if len(first) != 2 {
		t.Fatalf("first call should have no cancels, got %d intents", len(first))
	}
	id := domain.NewOrderID()
	mm.NoteSubmitted(id)

	second := mm.GetOrders(Context{})
	if len(second) != 3 {
		t.Fatalf("second call should cancel + quote, got %d intents", len(second))
	}
	if !second[0].Cancel || second[0].TargetID != id {
		t.Fatalf("expected first intent to cancel %v, got %+v", id, second[0])
	}
}

func TestSimpleMarketMakerRefusesCrossedQuote(t *testing.T) {
	mm := &SimpleMarketMaker{Distance: decimal.NewFromInt(100), Qty: 1, lastBuy: decimal.NewFromInt(50), lastSell: decimal.NewFromInt(51)}
	got := mm.GetOrders(Context{})
	if len(got) != 0 {
		t.Fatalf("expected no quote when distance would cross, got %+v", got)
	}
}

func TestFixedMarketMakerInterpolatesKeyframes(t *testing.T) {
	mm := &FixedMarketMaker{
		Keyframes: []Keyframe{{Time: 0, Price: decimal.NewFromInt(100)}, {Time: 100, Price: decimal.NewFromInt(200)}},
		Spread:    decimal.NewFromInt(2),
		Qty:       1,
	}
	got := mm.targetPrice(50)
	if !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("interpolated price = %s, want 150", got)
	}
}

func TestFundamentalMarketMakerOnlyImprovesBest(t *testing.T) {
	mm := &FundamentalMarketMaker{Spread: decimal.NewFromInt(1), TickSpread: decimal.NewFromInt(1), TickCount: 1, Qty: 1}
	ctx := Context{Fundamental: 100, BestBid: decimal.NewFromInt(100), BidOK: true, BestAsk: decimal.NewFromInt(99), AskOK: true}
	got := mm.GetOrders(ctx)
	for _, in := range got {
		if in.Side == domain.Buy && in.Price.LessThanOrEqual(ctx.BestBid) {
			t.Fatalf("buy intent %+v does not improve best bid %s", in, ctx.BestBid)
		}
	}
}

func TestZeroIntelligenceCancelsPreviousOrder(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	zi := NewZeroIntelligence(NewPrivateValue(5, 1, r), -1, 1)
	first := zi.GetOrders(Context{Rand: r})
	if len(first) != 1 {
		t.Fatalf("first call should have no cancel, got %d intents", len(first))
	}
	zi.NoteSubmitted(domain.NewOrderID())
	second := zi.GetOrders(Context{Rand: r})
	if len(second) != 2 || !second[0].Cancel {
		t.Fatalf("second call should cancel then submit, got %+v", second)
	}
}

func TestPrivateValueDescending(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	pv := NewPrivateValue(4, 1, r)
	if len(pv.values) != 8 {
		t.Fatalf("expected 8 values, got %d", len(pv.values))
	}
	for i := 1; i < len(pv.values); i++ {
		if pv.values[i] > pv.values[i-1] {
			t.Fatalf("private value curve is not sorted descending: %v", pv.values)
		}
	}
}
