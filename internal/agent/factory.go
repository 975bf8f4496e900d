package agent

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/config"
	"github.com/aehmttw/marketsim/internal/domain"
	"github.com/aehmttw/marketsim/internal/latency"
)

// BuildLatency maps a config latency tag to a concrete Function, seeded
// from the run's master RNG stream.
func BuildLatency(tag string, args config.LatencyArgs, seed int64) (latency.Function, error) {
	switch tag {
	case "linear":
		return latency.NewLinear(args.Min, args.Max, seed), nil
	case "normal":
		return latency.NewNormal(args.Mean, args.Deviation, seed), nil
	default:
		return nil, fmt.Errorf("unknown latency tag %q", tag)
	}
}

// BuildAlgorithm maps a config algorithm tag to a concrete Algorithm.
// startPrice seeds any algorithm that needs an initial anchor (the
// market makers); r seeds any algorithm with its own randomness (the
// ZI private-value draw).
func BuildAlgorithm(tag string, args config.AlgorithmArgs, startPrice decimal.Decimal, r *rand.Rand) (Algorithm, error) {
	switch tag {
	case "fixedprice":
		side := domain.Buy
		if args.Side == "sell" {
			side = domain.Sell
		}
		return &FixedPrice{Side: side, Qty: args.Qty, Price: domain.Price(args.Price)}, nil
	case "randomnormal":
		return NewRandomNormal(args.Mean, args.Dev, args.Qmin, args.Qmax, args.BuyChance), nil
	case "randomlognormal":
		return NewRandomLognormal(args.Mean, args.Dev, args.Qmin, args.Qmax, args.BuyChance), nil
	case "randomlinear":
		return NewRandomLinear(args.Min, args.Max, args.Qmin, args.Qmax, args.BuyChance), nil
	case "buylowsellhigh":
		return &Threshold{
			BuyThreshold:  domain.Price(args.BuyThreshold),
			SellThreshold: domain.Price(args.SellThreshold),
			Qty:           args.Qty,
		}, nil
	case "meanreversion":
		return &MeanReversion{Band: args.Band, Qty: args.Qty}, nil
	case "simplemarketmaker":
		return NewSimpleMarketMaker(domain.Price(args.Distance), args.Qty, startPrice), nil
	case "fixedmarketmaker":
		kfs := make([]Keyframe, len(args.Keyframes))
		for i, k := range args.Keyframes {
			kfs[i] = Keyframe{Time: k.Time, Price: domain.Price(k.Price)}
		}
		return &FixedMarketMaker{Keyframes: kfs, Spread: domain.Price(args.Spread), Qty: args.Qty}, nil
	case "fundamentalmarketmaker":
		return &FundamentalMarketMaker{
			Spread:     domain.Price(args.Spread),
			TickSpread: domain.Price(args.TickSpread),
			TickCount:  args.TickCount,
			Qty:        args.Qty,
		}, nil
	case "zi":
		pv := NewPrivateValue(args.MaxPos, args.Variance, r)
		return NewZeroIntelligence(pv, args.OffsetMin, args.OffsetMax), nil
	case "stalequotearbitrage":
		return &StaleQuoteArbitrage{Threshold: domain.Price(args.Threshold), Qty: args.Qty}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm tag %q", tag)
	}
}

// BuildBehavior maps a config agent type tag to a concrete Behavior.
func BuildBehavior(tag string, args config.TypeArgs) (Behavior, error) {
	switch tag {
	case "basic":
		return Reactive{}, nil
	case "canceling":
		return &CancelingReactive{
			OrderLifespan: args.OrderLifespan,
			OrderChance:   args.OrderChance,
			OrderCooldown: args.OrderCooldown,
		}, nil
	case "recording":
		return &HistoryRecording{
			CancelingReactive: CancelingReactive{
				OrderLifespan: args.OrderLifespan,
				OrderChance:   args.OrderChance,
				OrderCooldown: args.OrderCooldown,
			},
			TimeInterval: args.TimeInterval,
		}, nil
	case "basicmarketmaker":
		return BasicMarketMaker{}, nil
	case "regulartrading":
		return &IntervalTrader{Interval: args.Interval}, nil
	case "poisson":
		return &PoissonTrader{Rate: args.Rate}, nil
	case "stalequotearbitrage":
		return &SnapshotArbitrage{Interval: args.Interval, Depth: args.Depth}, nil
	default:
		return nil, fmt.Errorf("unknown agent type tag %q", tag)
	}
}
