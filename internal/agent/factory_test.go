package agent

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/config"
)

func TestBuildAlgorithmUnknownTagErrors(t *testing.T) {
	if _, err := BuildAlgorithm("nonsense", config.AlgorithmArgs{}, decimal.Zero, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected an error for an unknown algorithm tag")
	}
}

func TestBuildAlgorithmFixedPrice(t *testing.T) {
	algo, err := BuildAlgorithm("fixedprice", config.AlgorithmArgs{Side: "sell", Qty: 5, Price: 10}, decimal.Zero, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("BuildAlgorithm: %v", err)
	}
	fp, ok := algo.(*FixedPrice)
	if !ok {
		t.Fatalf("got %T, want *FixedPrice", algo)
	}
	if fp.Qty != 5 || !fp.Price.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected fixed price algorithm: %+v", fp)
	}
}

func TestBuildBehaviorUnknownTagErrors(t *testing.T) {
	if _, err := BuildBehavior("nonsense", config.TypeArgs{}); err == nil {
		t.Fatal("expected an error for an unknown type tag")
	}
}

func TestBuildLatencyUnknownTagErrors(t *testing.T) {
	if _, err := BuildLatency("nonsense", config.LatencyArgs{}, 1); err == nil {
		t.Fatal("expected an error for an unknown latency tag")
	}
}
