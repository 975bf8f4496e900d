package sim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aehmttw/marketsim/internal/config"
	"github.com/aehmttw/marketsim/internal/eventlog"
)

func smallConfig() *config.Document {
	return &config.Document{
		Runtime: 2000,
		Symbols: map[string]float64{"ABC": 100},
		Seed:    42,
		Agents: []config.AgentSpec{
			{
				Name:    "zi",
				Count:   6,
				Symbol:  "ABC",
				Balance: 100000,
				Shares:  map[string]int64{"ABC": 100},
				Type:    "poisson",
				TypeArgs: config.TypeArgs{
					Rate: 0.05,
				},
				Algorithm: "zi",
				AlgorithmArgs: config.AlgorithmArgs{
					MaxPos:    20,
					Variance:  25,
					OffsetMin: -2,
					OffsetMax: 2,
				},
				Latency: "linear",
				LatencyArgs: config.LatencyArgs{
					Min: 1,
					Max: 3,
				},
			},
			{
				Name:      "mm",
				Symbol:    "ABC",
				Balance:   100000,
				Shares:    map[string]int64{"ABC": 100},
				Type:      "basicmarketmaker",
				Algorithm: "simplemarketmaker",
				AlgorithmArgs: config.AlgorithmArgs{
					Distance: 1,
					Qty:      5,
				},
				Latency: "normal",
				LatencyArgs: config.LatencyArgs{
					Mean:      1,
					Deviation: 1,
				},
			},
		},
	}
}

func runOnce(t *testing.T, logPath string) *Simulation {
	t.Helper()
	cfg := smallConfig()

	var w *eventlog.Writer
	if logPath != "" {
		var err error
		w, err = eventlog.NewWriter(logPath)
		require.NoError(t, err)
		defer w.Close()
	}

	s, err := New(cfg, w, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(cfg.Runtime))
	return s
}

func TestDeterministicReplaySameSeedSameDigest(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.jsonl")
	p2 := filepath.Join(dir, "b.jsonl")

	runOnce(t, p1)
	runOnce(t, p2)

	d1, err := eventlog.DigestFile(p1)
	require.NoError(t, err)
	d2, err := eventlog.DigestFile(p2)
	require.NoError(t, err)
	require.Equal(t, d1, d2, "identical config+seed must produce identical digests")
}

func TestConservationOfSharesAndCash(t *testing.T) {
	s := runOnce(t, "")

	var totalShares int64
	var totalCash float64
	for _, st := range s.states {
		totalShares += st.shares["ABC"]
		f, _ := st.balance.Float64()
		totalCash += f
	}

	var wantShares int64
	var wantCash float64
	for _, spec := range smallConfig().Agents {
		count := spec.Count
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			wantShares += spec.Shares["ABC"]
			wantCash += spec.Balance
		}
	}

	require.Equal(t, wantShares, totalShares, "share conservation violated")
	// Cash only moves between agents on a fill; the sum must be
	// unchanged up to floating-point noise from the Float64 conversion.
	require.InDelta(t, wantCash, totalCash, 1e-6, "cash conservation violated")
}

func TestBooksRemainNonCrossedThroughoutRun(t *testing.T) {
	s := runOnce(t, "")
	for sym, book := range s.books {
		require.NoError(t, book.AssertInvariants(), "book %s failed invariants at end of run", sym)
	}
}

func TestRunProducesOutputDataPoints(t *testing.T) {
	s := runOnce(t, "")
	c := s.Collector("ABC")
	require.NotEmpty(t, c.Points, "expected at least one captured data point over a 2000-tick run")
}

func TestOutputFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "events.jsonl")
	runOnce(t, p)

	r, err := eventlog.NewReader(p)
	require.NoError(t, err)
	defer r.Close()
	events, err := r.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, events, "expected at least one logged event")
}
