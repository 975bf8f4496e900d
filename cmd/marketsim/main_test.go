package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aehmttw/marketsim/internal/config"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Document{
		Runtime: 1500,
		Symbols: map[string]float64{"ABC": 100},
		Seed:    9,
		Agents: []config.AgentSpec{
			{
				Name:      "zi",
				Count:     4,
				Symbol:    "ABC",
				Balance:   50000,
				Shares:    map[string]int64{"ABC": 50},
				Type:      "poisson",
				TypeArgs:  config.TypeArgs{Rate: 0.1},
				Algorithm: "zi",
				AlgorithmArgs: config.AlgorithmArgs{
					MaxPos: 10, Variance: 9, OffsetMin: -1, OffsetMax: 1,
				},
				Latency:     "linear",
				LatencyArgs: config.LatencyArgs{Min: 1, Max: 2},
			},
		},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunThenReplayProducesMatchingDigest(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	outDir := filepath.Join(dir, "out")

	require.NoError(t, runScenario(configPath, outDir))

	require.FileExists(t, filepath.Join(outDir, "events.jsonl"))
	require.FileExists(t, filepath.Join(outDir, "ABC.csv"))
	require.FileExists(t, filepath.Join(outDir, "stats.txt"))

	require.NoError(t, replayScenario(outDir))
}
