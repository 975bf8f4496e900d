package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aehmttw/marketsim/internal/config"
	"github.com/aehmttw/marketsim/internal/eventlog"
	"github.com/aehmttw/marketsim/internal/output"
	"github.com/aehmttw/marketsim/internal/sim"
)

const defaultRunsDir = "runs"

func newRunCommand() *cobra.Command {
	var configPath, outDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation from a configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			if outDir == "" {
				outDir = filepath.Join(defaultRunsDir, fmt.Sprintf("run-%d", time.Now().UnixNano()))
			}
			return runScenario(configPath, outDir)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the run configuration document (JSON/YAML/TOML)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: runs/run-<timestamp>)")
	return cmd
}

// runScenario loads a config, executes the simulation, and writes the
// event log, per-symbol CSV output, and end-of-run stats into outDir.
func runScenario(configPath, outDir string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Errorw("configuration error", "error", err)
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := stashConfig(cfg, outDir); err != nil {
		return fmt.Errorf("stash config: %w", err)
	}

	logPath := filepath.Join(outDir, "events.jsonl")
	logWriter, err := eventlog.NewWriter(logPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	logClosed := false
	closeLog := func() error {
		if logClosed {
			return nil
		}
		logClosed = true
		return logWriter.Close()
	}
	defer closeLog()

	s, err := sim.New(cfg, logWriter, log)
	if err != nil {
		log.Errorw("could not build simulation", "error", err)
		return err
	}

	log.Infow("run starting", "config", configPath, "out", outDir)
	start := time.Now()
	if err := s.Run(cfg.Runtime); err != nil {
		log.Errorw("simulation run failed", "error", err)
		return err
	}
	elapsed := time.Since(start)

	if err := closeLog(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}

	for _, symbol := range s.Symbols() {
		csvPath := filepath.Join(outDir, symbol+".csv")
		if err := output.WriteCSV(csvPath, s.Collector(symbol), volatilityWindow(cfg), s.CounterAgents()); err != nil {
			return fmt.Errorf("write %s output: %w", symbol, err)
		}
	}

	statsPath := filepath.Join(outDir, "stats.txt")
	if err := writeStatsSummary(statsPath, s); err != nil {
		return fmt.Errorf("write stats summary: %w", err)
	}

	digest, err := eventlog.DigestFile(logPath)
	if err != nil {
		return fmt.Errorf("digest event log: %w", err)
	}

	fmt.Printf("Run complete in %v\n", elapsed)
	fmt.Printf("  Output:   %s\n", outDir)
	fmt.Printf("  Log hash: %s\n", digest)
	fmt.Printf("\n%s\n", renderStatsSummary(s))
	return nil
}

// volatilityWindow is the fixed lookback used to compute the CSV
// output's volatility column; there is no per-run override in the
// configuration document.
func volatilityWindow(cfg *config.Document) int64 {
	w := cfg.Runtime / 20
	if w < 1 {
		w = 1
	}
	return w
}

func stashConfig(cfg *config.Document, outDir string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "config.json"), data, 0o644)
}

func writeStatsSummary(path string, s *sim.Simulation) error {
	return os.WriteFile(path, []byte(renderStatsSummary(s)), 0o644)
}

func renderStatsSummary(s *sim.Simulation) string {
	out := "Agent summary:\n"
	for _, row := range s.Stats() {
		out += fmt.Sprintf(
			"  %-20s sent=%-6d matched=%-6d canceled=%-6d standing=%-6d avg=%-10s avgBuy=%-10s avgSell=%s\n",
			row.Name, row.Sent, row.Matched, row.Canceled, row.Standing,
			row.AvgMatchPrice.String(), row.AvgBuyPrice.String(), row.AvgSellPrice.String())
		for _, cp := range row.Counterparties {
			out += fmt.Sprintf(
				"    vs %-15s count=%-6d buyCount=%-6d avgBuy=%-10s sellCount=%-6d avgSell=%s\n",
				cp.Group, cp.Count, cp.BuyCount, cp.AvgBuyPrice.String(), cp.SellCount, cp.AvgSellPrice.String())
		}
	}
	return out
}
