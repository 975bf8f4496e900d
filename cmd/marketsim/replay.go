package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aehmttw/marketsim/internal/config"
	"github.com/aehmttw/marketsim/internal/eventlog"
	"github.com/aehmttw/marketsim/internal/sim"
)

func newReplayCommand() *cobra.Command {
	var runDir string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a saved run's configuration and verify the event log is byte-identical",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runDir == "" {
				return fmt.Errorf("--run-dir is required")
			}
			return replayScenario(runDir)
		},
	}
	cmd.Flags().StringVar(&runDir, "run-dir", "", "path to a run directory produced by the run command")
	return cmd
}

func replayScenario(runDir string) error {
	log := newLogger()
	defer log.Sync()

	configPath := filepath.Join(runDir, "config.json")
	originalLogPath := filepath.Join(runDir, "events.jsonl")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read saved config: %w", err)
	}
	var cfg config.Document
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse saved config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("saved config is no longer valid: %w", err)
	}

	originalDigest, err := eventlog.DigestFile(originalLogPath)
	if err != nil {
		return fmt.Errorf("digest original event log: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "marketsim-replay-*")
	if err != nil {
		return fmt.Errorf("create replay temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	replayLogPath := filepath.Join(tmpDir, "events.jsonl")
	replayLog, err := eventlog.NewWriter(replayLogPath)
	if err != nil {
		return fmt.Errorf("open replay event log: %w", err)
	}

	s, err := sim.New(&cfg, replayLog, log)
	if err != nil {
		return fmt.Errorf("rebuild simulation: %w", err)
	}
	if err := s.Run(cfg.Runtime); err != nil {
		replayLog.Close()
		return fmt.Errorf("replay run: %w", err)
	}
	if err := replayLog.Close(); err != nil {
		return fmt.Errorf("close replay event log: %w", err)
	}

	replayDigest, err := eventlog.DigestFile(replayLogPath)
	if err != nil {
		return fmt.Errorf("digest replay event log: %w", err)
	}

	if originalDigest == replayDigest {
		fmt.Printf("Deterministic replay verified: %s\n", replayDigest)
		return nil
	}

	log.Errorw("replay digest mismatch", "original", originalDigest, "replay", replayDigest)
	return fmt.Errorf("replay digest mismatch: original=%s replay=%s", originalDigest, replayDigest)
}
