package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	var runDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a saved run's end-of-run agent summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runDir == "" {
				return fmt.Errorf("--run-dir is required")
			}
			return printReport(runDir)
		},
	}
	cmd.Flags().StringVar(&runDir, "run-dir", "", "path to a run directory produced by the run command")
	return cmd
}

func printReport(runDir string) error {
	data, err := os.ReadFile(filepath.Join(runDir, "stats.txt"))
	if err != nil {
		return fmt.Errorf("read stats summary: %w", err)
	}
	fmt.Print(string(data))

	entries, err := os.ReadDir(runDir)
	if err != nil {
		return fmt.Errorf("list run directory: %w", err)
	}
	fmt.Println("\nOutput files:")
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".csv" {
			fmt.Printf("  %s\n", filepath.Join(runDir, e.Name()))
		}
	}
	return nil
}
