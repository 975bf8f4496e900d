// Command marketsim runs the agent-based limit-order-market simulator
// from a configuration document, replays a prior run to verify
// determinism, and prints a saved run's summary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:   "marketsim",
		Short: "Discrete-event simulator for a continuous double-auction limit-order market",
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newReplayCommand())
	root.AddCommand(newReportCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		// zap itself failing to construct is unrecoverable; fall back to
		// a bare print rather than a broken logger downstream.
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	return l.Sugar()
}
