package main

import (
	"log/slog"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/delivery"
	"github.com/spf13/cobra"
)

var logLevel = slog.LevelInfo

// defaultBrokerBackoff governs the ingestion buffer's reconnect policy
// on startup; it is not consulted once a connection is established.
var defaultBrokerBackoff = eventsched.BackoffConfig{
	MaxRetries:          10,
	InitialInterval:     200 * time.Millisecond,
	MaxInterval:         30 * time.Second,
	Multiplier:          2,
	RandomizationFactor: 0.2,
}

// defaultBreakerConfig is shared by both delivery channels; a
// destination needs at least 10 requests in the rolling window before
// ReadyToTrip considers its failure ratio.
var defaultBreakerConfig = delivery.BreakerConfig{
	MaxRequests:       5,
	Interval:          time.Minute,
	Timeout:           30 * time.Second,
	FailureRatio:      0.5,
	MinRequestsToTrip: 10,
}

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "eventsched",
		Short: "eventsched runs the scheduled event delivery orchestrator",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logLevel = slog.LevelDebug
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newCleanupCmd())
	return cmd
}
