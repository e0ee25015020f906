package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fenwick-io/eventsched/config"
	"github.com/fenwick-io/eventsched/store"
	"github.com/spf13/cobra"
)

func newCleanupCmd() *cobra.Command {
	var configPath string
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run a single manual retention sweep outside the cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(configPath, days)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	cmd.Flags().IntVar(&days, "days", 0, "retention lookback in days (defaults to the configured retention_days)")
	return cmd
}

func runCleanup(configPath string, days int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(logLevel)

	if days <= 0 {
		days = cfg.RetentionDays
	}

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	s := store.NewStore(db)
	cutoff := time.Now().AddDate(0, 0, -days)
	ctx := context.Background()

	var total int64
	for {
		deleted, err := s.DeleteTerminalBatch(ctx, cutoff, cfg.CleanupBatchSize)
		if err != nil {
			return fmt.Errorf("delete terminal batch: %w", err)
		}
		total += deleted
		if deleted < int64(cfg.CleanupBatchSize) {
			break
		}
	}
	log.Info("manual cleanup complete", "deleted", total, "cutoff", cutoff)
	return nil
}
