package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fenwick-io/eventsched/config"
	"github.com/fenwick-io/eventsched/store"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the events table, its indexes, and the next two years of partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	return cmd
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(logLevel)

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.InitDB(ctx, db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	if err := store.EnsurePartitions(ctx, db, time.Now(), 730); err != nil {
		return fmt.Errorf("bootstrap partitions: %w", err)
	}
	log.Info("migration complete")
	return nil
}
