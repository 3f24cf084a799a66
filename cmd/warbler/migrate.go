package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/pkg/database"
	"github.com/d60-Lab/warbler/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := database.InitDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("schema migrated", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
