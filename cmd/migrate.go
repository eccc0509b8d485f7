package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecitizenpay/internal/bootstrap"
	"ecitizenpay/internal/config"
)

func migrateCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payment tables",
		Long: `Create or update the transactions and payment_attempts tables.

Only the DB_* settings are read, so this can run before M-Pesa credentials
are configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := config.LoadDatabaseOnly()
			if err != nil {
				return err
			}
			db, err := config.NewDatabase(dbCfg)
			if err != nil {
				return err
			}
			if err := bootstrap.Migrate(db); err != nil {
				return err
			}
			logger.Info("Schema migration completed", zap.String("driver", dbCfg.Driver))
			return nil
		},
	}
}
