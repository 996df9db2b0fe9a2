package main

import (
	"yapper-points/services/ledger"
	"yapper-points/services/source"
	"yapper-points/services/tier"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const withSourceFlagName = "with-source"

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool(withSourceFlagName, false, "Also create the upstream tables (local development only)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the tables the engine owns",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		e, stop, err := startEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer stop()

		models := append(ledger.Models(), tier.Models()...)
		if withSource, _ := cmd.Flags().GetBool(withSourceFlagName); withSource {
			models = append(models, source.Models()...)
		}

		if err := e.DB.WithContext(cmd.Context()).AutoMigrate(models...); err != nil {
			return err
		}
		zap.L().Info("[DB] migration complete", zap.Int("models", len(models)))
		return nil
	},
}
