package main

import (
	"os"

	"yapper-points/pkg/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	liveFlagName      = "live"
	sslFlagName       = "ssl"
	sslVerifyFlagName = "ssl-verify"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool(liveFlagName, false, "Write ledger rows, checkpoints and tier records (default is a dry run)")
	runCmd.Flags().Bool(sslFlagName, false, "Require TLS to the database")
	runCmd.Flags().Bool(sslVerifyFlagName, false, "Require TLS and verify the database certificate")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one points pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		live, _ := cmd.Flags().GetBool(liveFlagName)
		ssl, _ := cmd.Flags().GetBool(sslFlagName)
		verify, _ := cmd.Flags().GetBool(sslVerifyFlagName)
		switch {
		case verify:
			cfg.Database.SSLMode = db.SSLVerifyFull
		case ssl:
			cfg.Database.SSLMode = db.SSLRequire
		}

		ctx := cmd.Context()
		e, stop, err := startEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer stop()

		summary, err := e.Orchestrator.Run(ctx, !live)
		if err != nil {
			zap.L().Error("points run failed", zap.Error(err))
			return err
		}

		if !live {
			return summary.WriteTable(os.Stdout)
		}
		return nil
	},
}
