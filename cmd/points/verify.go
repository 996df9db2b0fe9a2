package main

import (
	"fmt"
	"strings"

	"yapper-points/services/ledger"

	"github.com/spf13/cobra"
)

const (
	walletFlagName  = "wallet"
	projectFlagName = "project"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().String(walletFlagName, "", "Wallet address")
	verifyCmd.Flags().Int64(projectFlagName, 0, "Project id (0 checks the global chain)")
	_ = verifyCmd.MarkFlagRequired(walletFlagName)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the hash chain of one wallet's ledger rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		wallet, _ := cmd.Flags().GetString(walletFlagName)
		project, _ := cmd.Flags().GetInt64(projectFlagName)

		scope := ledger.Global()
		if project != 0 {
			scope = ledger.ForProject(project)
		}

		e, stop, err := startEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer stop()

		n, ok, err := e.Store.VerifyChain(cmd.Context(), strings.ToLower(wallet), scope)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s %s: chain broken after %d rows", wallet, scope, n)
		}
		fmt.Printf("%s %s: %d rows verified\n", wallet, scope, n)
		return nil
	},
}
