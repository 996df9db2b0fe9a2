package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const configFlagName = "config"

var rootCmd = &cobra.Command{
	Use:           "points",
	Short:         "Yapper campaign points engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String(configFlagName, "", "Path to config file (defaults to ./config.yaml)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
