package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/resqlink/cmd/cli/ask"
	"github.com/myrjola/resqlink/cmd/cli/inspect"
	"github.com/myrjola/resqlink/cmd/cli/ops"
	"github.com/spf13/cobra"
	"os"
)

func init() {
	// .env is optional.
	_ = godotenv.Load()
	rootCmd.AddGroup(inspect.Group)
	rootCmd.AddCommand(inspect.Snapshot, inspect.Rank)
	rootCmd.AddGroup(ops.Group)
	rootCmd.AddCommand(ops.CaseStatus, ops.VerifyTip, ops.ReviewRedemption, ops.ReviewReport, ops.Award)
	rootCmd.AddGroup(ask.Group)
	rootCmd.AddCommand(ask.Ask)
}

var rootCmd = &cobra.Command{
	Use:          "resqlink-cli",
	Long:         `Command line utilities for the RESQLINK operator dashboard`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
