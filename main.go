package main

import (
	"fmt"
	"os"

	"remindly/config"
	"remindly/utils"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "remindly",
	Short: "Task reminder backend",
	Long: `remindly serves the task and reminder API, emails reminders ahead of
task due dates and exposes admin reporting over the same store.

Running it without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			config.LoadEnv(envFile)
		} else {
			config.LoadEnv()
		}
		if err := utils.InitLogger(utils.GetEnvAsBool("LOG_DEVELOPMENT", false)); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		utils.InitValidator()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.SyncLogger()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default .env)")
	rootCmd.AddCommand(serveCmd, setupIndexesCmd, sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
