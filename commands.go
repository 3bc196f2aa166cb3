package main

import (
	"context"
	"fmt"
	"time"

	"remindly/config"
	"remindly/repository"
	"remindly/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var setupIndexesCmd = &cobra.Command{
	Use:   "setup-indexes",
	Short: "Create the MongoDB indexes used by remindly",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.RepositoryType != config.RepositoryMongo {
			return fmt.Errorf("setup-indexes needs REPOSITORY_TYPE=%s", config.RepositoryMongo)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		client, err := utils.ConnectMongo(ctx, cfg.Database.ClientOptions())
		if err != nil {
			return err
		}
		defer utils.DisconnectMongo(context.Background())

		names := repository.Collections{
			Tasks:        cfg.Database.TasksCollection,
			Users:        cfg.Database.UsersCollection,
			ReminderJobs: cfg.Database.ReminderJobsCollection,
		}
		if err := repository.SetupIndexes(ctx, client.Database(cfg.Database.DatabaseName), names); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "indexes ready")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deliver overdue pending reminders once and exit",
	Long: `sweep runs a single pass of the reminder dispatcher against the configured
store: pending reminders that came due within the grace window are sent, older
ones are marked missed. Use it from an external scheduler when the server is
not running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		res, err := a.dispatcher.Sweep(ctx)
		if err != nil {
			return err
		}
		utils.Info("sweep finished", zap.Int("fired", res.Fired), zap.Int("missed", res.Missed))
		fmt.Fprintf(cmd.OutOrStdout(), "fired %d, missed %d\n", res.Fired, res.Missed)
		return nil
	},
}
