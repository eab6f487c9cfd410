package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/nepq-coach-backend/internal/app"
	"github.com/yungbote/nepq-coach-backend/internal/data/db"
	"github.com/yungbote/nepq-coach-backend/internal/platform/envutil"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nepq-coach",
		Short: "NEPQ sales role-play coaching backend",
		Long: `nepq-coach serves the role-play coaching API: scenarios, live
recording sessions, NEPQ scoring, review comments and leaderboards.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newScoreCmd(),
	)
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			application, err := app.New(log)
			if err != nil {
				log.Sync()
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(withContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			envutil.LoadDotEnv(log)

			dbService, err := db.NewService(log)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer dbService.Close()
			if err := db.AutoMigrateAll(dbService.DB()); err != nil {
				return fmt.Errorf("automigrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", dbService.Driver())
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo organization, users, scenarios and recordings",
		Long: `Seed is idempotent: rows are keyed by stable ids, so running it twice
leaves the database unchanged. SEED_CATALOG points at an alternative YAML
catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			application, err := app.New(log)
			if err != nil {
				log.Sync()
				return err
			}
			defer application.Close()

			report, err := application.Services.Seed.Seed(withContext(cmd))
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"seeded organization %s: teams=%d users=%d personas=%d scenarios=%d recordings=%d\n",
				report.Organization, report.Teams, report.Users, report.Personas, report.Scenarios, report.Recordings)
			return nil
		},
	}
}

func withContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
