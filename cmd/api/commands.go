package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yigit/vaxportal/internal/bootstrap"
	"github.com/yigit/vaxportal/internal/server"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "vaxportal",
		Short:         "School vaccination portal API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, seed the administrator and serve the HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE:  runMigrate,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create the default administrator (and sample data when enabled) and exit",
		RunE:  runSeed,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", bootstrap.DefaultConfigPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, configPath)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// runMigrate relies on SetupDatabase applying migrations before it returns
func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(ctx, configPath)
	if err != nil {
		return err
	}
	database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	database.Close()
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(ctx, configPath)
	if err != nil {
		return err
	}
	database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer database.Close()

	deps, err := bootstrap.BuildDependencies(ctx, cfg, database, lgr)
	if err != nil {
		return err
	}
	defer deps.Close()

	return deps.SeedData(ctx)
}

