// Command authrelay runs the identity service, the API gateway, or a
// one-shot schema migration.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tech-arch1tect/authrelay/app"
	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/database"
	"github.com/tech-arch1tect/authrelay/services/logging"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		var exitErr *app.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "authrelay",
		Short:         "Token lifecycle service and rate limited API gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	load := func() (*config.Config, error) {
		cfg := &config.Config{}
		if err := config.LoadConfig(cfg); err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if cfg.App.Version == "dev" {
			cfg.App.Version = version
		}
		return cfg, nil
	}

	cmd.AddCommand(
		serveCmd(app.RoleIdentity, "Run the identity service", load),
		serveCmd(app.RoleGateway, "Run the API gateway", load),
		migrateCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "authrelay %s\n", version)
			},
		},
	)

	return cmd
}

func serveCmd(role app.Role, short string, load func() (*config.Config, error)) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   string(role),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			application, err := app.NewApp(role).WithConfig(cfg).Build()
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Override SERVER_PORT")

	return cmd
}

func migrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the identity tables and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			cfg.Database.AutoMigrate = true

			logger, err := logging.NewLoggingService(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := database.ProvideDatabase(*cfg, database.WithModels(app.Models()...), logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			logger.Info("migration complete")
			return nil
		},
	}
}
