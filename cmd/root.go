package cmd

import (
	"fmt"
	"time"

	"github.com/psds-microservice/repair-desk/internal/config"
	"github.com/psds-microservice/repair-desk/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagServiceURL string
	flagInterval   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "repair-desk",
	Short:        "Repair shop ticket desk: CRUD API, console, spreadsheet tools and messenger intake",
	RunE:         runAPI,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServiceURL, "url", "", "CRUD service address (overrides REPAIR_SERVICE_URL)")
	rootCmd.PersistentFlags().DurationVar(&flagInterval, "interval", 0, "poll interval for the console (overrides SYNC_INTERVAL)")

	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig reads .env and the environment and applies command-line overrides.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config: %w", err)
	}
	if flagServiceURL != "" {
		cfg.ServiceURL = flagServiceURL
	}
	if flagInterval > 0 {
		cfg.SyncInterval = flagInterval
	}
	return cfg, logging.New(cfg.LogLevel, cfg.AppEnv), nil
}

// loadClientConfig is loadConfig for commands that only talk to the service.
func loadClientConfig() (*config.Config, zerolog.Logger, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, log, err
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, log, err
	}
	return cfg, log, nil
}
