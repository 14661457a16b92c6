package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/psds-microservice/repair-desk/internal/console"
	"github.com/psds-microservice/repair-desk/internal/logging"
	"github.com/psds-microservice/repair-desk/internal/repairclient"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var consoleLogFile string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the operator console: live repair table with add, edit and delete",
	RunE:  runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleLogFile, "log-file", "", "write logs to this file (the terminal is taken by the UI)")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadClientConfig()
	if err != nil {
		return err
	}
	log := zerolog.Nop()
	if consoleLogFile != "" {
		f, err := os.OpenFile(consoleLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer f.Close()
		log = logging.NewWithWriter(cfg.LogLevel, "production", f)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	client := repairclient.NewClient(cfg.ServiceURL, cfg.RequestTimeout)
	return console.Run(ctx, client, cfg.SyncInterval, logging.Component(log, "syncer"))
}
