package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/psds-microservice/repair-desk/internal/intake"
	"github.com/psds-microservice/repair-desk/internal/logging"
	"github.com/psds-microservice/repair-desk/internal/repairclient"
	"github.com/spf13/cobra"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Run the WhatsApp bot that accepts repair requests from customers",
	RunE:  runIntake,
}

func init() {
	rootCmd.AddCommand(intakeCmd)
}

func runIntake(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadClientConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := repairclient.NewClient(cfg.ServiceURL, cfg.RequestTimeout)
	dialogue := intake.NewDialogue(client, logging.Component(log, "intake"))
	bot, err := intake.NewWhatsApp(ctx, cfg.IntakeSessionDSN, dialogue, cfg.RequestTimeout, logging.Component(log, "whatsapp"))
	if err != nil {
		return err
	}
	log.Info().Str("service", client.BaseURL()).Msg("intake: submitting to")
	return bot.Run(ctx)
}
