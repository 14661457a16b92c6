package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/psds-microservice/repair-desk/internal/database"
	"github.com/psds-microservice/repair-desk/internal/kafka"
	"github.com/psds-microservice/repair-desk/internal/logging"
	"github.com/psds-microservice/repair-desk/internal/service"
	"github.com/spf13/cobra"
)

var republishEventsCmd = &cobra.Command{
	Use:   "republish-events",
	Short: "Publish a repair.snapshot event for every stored ticket (rebuilds downstream consumers)",
	RunE:  runRepublishEvents,
}

func init() {
	rootCmd.AddCommand(republishEventsCmd)
}

func runRepublishEvents(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicRepair, logging.Component(log, "kafka"))
	defer producer.Close()
	if !producer.Enabled() {
		log.Warn().Msg("republish-events: KAFKA_BROKERS or KAFKA_TOPIC_REPAIR not set, nothing to do")
		return nil
	}

	db, err := database.OpenAndMigrate(cfg, logging.Component(log, "database"))
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	repairs, err := service.NewRepairService(db).List(ctx)
	if err != nil {
		return fmt.Errorf("list repairs: %w", err)
	}
	log.Info().Int("count", len(repairs)).Msg("republish-events: found tickets")
	for i := range repairs {
		producer.ProduceRepairEvent(ctx, kafka.EventRepairSnapshot, kafka.RepairEventPayload(&repairs[i]))
		if (i+1)%50 == 0 || i == len(repairs)-1 {
			log.Info().Msgf("republish-events: sent %d/%d", i+1, len(repairs))
		}
	}
	return nil
}
