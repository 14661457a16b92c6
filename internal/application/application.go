package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	"github.com/psds-microservice/repair-desk/internal/config"
	"github.com/psds-microservice/repair-desk/internal/database"
	"github.com/psds-microservice/repair-desk/internal/handler"
	"github.com/psds-microservice/repair-desk/internal/kafka"
	"github.com/psds-microservice/repair-desk/internal/logging"
	"github.com/psds-microservice/repair-desk/internal/router"
	"github.com/psds-microservice/repair-desk/internal/service"
	"github.com/rs/zerolog"
)

// API приложение: HTTP CRUD-сервис, единственный владелец файла хранилища.
type API struct {
	cfg      *config.Config
	log      zerolog.Logger
	httpSrv  *http.Server
	sqlDB    *sql.DB
	producer *kafka.Producer
}

// NewAPI создаёт приложение для режима api.
func NewAPI(cfg *config.Config, log zerolog.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	db, err := database.OpenAndMigrate(cfg, logging.Component(log, "database"))
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	repairSvc := service.NewRepairService(db)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicRepair, logging.Component(log, "kafka"))
	repairHandler := handler.NewRepairHandler(repairSvc, producer, logging.Component(log, "repairs"))

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(repairHandler, sqlDB, logging.Component(log, "http")),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		log:      log,
		httpSrv:  httpSrv,
		sqlDB:    sqlDB,
		producer: producer,
	}, nil
}

// Run запускает HTTP-сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w (порт занят — остановите другой процесс или задайте APP_PORT в .env)", a.httpSrv.Addr, err)
	}
	return a.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (a *API) Serve(ctx context.Context, lis net.Listener) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info().
		Str("addr", lis.Addr().String()).
		Str("driver", a.cfg.DB.Driver).
		Bool("events", a.producer.Enabled()).
		Msg("HTTP server listening")
	a.log.Info().Msgf("  Swagger UI:    %s%s", base, paths.PathSwagger)
	a.log.Info().Msgf("  Health:        %s%s", base, paths.PathHealth)
	a.log.Info().Msgf("  Repairs:       %s/get_repairs", base)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			a.close()
			return fmt.Errorf("http: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.close()
	a.log.Info().Msg("HTTP server stopped")
	return nil
}

func (a *API) close() {
	if err := a.producer.Close(); err != nil {
		a.log.Warn().Err(err).Msg("kafka close")
	}
	if err := a.sqlDB.Close(); err != nil {
		a.log.Warn().Err(err).Msg("database close")
	}
}
