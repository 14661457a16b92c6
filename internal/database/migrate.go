package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/psds-microservice/repair-desk/internal/config"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

//go:embed migrations
var migrationsFS embed.FS

func ensureDatabase(databaseURL string, log zerolog.Logger) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database name is empty in url")
	}
	u.Path = "/postgres"
	adminURL := u.String()
	db, err := sql.Open("postgres", adminURL)
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping admin connection: %w", err)
	}
	var exists bool
	if err := db.QueryRow("SELECT true FROM pg_database WHERE datname = $1", dbName).Scan(&exists); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}
	if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	log.Info().Str("database", dbName).Msg("database created")
	return nil
}

// MigrateUp применяет встроенные миграции к открытому соединению.
func MigrateUp(cfg *config.Config, db *gorm.DB, log zerolog.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	dialect, dir := "sqlite3", "migrations/sqlite"
	if cfg.DB.Driver == config.DriverPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	before, _ := goose.GetDBVersion(sqlDB)
	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	after, _ := goose.GetDBVersion(sqlDB)
	if before == after {
		log.Debug().Int64("version", after).Msg("migrate: no pending migrations")
	} else {
		log.Info().Int64("from", before).Int64("to", after).Msg("migrate: up ok")
	}
	return nil
}

// OpenAndMigrate is what the service does at startup: create the postgres
// database if needed, open it and apply the schema.
func OpenAndMigrate(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.DB.Driver == config.DriverPostgres {
		if err := ensureDatabase(cfg.DatabaseURL(), log); err != nil {
			return nil, fmt.Errorf("ensure database: %w", err)
		}
	}
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(cfg, db, log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

type gooseLogger struct{ log zerolog.Logger }

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatal().Msgf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSpace(format), v...)
}
