package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/psds-microservice/repair-desk/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open открывает хранилище квитанций. Файл SQLite открывает только сервис — остальные
// процессы ходят через HTTP.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch cfg.DB.Driver {
	case config.DriverSQLite:
		if err := ensureSQLiteDirectory(cfg.DB.Path); err != nil {
			return nil, err
		}
		db, err := gorm.Open(gormsqlite.Open(sqliteDSN(cfg.DB.Path)), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %q: %w", cfg.DB.Path, err)
		}
		return db, nil
	case config.DriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}
}

// sqliteDSN enables WAL and a busy timeout for plain file paths.
func sqliteDSN(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func ensureSQLiteDirectory(path string) error {
	candidate := strings.TrimSpace(path)
	if candidate == "" || candidate == ":memory:" {
		return nil
	}
	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %q: %w", dir, err)
	}
	return nil
}
