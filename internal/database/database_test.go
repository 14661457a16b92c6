package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/psds-microservice/repair-desk/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateCreatesFileAndTable(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverSQLite
	cfg.DB.Path = filepath.Join(t.TempDir(), "nested", "repairs.db")

	db, err := OpenAndMigrate(cfg, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = os.Stat(cfg.DB.Path)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable("repairs"))

	// повторный запуск — без ошибок
	require.NoError(t, MigrateUp(cfg, db, zerolog.Nop()))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Driver = "oracle"
	_, err := Open(cfg)
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:", sqliteDSN(":memory:"))
	assert.Equal(t, "file:x.db?mode=ro", sqliteDSN("file:x.db?mode=ro"))
	assert.Contains(t, sqliteDSN("data/repairs.db"), "busy_timeout")
}
