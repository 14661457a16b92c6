package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "HTTP_PORT", "DB_DRIVER", "DB_PATH", "SYNC_INTERVAL", "REQUEST_TIMEOUT", "KAFKA_BROKERS", "REPAIR_SERVICE_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "data/repairs.db", cfg.DSN())
	assert.Equal(t, 5*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "http://localhost:5000", cfg.ServiceURL)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateClient())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("SYNC_INTERVAL", "750ms")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("REPAIR_SERVICE_URL", "http://repairs.local:5000/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Contains(t, cfg.DSN(), "host=db")
	assert.Equal(t, 750*time.Millisecond, cfg.SyncInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "http://repairs.local:5000", cfg.ServiceURL)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "often")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{SyncInterval: time.Second}
	cfg.DB.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.DB.Driver = DriverPostgres
	cfg.AppEnv = "production"
	cfg.DB.Host, cfg.DB.Database = "db", "repairs"
	assert.Error(t, cfg.Validate(), "production requires a password")

	cfg.DB.Password = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.DB.User, cfg.DB.Port, cfg.DB.SSLMode = "postgres", "5432", "disable"
	cfg.DB.Password = "p@ss"
	assert.Equal(t, "postgres://postgres:p%40ss@db:5432/repairs?sslmode=disable", cfg.DatabaseURL())
}

func TestValidateClient(t *testing.T) {
	cfg := &Config{ServiceURL: "localhost", SyncInterval: time.Second, RequestTimeout: time.Second}
	assert.Error(t, cfg.ValidateClient())
	cfg.ServiceURL = "http://localhost:5000"
	assert.NoError(t, cfg.ValidateClient())
}
