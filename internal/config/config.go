package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// ServiceURL — адрес CRUD-сервиса для клиентских команд (console, import, export, intake).
	ServiceURL     string
	SyncInterval   time.Duration
	RequestTimeout time.Duration

	// KafkaBrokers и KafkaTopicRepair — если оба заданы, сервис публикует события квитанций.
	KafkaBrokers     []string
	KafkaTopicRepair string

	// IntakeSessionDSN — отдельный файл сессии мессенджера; к базе квитанций бот не обращается.
	IntakeSessionDSN string

	DB struct {
		Driver   string
		Path     string
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:          getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:         firstEnv("APP_PORT", "HTTP_PORT", "5000"),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ServiceURL:       strings.TrimRight(getEnv("REPAIR_SERVICE_URL", "http://localhost:5000"), "/"),
		KafkaBrokers:     parseList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicRepair: getEnv("KAFKA_TOPIC_REPAIR", ""),
		IntakeSessionDSN: getEnv("INTAKE_SESSION_DSN", "file:data/intake.db?_pragma=foreign_keys(1)"),
	}
	var err error
	if cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", DriverSQLite))
	cfg.DB.Path = getEnv("DB_PATH", "data/repairs.db")
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "repair_desk")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return errors.New("config: DB_PATH is required for sqlite")
		}
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.SyncInterval <= 0 {
		return errors.New("config: SYNC_INTERVAL must be positive")
	}
	return nil
}

// ValidateClient checks only what client-side commands need.
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid REPAIR_SERVICE_URL %q", c.ServiceURL)
	}
	if c.SyncInterval <= 0 || c.RequestTimeout <= 0 {
		return errors.New("config: SYNC_INTERVAL and REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// DSN returns the gorm DSN for the configured driver.
func (c *Config) DSN() string {
	if c.DB.Driver == DriverSQLite {
		return c.DB.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// parseList разбивает "host1:9092,host2:9092" на слайс.
func parseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
