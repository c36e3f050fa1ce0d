// Package config загружает конфигурацию сервисов Wireflow.
//
// Источник — переменные окружения (viper.AutomaticEnv), дополнительно
// можно указать файл через WIREFLOW_CONFIG (yaml, json, toml). Значения
// окружения имеют приоритет над файлом.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrInvalidConfig — конфигурация некорректна.
var ErrInvalidConfig = errors.New("invalid config")

// Config — конфигурация сервиса.
type Config struct {
	// APIPort — порт HTTP API.
	APIPort string `mapstructure:"API_PORT"`

	// WorkerPort — порт /healthz и /metrics воркера.
	WorkerPort string `mapstructure:"WORKER_PORT"`

	// SchedulerPort — порт /healthz и /metrics планировщика.
	SchedulerPort string `mapstructure:"SCHEDULER_PORT"`

	// SchedulerTickSec — период проверки расписаний.
	SchedulerTickSec int `mapstructure:"SCHEDULER_TICK_SEC"`

	// DBDriver — postgres или sqlite.
	DBDriver string `mapstructure:"DB_DRIVER"`

	// DBURL — строка подключения PostgreSQL.
	DBURL string `mapstructure:"DB_URL"`

	// SQLitePath — файл базы SQLite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	// RabbitMQURL — адрес брокера. Пустая строка отключает события.
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	// CredentialAPIURL — адрес backend'а credential'ов.
	CredentialAPIURL string `mapstructure:"CREDENTIAL_API_URL"`

	// HTTPTimeoutSec — таймаут исходящих запросов узлов.
	HTTPTimeoutSec int `mapstructure:"HTTP_TIMEOUT_SEC"`

	// ShutdownTimeoutSec — время на graceful shutdown.
	ShutdownTimeoutSec int `mapstructure:"SHUTDOWN_TIMEOUT_SEC"`
}

// defaults — значения по умолчанию.
var defaults = map[string]any{
	"API_PORT":             "8080",
	"WORKER_PORT":          "8082",
	"SCHEDULER_PORT":       "8081",
	"SCHEDULER_TICK_SEC":   1,
	"DB_DRIVER":            DriverSQLite,
	"DB_URL":               "",
	"SQLITE_PATH":          "wireflow.db",
	"RABBITMQ_URL":         "",
	"CREDENTIAL_API_URL":   "http://localhost:8000",
	"HTTP_TIMEOUT_SEC":     30,
	"SHUTDOWN_TIMEOUT_SEC": 10,
}

// Load читает конфигурацию из окружения и необязательного файла.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := v.GetString("WIREFLOW_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBURL == "" {
			return fmt.Errorf("%w: DB_URL is required for postgres", ErrInvalidConfig)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for sqlite", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown DB_DRIVER %q", ErrInvalidConfig, c.DBDriver)
	}
	if c.HTTPTimeoutSec <= 0 {
		return fmt.Errorf("%w: HTTP_TIMEOUT_SEC must be positive", ErrInvalidConfig)
	}
	return nil
}

// HTTPTimeout возвращает таймаут исходящих запросов.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// SchedulerTick возвращает период тика планировщика.
func (c *Config) SchedulerTick() time.Duration {
	if c.SchedulerTickSec <= 0 {
		return time.Second
	}
	return time.Duration(c.SchedulerTickSec) * time.Second
}

// ShutdownTimeout возвращает время на graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}
