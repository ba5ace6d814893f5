package backend

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"fintrack/internal/config"
)

// BackendType names a record store implementation.
type BackendType string

const (
	SQLiteBackend   BackendType = config.BackendSQLite
	MemoryBackend   BackendType = config.BackendMemory
	PostgresBackend BackendType = config.BackendPostgres
)

var backendTypes = []BackendType{SQLiteBackend, MemoryBackend, PostgresBackend}

// Types lists the supported record stores, default first.
func Types() []BackendType {
	return slices.Clone(backendTypes)
}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return slices.Contains(backendTypes, bt)
}

// Config selects and parameterises the record store.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseDSN  string

	// An empty AMQPURL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	CacheTTL time.Duration
}

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         BackendType(app.DataBackend),
		SQLiteDBPath: app.SQLiteDBPath,
		DatabaseDSN:  app.DatabaseDSN,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
		CacheTTL:     app.CacheTTL,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type %q, want one of %v", app.DataBackend, backendTypes)
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("sqlite backend needs a database path"))
		}
	case PostgresBackend:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("postgres backend needs a DSN"))
		}
	case MemoryBackend:
	default:
		errs = append(errs, fmt.Errorf("invalid backend type %q", c.Type))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP is enabled"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache TTL cannot be negative"))
	}
	return errors.Join(errs...)
}
