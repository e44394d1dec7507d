package backend

import (
	"fmt"
	"strings"

	"ledger/internal/config"
)

// BackendType selects where transactions and users are stored.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	}
	return false
}

// Config is the subset of the application config the factory reads.
// The AMQP settings are optional for every backend type.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("sqlite backend: SQLITE_DB_PATH is required")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("postgres backend: DATABASE_URL is required")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type %q (want one of %s)",
			c.Type, strings.Join(GetBackendTypeStrings(), ", "))
	}
	return nil
}

func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, PostgresBackend, MemoryBackend}
}

func GetBackendTypeStrings() []string {
	out := make([]string, 0, 3)
	for _, t := range GetBackendTypes() {
		out = append(out, t.String())
	}
	return out
}
