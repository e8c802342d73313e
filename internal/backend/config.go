package backend

import (
	"errors"
	"fmt"

	"finwise/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                  backendType,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		DatabaseURL:           appConfig.DatabaseURL,
		AMQPURL:               appConfig.AMQPURL,
		AMQPExchange:          appConfig.AMQPExchange,
		AMQPTransactionsQueue: appConfig.AMQPTransactionsQueue,
		AMQPAlertsQueue:       appConfig.AMQPAlertsQueue,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres backend")
		}
	case MemoryBackend:
		// nothing to check
	}

	// AMQP is optional, but a half-configured bus is a mistake.
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPTransactionsQueue == "" || c.AMQPAlertsQueue == "") {
		return errors.New("AMQP exchange and both queues are required when AMQP_URL is set")
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), SQLiteBackend.String(), PostgresBackend.String()}
}
