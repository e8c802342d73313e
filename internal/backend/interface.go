package backend

import (
	"context"

	"finwise/internal/ports"
	"finwise/internal/services"
)

// CleanupFunc releases whatever CreateBackend opened.
type CleanupFunc func() error

// BackendResult contains the storage backend, the optional event publisher
// and the function that releases both.
type BackendResult struct {
	Store     ports.Store
	Publisher services.Publisher // nil when AMQP is not configured
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Optional event bus, shared by every backend
	AMQPURL               string
	AMQPExchange          string
	AMQPTransactionsQueue string
	AMQPAlertsQueue       string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
