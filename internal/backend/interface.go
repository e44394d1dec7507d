package backend

import (
	"context"

	"ledger/internal/services"
	"ledger/internal/storage"
)

type CleanupFunc func() error

// BackendResult is everything the API server needs from the data layer.
// Cleanup closes the publisher and then the store.
type BackendResult struct {
	Store storage.Store
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
