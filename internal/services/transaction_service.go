package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/summary"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService orchestrates owner-scoped transaction operations: it
// validates, stores, invalidates the owner's cached list and publishes a
// change event.
type TransactionService struct {
	store     storage.TransactionStore
	publisher EventPublisher
	lists     *cache.LRUCache[int64, []core.Transaction]
	logger    *log.Logger
	events    *log.StructuredLogger

	// generations counts mutations per owner; a list read is cached only
	// when no mutation happened while it was in flight.
	mu          sync.Mutex
	generations map[int64]uint64
}

// NewTransactionService wires the service. publisher and lists may be nil.
func NewTransactionService(store storage.TransactionStore, publisher EventPublisher, lists *cache.LRUCache[int64, []core.Transaction], logger *log.Logger) *TransactionService {
	l := logger.WithComponent(log.ComponentTransactions)
	return &TransactionService{
		store:     store,
		publisher: publisher,
		lists:     lists,
		logger:    l,
		events:    log.NewStructuredLogger(l),

		generations: make(map[int64]uint64),
	}
}

// List returns the owner's transactions ordered by date desc, id desc.
func (s *TransactionService) List(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	if s.lists == nil {
		return s.load(ctx, ownerID)
	}
	if txs, ok := s.lists.Get(ownerID); ok {
		return slices.Clone(txs), nil
	}

	s.mu.Lock()
	gen := s.generations[ownerID]
	s.mu.Unlock()

	txs, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generations[ownerID] == gen {
		s.lists.Set(ownerID, slices.Clone(txs))
	}
	s.mu.Unlock()
	return txs, nil
}

func (s *TransactionService) load(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Create(ctx context.Context, ownerID int64, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.Create(ctx, ownerID, f)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ctx, log.OpCreate, amqp.NewUpsertEvent(amqp.EventCreated, tx), tx)
	return tx, nil
}

// Update replaces every field of the owner's transaction id. Concurrent
// updates are last-write-wins.
func (s *TransactionService) Update(ctx context.Context, ownerID, id int64, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.Update(ctx, ownerID, id, f)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.changed(ctx, log.OpUpdate, amqp.NewUpsertEvent(amqp.EventUpdated, tx), tx)
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.changed(ctx, log.OpDelete, amqp.NewDeletedEvent(ownerID, id), core.Transaction{ID: id, OwnerID: ownerID})
	return nil
}

// Summary builds the aggregate report over the owner's transactions.
func (s *TransactionService) Summary(ctx context.Context, ownerID int64, threshold *core.Money) (summary.Report, error) {
	txs, err := s.List(ctx, ownerID)
	if err != nil {
		return summary.Report{}, err
	}
	return summary.Build(txs, threshold), nil
}

func (s *TransactionService) changed(ctx context.Context, op string, ev *amqp.TransactionEvent, tx core.Transaction) {
	if s.lists != nil {
		s.mu.Lock()
		s.generations[tx.OwnerID]++
		s.lists.Delete(tx.OwnerID)
		s.mu.Unlock()
	}
	s.events.LogTransactionChanged(ctx, op, tx.OwnerID, tx.ID, string(tx.Type), tx.Amount.Cents(), tx.Account)

	// Best effort: the record is already stored.
	if err := s.publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, log.OpPublish,
			log.FieldTxID, tx.ID,
			log.FieldEventKind, ev.Kind,
			log.FieldError, err)
	}
}

func (s *TransactionService) publish(ctx context.Context, ev *amqp.TransactionEvent) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishTransactionEvent(ctx, ev)
}

// Close closes the publisher when it owns a connection.
func (s *TransactionService) Close() error {
	var errs []error
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
