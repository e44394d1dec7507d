// Package memory is an in-process implementation of the storage ports,
// used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ledger/internal/core"
)

type Store struct {
	mu     sync.Mutex
	users  map[string]core.User
	txs    map[int64]core.Transaction
	nextID struct{ user, tx int64 }
}

func New() *Store {
	return &Store{
		users: make(map[string]core.User),
		txs:   make(map[int64]core.Transaction),
	}
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return 0, fmt.Errorf("user %q: %w", username, core.ErrConflict)
	}
	s.nextID.user++
	s.users[username] = core.User{ID: s.nextID.user, Username: username, PasswordHash: passwordHash}
	return s.nextID.user, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) Create(_ context.Context, ownerID int64, f core.TransactionFields) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID.tx++
	tx := core.Transaction{ID: s.nextID.tx, OwnerID: ownerID, TransactionFields: f}
	s.txs[tx.ID] = tx
	return tx, nil
}

// ListByOwner returns the owner's transactions, newest date first.
func (s *Store) ListByOwner(_ context.Context, ownerID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, tx := range s.txs {
		if tx.OwnerID == ownerID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Update(_ context.Context, ownerID, id int64, f core.TransactionFields) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	tx.TransactionFields = f
	s.txs[id] = tx
	return tx, nil
}

func (s *Store) Delete(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
