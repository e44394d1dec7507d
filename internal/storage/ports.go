package storage

import (
	"context"

	"ledger/internal/core"
)

// UserStore persists registered users. CreateUser returns core.ErrConflict
// when the username is taken; UserByUsername returns core.ErrNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	UserByUsername(ctx context.Context, username string) (core.User, error)
}

// TransactionStore persists transactions. Every call is scoped to ownerID:
// a row owned by someone else behaves exactly like a missing row.
type TransactionStore interface {
	Create(ctx context.Context, ownerID int64, f core.TransactionFields) (core.Transaction, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]core.Transaction, error)
	Update(ctx context.Context, ownerID, id int64, f core.TransactionFields) (core.Transaction, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

// Store is everything a backend provides.
type Store interface {
	UserStore
	TransactionStore
	Ping(ctx context.Context) error
	Close() error
}
