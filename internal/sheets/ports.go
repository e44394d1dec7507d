package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps a copy of every transaction outside the
	// primary store, one row per transaction keyed by its id.
	TransactionMirror interface {
		// Upsert writes the row for tx, replacing an existing row with the
		// same id. It returns a reference to the written row.
		Upsert(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		// Delete removes the row for id. A missing row is not an error.
		Delete(ctx context.Context, ownerID, id int64) error
	}

	// HeaderWriter is implemented by mirrors that keep a header row.
	HeaderWriter interface {
		EnsureHeader(ctx context.Context) error
	}
)

// Header is the column layout shared by every mirror.
var Header = []string{"ID", "Usuario", "Fecha", "Descripción", "Monto", "Tipo", "Categoría", "Cuenta"}
