package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

var _ ports.TransactionMirror = (*Mirror)(nil)

// Mirror keeps mirrored rows in process, in insertion order.
type Mirror struct {
	mu   sync.Mutex
	rows []core.Transaction
}

func New() *Mirror {
	return &Mirror{}
}

// Upsert replaces the row with the same id or appends a new one.
func (m *Mirror) Upsert(_ context.Context, tx core.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == tx.ID {
			m.rows[i] = tx
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, tx)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Delete drops the row with the given id, if any.
func (m *Mirror) Delete(_ context.Context, _ int64, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...)
}
