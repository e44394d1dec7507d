package memory

import (
	"context"
	"testing"

	"ledger/internal/core"
)

func tx(id int64, desc string) core.Transaction {
	return core.Transaction{
		ID:      id,
		OwnerID: 1,
		TransactionFields: core.TransactionFields{
			Type:        core.Income,
			Date:        core.NewDate(2024, 1, 1),
			Description: desc,
			Amount:      core.FromCents(100),
			Account:     "Caja",
		},
	}
}

func TestMirrorUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	m := New()

	ref, err := m.Upsert(ctx, tx(1, "a"))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}
	if ref, _ := m.Upsert(ctx, tx(2, "b")); ref != "mem:2" {
		t.Fatalf("expected mem:2, got %q", ref)
	}
	if ref, _ := m.Upsert(ctx, tx(1, "a2")); ref != "mem:1" {
		t.Fatalf("expected replacement at mem:1, got %q", ref)
	}

	rows := m.Rows()
	if len(rows) != 2 || rows[0].Description != "a2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if err := m.Delete(ctx, 1, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, 1, 1); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	rows = m.Rows()
	if len(rows) != 1 || rows[0].ID != 2 {
		t.Fatalf("unexpected rows after delete: %+v", rows)
	}
}
