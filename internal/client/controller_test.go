package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	sev Severity
	msg string
}

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(sev Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{sev, msg})
}

func (r *recorder) last() note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return note{}
	}
	return r.notes[len(r.notes)-1]
}

func (r *recorder) count(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notes {
		if x.sev == sev {
			n++
		}
	}
	return n
}

// fakeTransactions answers from memory. A non-nil err fails every call and
// block, when set, holds Create and Update until it is closed.
type fakeTransactions struct {
	txs    []core.Transaction
	nextID int64
	err    error
	block  chan struct{}
	calls  int
}

func (f *fakeTransactions) List(context.Context) ([]core.Transaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]core.Transaction(nil), f.txs...), nil
}

func (f *fakeTransactions) Create(_ context.Context, fields core.TransactionFields) (core.Transaction, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	f.nextID++
	tx := core.Transaction{ID: f.nextID, OwnerID: 1, TransactionFields: fields}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakeTransactions) Update(_ context.Context, id int64, fields core.TransactionFields) (core.Transaction, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	return core.Transaction{ID: id, OwnerID: 1, TransactionFields: fields}, nil
}

func (f *fakeTransactions) Delete(_ context.Context, id int64) error {
	f.calls++
	return f.err
}

func form(typ, amount string) Form {
	return Form{
		Type:        typ,
		Date:        "2024-01-05",
		Description: "Item",
		Amount:      amount,
		Category:    "General",
		Account:     "Checking",
	}
}

func TestControllerCreateAndEdit(t *testing.T) {
	ctx := context.Background()
	api := &fakeTransactions{}
	c := NewFormController(api, &recorder{}, nil)

	st := c.State()
	assert.Equal(t, ModeCreate, st.Mode)
	assert.Equal(t, "Registrar Movimiento", st.Title())
	assert.Equal(t, "Registrar Movimiento", st.SubmitLabel())

	c.SetForm(form("Ingreso", "100"))
	first, err := c.Submit(ctx)
	require.NoError(t, err)
	c.SetForm(form("Gasto", "40"))
	second, err := c.Submit(ctx)
	require.NoError(t, err)

	st = c.State()
	require.Len(t, st.Transactions, 2)
	assert.Equal(t, second.ID, st.Transactions[0].ID, "creates are prepended")
	assert.Equal(t, first.ID, st.Transactions[1].ID)
	assert.Equal(t, Form{}, st.Form)
	assert.Equal(t, int64(6000), st.Report.Totals.Net.Cents())

	require.True(t, c.EnterEdit(first.ID))
	st = c.State()
	assert.Equal(t, ModeEdit, st.Mode)
	assert.Equal(t, first.ID, st.EditingID)
	assert.Equal(t, "Editando Movimiento", st.Title())
	assert.Equal(t, "Actualizar Movimiento", st.SubmitLabel())
	assert.Equal(t, "100.00", st.Form.Amount)
	assert.Equal(t, "2024-01-05", st.Form.Date)

	edited := st.Form
	edited.Amount = "120"
	c.SetForm(edited)
	updated, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)

	st = c.State()
	assert.Equal(t, ModeCreate, st.Mode)
	assert.Zero(t, st.EditingID)
	require.Len(t, st.Transactions, 2)
	assert.Equal(t, first.ID, st.Transactions[1].ID, "edits keep their position")
	assert.Equal(t, int64(12000), st.Transactions[1].Amount.Cents())
	assert.Equal(t, int64(8000), st.Report.Totals.Net.Cents())
}

func TestControllerEnterEditUnknown(t *testing.T) {
	c := NewFormController(&fakeTransactions{}, nil, nil)
	assert.False(t, c.EnterEdit(42))
	assert.Equal(t, ModeCreate, c.State().Mode)
}

func TestControllerCancel(t *testing.T) {
	ctx := context.Background()
	c := NewFormController(&fakeTransactions{}, nil, nil)
	c.SetForm(form("Gasto", "10"))
	tx, err := c.Submit(ctx)
	require.NoError(t, err)

	require.True(t, c.EnterEdit(tx.ID))
	c.Cancel()
	st := c.State()
	assert.Equal(t, ModeCreate, st.Mode)
	assert.Equal(t, Form{}, st.Form)
}

func TestControllerValidation(t *testing.T) {
	tests := []struct {
		name string
		form Form
		msg  string
	}{
		{"missing fields", Form{Type: "Gasto"}, "Faltan campos requeridos: date, description, amount, account"},
		{"bad type", form("Regalo", "10"), ""},
		{"bad amount", form("Gasto", "abc"), ""},
		{"negative amount", form("Gasto", "-5"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeTransactions{}
			rec := &recorder{}
			c := NewFormController(api, rec, nil)
			c.SetForm(tt.form)

			_, err := c.Submit(context.Background())
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.Zero(t, api.calls, "nothing is sent")
			assert.Equal(t, SeverityError, rec.last().sev)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, rec.last().msg)
			}
			assert.Equal(t, tt.form, c.State().Form, "form is kept")
		})
	}
}

func TestControllerSubmitFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	api := &fakeTransactions{}
	rec := &recorder{}
	c := NewFormController(api, rec, nil)

	c.SetForm(form("Gasto", "10"))
	tx, err := c.Submit(ctx)
	require.NoError(t, err)

	api.err = &APIError{Status: 500, Message: "Error interno del servidor."}
	require.True(t, c.EnterEdit(tx.ID))
	_, err = c.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, note{SeverityError, "No se pudo actualizar la transacción."}, rec.last())

	st := c.State()
	assert.Equal(t, ModeEdit, st.Mode)
	assert.False(t, st.Pending)
	assert.Equal(t, "10.00", st.Form.Amount)

	c.Cancel()
	c.SetForm(form("Gasto", "10"))
	_, err = c.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, note{SeverityError, "No se pudo crear la transacción."}, rec.last())
	assert.Len(t, c.State().Transactions, 1)
}

func TestControllerExpiredSession(t *testing.T) {
	rec := &recorder{}
	c := NewFormController(&fakeTransactions{err: &APIError{Status: 403}}, rec, nil)

	err := c.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.Equal(t, note{SeverityError, "Tu sesión expiró. Inicia sesión de nuevo."}, rec.last())
}

func TestControllerLoadFailure(t *testing.T) {
	rec := &recorder{}
	c := NewFormController(&fakeTransactions{err: errors.New("connection refused")}, rec, nil)

	require.Error(t, c.Load(context.Background()))
	assert.Equal(t, note{SeverityError, "No se pudieron cargar las transacciones iniciales."}, rec.last())
	assert.Empty(t, c.State().Transactions)
}

func TestControllerSinglePendingSubmit(t *testing.T) {
	api := &fakeTransactions{block: make(chan struct{})}
	c := NewFormController(api, nil, nil)
	c.SetForm(form("Gasto", "10"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return c.State().Pending }, time.Second, time.Millisecond)
	assert.Equal(t, "Guardando...", c.State().SubmitLabel())

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitPending)

	close(api.block)
	require.NoError(t, <-done)
	st := c.State()
	assert.False(t, st.Pending)
	assert.Len(t, st.Transactions, 1)
}

func TestControllerDelete(t *testing.T) {
	ctx := context.Background()
	api := &fakeTransactions{}
	rec := &recorder{}
	c := NewFormController(api, rec, nil)

	c.SetForm(form("Ingreso", "100"))
	keep, err := c.Submit(ctx)
	require.NoError(t, err)
	c.SetForm(form("Gasto", "30"))
	drop, err := c.Submit(ctx)
	require.NoError(t, err)

	calls := api.calls
	err = c.Delete(ctx, drop.ID, func(core.Transaction) bool { return false })
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, calls, api.calls, "declined delete sends nothing")
	assert.Len(t, c.State().Transactions, 2)

	var asked core.Transaction
	require.True(t, c.EnterEdit(drop.ID))
	require.NoError(t, c.Delete(ctx, drop.ID, func(tx core.Transaction) bool {
		asked = tx
		return true
	}))
	assert.Equal(t, drop.ID, asked.ID)
	assert.Equal(t, "Item", asked.Description)
	assert.Equal(t, note{SeverityInfo, "Transacción eliminada correctamente."}, rec.last())

	st := c.State()
	require.Len(t, st.Transactions, 1)
	assert.Equal(t, keep.ID, st.Transactions[0].ID)
	assert.Equal(t, ModeCreate, st.Mode, "deleting the edited entry leaves edit mode")
	assert.Equal(t, int64(10000), st.Report.Totals.Net.Cents())

	api.err = &APIError{Status: 404}
	err = c.Delete(ctx, keep.ID, func(core.Transaction) bool { return true })
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, note{SeverityError, "No se pudo eliminar la transacción."}, rec.last())
	assert.Len(t, c.State().Transactions, 1)
}

func TestControllerLowBalanceWarning(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	c := NewFormController(&fakeTransactions{}, rec, nil)

	require.NoError(t, c.SetThreshold("50"))
	assert.Equal(t, 1, rec.count(SeverityWarning), "empty ledger is below 50")

	c.SetForm(form("Ingreso", "100"))
	_, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count(SeverityWarning))
	assert.Nil(t, c.State().Report.Alert)

	c.SetForm(form("Gasto", "70"))
	_, err = c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.count(SeverityWarning))
	assert.Equal(t, "Alerta: Tu balance neto ($30.00) es menor que el umbral.", rec.last().msg)

	require.NoError(t, c.SetThreshold(""))
	assert.Nil(t, c.State().Report.Alert)

	require.NoError(t, c.SetThreshold("-10"))
	assert.Nil(t, c.State().Report.Alert)

	assert.ErrorIs(t, c.SetThreshold("abc"), core.ErrValidation)
}

func TestControllerAgainstServer(t *testing.T) {
	ctx := context.Background()
	api := loggedIn(t, newLedger(t), "alice")
	rec := &recorder{}
	c := NewFormController(api, rec, nil)

	require.NoError(t, c.Load(ctx))
	assert.Empty(t, c.State().Transactions)

	c.SetForm(Form{
		Type: "Ingreso", Date: "2024-01-05", Description: "Salary",
		Amount: "1000", Category: "Work", Account: "Checking",
	})
	tx, err := c.Submit(ctx)
	require.NoError(t, err)

	require.True(t, c.EnterEdit(tx.ID))
	f := c.State().Form
	f.Amount = "1200"
	c.SetForm(f)
	_, err = c.Submit(ctx)
	require.NoError(t, err)

	other := NewFormController(api, nil, nil)
	require.NoError(t, other.Load(ctx))
	st := other.State()
	require.Len(t, st.Transactions, 1)
	assert.Equal(t, int64(120000), st.Transactions[0].Amount.Cents())

	require.NoError(t, c.Delete(ctx, tx.ID, func(core.Transaction) bool { return true }))
	require.NoError(t, other.Load(ctx))
	assert.Empty(t, other.State().Transactions)
}
