package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/summary"
)

var (
	// ErrSubmitPending is returned while a previous submission is in flight.
	ErrSubmitPending = errors.New("a submission is already in progress")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
)

const (
	msgLoadFailed   = "No se pudieron cargar las transacciones iniciales."
	msgCreateFailed = "No se pudo crear la transacción."
	msgUpdateFailed = "No se pudo actualizar la transacción."
	msgDeleteFailed = "No se pudo eliminar la transacción."
	msgDeleted      = "Transacción eliminada correctamente."
	msgSessionGone  = "Tu sesión expiró. Inicia sesión de nuevo."
)

// ConfirmDelete is the question shown before a delete is sent.
const ConfirmDelete = "¿Estás seguro de que quieres eliminar esta transacción?"

// Transactions is the part of the API the controller drives.
type Transactions interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, f core.TransactionFields) (core.Transaction, error)
	Update(ctx context.Context, id int64, f core.TransactionFields) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "info"
}

// Notifier shows non-blocking messages to the user.
type Notifier interface {
	Notify(sev Severity, msg string)
}

type NotifierFunc func(Severity, string)

func (f NotifierFunc) Notify(sev Severity, msg string) { f(sev, msg) }

// WriterNotifier prints one "[severity] message" line per notification.
func WriterNotifier(w io.Writer) Notifier {
	return NotifierFunc(func(sev Severity, msg string) {
		fmt.Fprintf(w, "[%s] %s\n", sev, msg)
	})
}

// FormController owns the local transaction list and the create/edit state
// of the transaction form. Every mutation happens after the matching API
// call completes and is followed by a report rebuild.
type FormController struct {
	api    Transactions
	notify Notifier
	logger *log.Logger

	mu        sync.Mutex
	state     State
	threshold *core.Money
}

func NewFormController(api Transactions, notify Notifier, logger *log.Logger) *FormController {
	if notify == nil {
		notify = NotifierFunc(func(Severity, string) {})
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	c := &FormController{
		api:    api,
		notify: notify,
		logger: logger.WithComponent(log.ComponentClient),
	}
	c.state.Report = summary.Build(nil, nil)
	return c
}

// State returns a copy of the current state.
func (c *FormController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// ParseThreshold reads a low-balance threshold. An empty value is nil and
// a leading "-" makes it negative.
func ParseThreshold(raw string) (*core.Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	m, err := core.ParseMoney(strings.TrimPrefix(raw, "-"))
	if err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}
	if strings.HasPrefix(raw, "-") {
		m = m.Neg()
	}
	return &m, nil
}

// SetThreshold sets the low-balance threshold; see ParseThreshold.
func (c *FormController) SetThreshold(raw string) error {
	threshold, err := ParseThreshold(raw)
	if err != nil {
		return err
	}
	c.mutate(func() { c.threshold = threshold })
	return nil
}

// Load replaces the local list with the server's.
func (c *FormController) Load(ctx context.Context) error {
	txs, err := c.api.List(ctx)
	if err != nil {
		c.report(ctx, log.OpList, msgLoadFailed, err)
		return err
	}

	c.mutate(func() { c.state.Transactions = txs })
	return nil
}

// SetForm replaces the form inputs without changing the mode.
func (c *FormController) SetForm(f Form) {
	c.mu.Lock()
	c.state.Form = f
	c.mu.Unlock()
}

// EnterEdit switches to edit mode for id and fills the form from the local
// entry. It reports false when id is not in the list.
func (c *FormController) EnterEdit(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.state.Mode = ModeEdit
	c.state.EditingID = id
	c.state.Form = FormFrom(c.state.Transactions[i])
	return true
}

// Cancel leaves edit mode and clears the form.
func (c *FormController) Cancel() {
	c.mu.Lock()
	c.exitEdit()
	c.mu.Unlock()
}

// Submit sends the form: a create in ModeCreate, an update of EditingID in
// ModeEdit. On success the list is updated in place and the controller is
// back in ModeCreate with an empty form. On failure mode and form are kept.
func (c *FormController) Submit(ctx context.Context) (core.Transaction, error) {
	c.mu.Lock()
	if c.state.Pending {
		c.mu.Unlock()
		return core.Transaction{}, ErrSubmitPending
	}
	fields, err := c.state.Form.Fields()
	if err != nil {
		c.mu.Unlock()
		c.notify.Notify(SeverityError, validationMessage(err))
		return core.Transaction{}, err
	}
	mode, id := c.state.Mode, c.state.EditingID
	c.state.Pending = true
	c.mu.Unlock()

	var tx core.Transaction
	if mode == ModeEdit {
		tx, err = c.api.Update(ctx, id, fields)
	} else {
		tx, err = c.api.Create(ctx, fields)
	}

	if err != nil {
		c.mu.Lock()
		c.state.Pending = false
		c.mu.Unlock()
		op, msg := log.OpCreate, msgCreateFailed
		if mode == ModeEdit {
			op, msg = log.OpUpdate, msgUpdateFailed
		}
		c.report(ctx, op, msg, err)
		return core.Transaction{}, err
	}

	c.mutate(func() {
		c.state.Pending = false
		if mode == ModeEdit {
			if i := c.indexOf(id); i >= 0 {
				c.state.Transactions[i] = tx
			}
		} else {
			c.state.Transactions = append([]core.Transaction{tx}, c.state.Transactions...)
		}
		c.exitEdit()
	})
	return tx, nil
}

// Delete asks confirm first and sends nothing when it answers false. On
// success the entry is dropped from the local list.
func (c *FormController) Delete(ctx context.Context, id int64, confirm func(core.Transaction) bool) error {
	c.mu.Lock()
	target := core.Transaction{ID: id}
	if i := c.indexOf(id); i >= 0 {
		target = c.state.Transactions[i]
	}
	c.mu.Unlock()

	if confirm == nil || !confirm(target) {
		return ErrCancelled
	}
	if err := c.api.Delete(ctx, id); err != nil {
		c.report(ctx, log.OpDelete, msgDeleteFailed, err)
		return err
	}

	c.mutate(func() {
		if i := c.indexOf(id); i >= 0 {
			c.state.Transactions = append(c.state.Transactions[:i:i], c.state.Transactions[i+1:]...)
		}
		if c.state.Mode == ModeEdit && c.state.EditingID == id {
			c.exitEdit()
		}
	})

	c.notify.Notify(SeverityInfo, msgDeleted)
	return nil
}

func (c *FormController) indexOf(id int64) int {
	for i, tx := range c.state.Transactions {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (c *FormController) exitEdit() {
	c.state.Mode = ModeCreate
	c.state.EditingID = 0
	c.state.Form = Form{}
}

// mutate applies fn under the lock and rebuilds the report. The low-balance
// warning is sent after the lock is released.
func (c *FormController) mutate(fn func()) {
	c.mu.Lock()
	fn()
	c.state.Report = summary.Build(c.state.Transactions, c.threshold)
	alert := c.state.Report.Alert
	c.mu.Unlock()

	if alert != nil {
		c.notify.Notify(SeverityWarning, alert.Message)
	}
}

func (c *FormController) report(ctx context.Context, op, msg string, err error) {
	c.logger.ErrorContext(ctx, "Request failed",
		log.FieldOperation, op,
		log.FieldError, err)
	if errors.Is(err, core.ErrAuth) || errors.Is(err, core.ErrForbidden) {
		msg = msgSessionGone
	}
	c.notify.Notify(SeverityError, msg)
}

func validationMessage(err error) string {
	var missing *core.MissingFieldsError
	if errors.As(err, &missing) {
		return "Faltan campos requeridos: " + strings.Join(missing.Fields, ", ")
	}
	return err.Error()
}
