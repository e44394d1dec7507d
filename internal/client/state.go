package client

import (
	"strings"

	"ledger/internal/core"
	"ledger/internal/summary"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

const (
	labelRegister = "Registrar Movimiento"
	labelUpdate   = "Actualizar Movimiento"
	labelEditing  = "Editando Movimiento"
	labelSaving   = "Guardando..."
	labelUpdating = "Actualizando..."
)

// Form holds the raw input values of the transaction form.
type Form struct {
	Type        string
	Date        string
	Description string
	Amount      string
	Category    string
	Account     string
}

// FormFrom fills a form with the values of an existing transaction.
func FormFrom(tx core.Transaction) Form {
	return Form{
		Type:        string(tx.Type),
		Date:        tx.Date.String(),
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Account:     tx.Account,
	}
}

// Fields parses and validates the form. Absent required inputs are reported
// together as a *core.MissingFieldsError.
func (f Form) Fields() (core.TransactionFields, error) {
	var missing []string
	for _, in := range []struct{ name, value string }{
		{"type", f.Type},
		{"date", f.Date},
		{"description", f.Description},
		{"amount", f.Amount},
		{"account", f.Account},
	} {
		if strings.TrimSpace(in.value) == "" {
			missing = append(missing, in.name)
		}
	}
	if len(missing) > 0 {
		return core.TransactionFields{}, &core.MissingFieldsError{Fields: missing}
	}

	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.TransactionFields{}, err
	}
	amount, err := core.ParseMoney(f.Amount)
	if err != nil {
		return core.TransactionFields{}, err
	}
	fields := core.TransactionFields{
		Type:        core.TransactionType(strings.TrimSpace(f.Type)),
		Date:        date,
		Description: strings.TrimSpace(f.Description),
		Amount:      amount,
		Category:    strings.TrimSpace(f.Category),
		Account:     strings.TrimSpace(f.Account),
	}
	if err := fields.Validate(); err != nil {
		return core.TransactionFields{}, err
	}
	return fields, nil
}

// State is a snapshot of everything the form view renders.
type State struct {
	Transactions []core.Transaction
	Mode         Mode
	// EditingID is the transaction being edited, zero in ModeCreate.
	EditingID    int64
	Form         Form
	Pending      bool
	Report       summary.Report
}

// Title is the heading above the form.
func (s State) Title() string {
	if s.Mode == ModeEdit {
		return labelEditing
	}
	return labelRegister
}

// SubmitLabel is the text of the submit control, which changes while a
// request is in flight.
func (s State) SubmitLabel() string {
	switch {
	case s.Pending && s.Mode == ModeEdit:
		return labelUpdating
	case s.Pending:
		return labelSaving
	case s.Mode == ModeEdit:
		return labelUpdate
	}
	return labelRegister
}

func (s State) clone() State {
	out := s
	out.Transactions = append([]core.Transaction(nil), s.Transactions...)
	return out
}
