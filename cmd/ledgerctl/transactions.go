package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"ledger/internal/client"
	"ledger/internal/core"

	"github.com/google/subcommands"
)

func printTransactions(w io.Writer, txs []core.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFECHA\tTIPO\tDESCRIPCIÓN\tMONTO\tCATEGORÍA\tCUENTA")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date.Spanish(), tx.Type, tx.Description, tx.Amount.Display(), tx.Category, tx.Account)
	}
	tw.Flush()
}

type listCmd struct{}

func (*listCmd) Name() string           { return "list" }
func (*listCmd) Synopsis() string       { return "list your transactions" }
func (*listCmd) Usage() string          { return "ledgerctl list\n" }
func (*listCmd) SetFlags(*flag.FlagSet) {}

func (*listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(true)
	if err != nil {
		return fail(err)
	}
	c, err := s.controller(ctx)
	if err != nil {
		return fail(err)
	}
	st := c.State()
	if len(st.Transactions) == 0 {
		fmt.Println("No hay transacciones.")
		return subcommands.ExitSuccess
	}
	printTransactions(os.Stdout, st.Transactions)
	fmt.Printf("\nBalance neto: %s\n", st.Report.Totals.Net.Display())
	return subcommands.ExitSuccess
}

// formFlags binds the transaction form inputs to flags.
type formFlags struct {
	form client.Form
}

func (p *formFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.form.Type, "type", "", "Ingreso, Gasto or Inversion")
	f.StringVar(&p.form.Date, "date", "", "date as YYYY-MM-DD")
	f.StringVar(&p.form.Description, "description", "", "description")
	f.StringVar(&p.form.Amount, "amount", "", "amount, e.g. 12.50")
	f.StringVar(&p.form.Category, "category", "", "category")
	f.StringVar(&p.form.Account, "account", "", "account")
}

// overlay copies onto base only the flags that were given.
func (p *formFlags) overlay(f *flag.FlagSet, base client.Form) client.Form {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "type":
			base.Type = p.form.Type
		case "date":
			base.Date = p.form.Date
		case "description":
			base.Description = p.form.Description
		case "amount":
			base.Amount = p.form.Amount
		case "category":
			base.Category = p.form.Category
		case "account":
			base.Account = p.form.Account
		}
	})
	return base
}

type addCmd struct{ formFlags }

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction" }
func (*addCmd) Usage() string {
	return `ledgerctl add -type <t> -amount <n> -description <d> -account <a> [-date <YYYY-MM-DD>] [-category <c>]

  Records a transaction. The date defaults to today.
`
}

func (p *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(true)
	if err != nil {
		return fail(err)
	}
	c, err := s.controller(ctx)
	if err != nil {
		return fail(err)
	}

	form := p.form
	if form.Date == "" {
		form.Date = time.Now().Format(core.DateLayout)
	}
	c.SetForm(form)
	tx, err := c.Submit(ctx)
	if err != nil {
		return subcommands.ExitFailure
	}
	fmt.Printf("Transacción %d registrada.\n", tx.ID)
	return subcommands.ExitSuccess
}

type editCmd struct{ formFlags }

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change a transaction" }
func (*editCmd) Usage() string {
	return `ledgerctl edit [-type <t>] [-date <d>] [-description <d>] [-amount <n>] [-category <c>] [-account <a>] <id>

  Changes the given fields of a transaction and keeps the rest.
`
}

func (p *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one transaction id")
		return subcommands.ExitUsageError
	}
	id, err := parseID(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	s, err := openSession(true)
	if err != nil {
		return fail(err)
	}
	c, err := s.controller(ctx)
	if err != nil {
		return fail(err)
	}
	if !c.EnterEdit(id) {
		fmt.Fprintln(os.Stderr, "Transacción no encontrada.")
		return subcommands.ExitFailure
	}

	c.SetForm(p.overlay(f, c.State().Form))
	if _, err := c.Submit(ctx); err != nil {
		return subcommands.ExitFailure
	}
	fmt.Printf("Transacción %d actualizada.\n", id)
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	yes bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove a transaction" }
func (*deleteCmd) Usage() string {
	return `ledgerctl delete [-yes] <id>

  Removes a transaction after asking for confirmation.
`
}

func (p *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.yes, "yes", false, "do not ask for confirmation")
}

func (p *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one transaction id")
		return subcommands.ExitUsageError
	}
	id, err := parseID(f.Arg(0))
	if err != nil {
		return fail(err)
	}
	s, err := openSession(true)
	if err != nil {
		return fail(err)
	}
	c, err := s.controller(ctx)
	if err != nil {
		return fail(err)
	}

	err = c.Delete(ctx, id, func(tx core.Transaction) bool {
		if p.yes {
			return true
		}
		if tx.Description != "" {
			fmt.Fprintf(os.Stderr, "%d  %s  %s  %s\n", tx.ID, tx.Date.Spanish(), tx.Description, tx.Amount.Display())
		}
		return confirm(os.Stdin, client.ConfirmDelete)
	})
	if errors.Is(err, client.ErrCancelled) {
		return fail(err)
	}
	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
