package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"ledger/internal/client"
	"ledger/internal/export"
	"ledger/internal/summary"

	"github.com/google/subcommands"
	md "github.com/nao1215/markdown"
)

func printReport(w io.Writer, r summary.Report) {
	fmt.Fprintf(w, "Ingresos:     %s\n", r.Totals.Income.Display())
	fmt.Fprintf(w, "Gastos:       %s\n", r.Totals.Expense.Display())
	fmt.Fprintf(w, "Balance neto: %s\n", r.Totals.Net.Display())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(r.Accounts) > 0 {
		fmt.Fprintln(tw, "\nCUENTA\tBALANCE")
		for _, a := range r.Accounts {
			fmt.Fprintf(tw, "%s\t%s\n", a.Account, a.Balance.Display())
		}
	}
	if len(r.Monthly) > 0 {
		fmt.Fprintln(tw, "\nMES\tINGRESOS\tGASTOS\tBALANCE\t% INGRESOS\t% GASTOS")
		for _, m := range r.Monthly {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\t%.1f%%\n",
				m.Month, m.Income.Display(), m.Expense.Display(), m.Balance.Display(), m.IncomePercent, m.ExpensePercent)
		}
	}
	if len(r.Categories) > 0 {
		fmt.Fprintln(tw, "\nCATEGORÍA\tMONTO")
		for _, c := range r.Categories {
			fmt.Fprintf(tw, "%s\t%s\n", c.Category, c.Amount.Display())
		}
	}
	tw.Flush()
}

// reportMarkdown renders the report as a markdown document, suitable for
// pasting into notes or an issue.
func reportMarkdown(r summary.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Resumen financiero")
	if r.Alert != nil {
		doc.PlainText(md.Bold(r.Alert.Message))
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Concepto", "Monto"},
		Rows: [][]string{
			{"Ingresos", r.Totals.Income.Display()},
			{"Gastos", r.Totals.Expense.Display()},
			{"Balance neto", r.Totals.Net.Display()},
		},
	})

	if len(r.Accounts) > 0 {
		doc.H2("Cuentas")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Cuenta", "Balance"},
		}
		for _, a := range r.Accounts {
			table.Rows = append(table.Rows, []string{a.Account, a.Balance.Display()})
		}
		doc.Table(table)
	}

	if len(r.Monthly) > 0 {
		doc.H2("Resumen mensual")
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
			},
			Header: []string{"Mes", "Ingresos", "Gastos", "Balance"},
		}
		for _, m := range r.Monthly {
			table.Rows = append(table.Rows, []string{
				m.Month,
				m.Income.Display(),
				m.Expense.Display(),
				m.Balance.Display(),
			})
		}
		doc.Table(table)
	}

	if len(r.Categories) > 0 {
		doc.H2("Gastos por categoría")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Categoría", "Monto"},
		}
		for _, c := range r.Categories {
			table.Rows = append(table.Rows, []string{c.Category, c.Amount.Display()})
		}
		doc.Table(table)
	}

	return doc.String()
}

type summaryCmd struct {
	threshold string
	remote    bool
	format    string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show totals, balances and monthly figures" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary [-threshold <n>] [-remote] [-format text|markdown]

  Prints totals, per-account balances, monthly figures and spending by
  category. With -threshold a warning is shown when the net balance is lower.
`
}

func (p *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.threshold, "threshold", "", "warn when the net balance is below this amount")
	f.BoolVar(&p.remote, "remote", false, "let the server compute the report")
	f.StringVar(&p.format, "format", "text", "text or markdown")
}

func (p *summaryCmd) print(r summary.Report) subcommands.ExitStatus {
	switch p.format {
	case "text":
		printReport(os.Stdout, r)
	case "markdown":
		fmt.Print(reportMarkdown(r))
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", p.format)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

func (p *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(true)
	if err != nil {
		return fail(err)
	}

	if p.remote {
		threshold, err := client.ParseThreshold(p.threshold)
		if err != nil {
			return fail(err)
		}
		report, err := s.api.Summary(ctx, threshold)
		if err != nil {
			return fail(err)
		}
		if report.Alert != nil {
			fmt.Fprintf(os.Stderr, "[warning] %s\n", report.Alert.Message)
		}
		return p.print(report)
	}

	c, err := s.controller(ctx)
	if err != nil {
		return fail(err)
	}
	if err := c.SetThreshold(p.threshold); err != nil {
		return fail(err)
	}
	return p.print(c.State().Report)
}

type exportCmd struct {
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "download your transactions as CSV or PDF" }
func (*exportCmd) Usage() string {
	return `ledgerctl export [-format csv|pdf] [-o <file>]

  Writes the export to a file, or to stdout with -o -.
`
}

func (p *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.format, "format", "csv", "csv or pdf")
	f.StringVar(&p.output, "o", "", "output file (default transacciones.csv or reporte-transacciones.pdf)")
}

func (p *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var (
		download func(context.Context) ([]byte, error)
		filename string
	)
	s, err := openSession(true)
	if err != nil {
		return fail(err)
	}
	switch p.format {
	case "csv":
		download, filename = s.api.ExportCSV, export.CSVFilename
	case "pdf":
		download, filename = s.api.ExportPDF, export.PDFFilename
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", p.format)
		return subcommands.ExitUsageError
	}
	if p.output != "" {
		filename = p.output
	}

	body, err := download(ctx)
	if err != nil {
		if p.format == "csv" {
			fmt.Fprintln(os.Stderr, "No se pudo generar el archivo CSV.")
		}
		return fail(err)
	}
	if filename == "-" {
		_, err = os.Stdout.Write(body)
	} else {
		err = os.WriteFile(filename, body, 0o644)
	}
	if err != nil {
		return fail(err)
	}
	if filename != "-" {
		fmt.Fprintf(os.Stderr, "Exportado a %s (%d bytes).\n", filename, len(body))
	}
	return subcommands.ExitSuccess
}
