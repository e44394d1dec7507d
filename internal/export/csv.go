// Package export renders a user's transactions as downloadable files.
package export

import (
	"io"
	"strconv"
	"strings"

	"ledger/internal/core"
)

const (
	CSVFilename    = "transacciones.csv"
	CSVContentType = "text/csv; charset=utf-8"
)

var csvHeader = []string{"ID", "Fecha", "Descripción", "Monto", "Tipo", "Categoría", "Cuenta"}

// WriteCSV writes a header line plus one line per transaction, in the given
// order. Lines are joined by "\n" with no trailing newline; only fields
// containing a comma, double quote or newline are quoted.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	lines := make([]string, 0, len(txs)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for _, tx := range txs {
		lines = append(lines, strings.Join([]string{
			strconv.FormatInt(tx.ID, 10),
			tx.Date.Spanish(),
			escapeCSV(tx.Description),
			tx.Amount.String(),
			escapeCSV(string(tx.Type)),
			escapeCSV(tx.Category),
			escapeCSV(tx.Account),
		}, ","))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func escapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
