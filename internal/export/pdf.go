package export

import (
	"fmt"
	"io"
	"time"

	"ledger/internal/core"

	"github.com/go-pdf/fpdf"
)

const (
	PDFFilename    = "reporte-transacciones.pdf"
	PDFContentType = "application/pdf"
	PDFTitle       = "Reporte de Transacciones"
)

type pdfColumn struct {
	title string
	width float64
	align string
	value func(core.Transaction) string
}

var pdfColumns = []pdfColumn{
	{"Fecha", 24, "L", func(tx core.Transaction) string { return tx.Date.Spanish() }},
	{"Descripción", 60, "L", func(tx core.Transaction) string { return tx.Description }},
	{"Monto", 28, "R", func(tx core.Transaction) string { return tx.Amount.Display() }},
	{"Tipo", 22, "L", func(tx core.Transaction) string { return string(tx.Type) }},
	{"Categoría", 28, "L", func(tx core.Transaction) string { return tx.Category }},
	{"Cuenta", 28, "L", func(tx core.Transaction) string { return tx.Account }},
}

// WritePDF renders a one-table A4 report of txs in the given order.
func WritePDF(w io.Writer, txs []core.Transaction, generated time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(PDFTitle, true)
	pdf.SetCreationDate(generated)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(PDFTitle), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Generado el %s - %d movimientos", generated.Format("02/01/2006 15:04"), len(txs))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(41, 128, 185)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 8, tr(c.title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, tx := range txs {
		if pdf.GetY()+7 > pageHeight-bottom-10 {
			pdf.AddPage()
			header()
		}
		fill := i%2 == 1
		pdf.SetFillColor(240, 240, 240)
		for _, c := range pdfColumns {
			text := fit(pdf, tr, c.value(tx), c.width-2)
			pdf.CellFormat(c.width, 7, text, "1", 0, c.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// fit translates the UTF-8 value s with tr, truncating it with an
// ellipsis so it renders within width. Truncation happens on s so that
// multi-byte characters are never split.
func fit(pdf *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if out := tr(s); pdf.GetStringWidth(out) <= width {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(tr(string(runes)+"...")) > width {
		runes = runes[:len(runes)-1]
	}
	return tr(string(runes) + "...")
}
