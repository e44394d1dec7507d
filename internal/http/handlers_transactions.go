package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := identityFrom(r.Context()).UserID
	txs, err := s.txs.List(r.Context(), owner)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(msgBadJSON).Write(w)
		return
	}
	f, err := req.fields()
	if err != nil {
		errorResponse(err).Write(w)
		return
	}

	tx, err := s.txs.Create(r.Context(), identityFrom(r.Context()).UserID, f)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.appMetrics.created.Add(1)
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(msgBadJSON).Write(w)
		return
	}
	f, err := req.fields()
	if err != nil {
		errorResponse(err).Write(w)
		return
	}

	tx, err := s.txs.Update(r.Context(), identityFrom(r.Context()).UserID, id, f)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.appMetrics.updated.Add(1)
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	if err := s.txs.Delete(r.Context(), identityFrom(r.Context()).UserID, id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.appMetrics.deleted.Add(1)
	NewJSONResponse().Message(msgDeleted).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	threshold, err := parseThreshold(r)
	if err != nil {
		errorResponse(err).Write(w)
		return
	}
	report, err := s.txs.Summary(r.Context(), identityFrom(r.Context()).UserID, threshold)
	if err != nil {
		s.fail(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, export.CSVContentType, export.CSVFilename, func(buf *bytes.Buffer, txs []core.Transaction) error {
		return export.WriteCSV(buf, txs)
	})
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, export.PDFContentType, export.PDFFilename, func(buf *bytes.Buffer, txs []core.Transaction) error {
		return export.WritePDF(buf, txs, time.Now())
	})
}

// serveExport renders the caller's transactions into an attachment. An
// empty ledger is 404.
func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, contentType, filename string, render func(*bytes.Buffer, []core.Transaction) error) {
	owner := identityFrom(r.Context()).UserID
	txs, err := s.txs.List(r.Context(), owner)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	if len(txs) == 0 {
		NotFoundError(msgNothingToExport).Write(w)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, txs); err != nil {
		s.fail(w, r, log.OpExport, fmt.Errorf("render %s: %w", filename, err))
		return
	}

	s.appMetrics.exported.Add(1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Exported transactions",
		log.FieldOperation, log.OpExport,
		log.FieldUserID, owner,
		log.FieldCount, len(txs),
		"format", contentType)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
