// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

var errBadJSON = errors.New("malformed request body")

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", errBadJSON)
	}
	return nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// transactionRequest is the body of create and update. Amount is a pointer
// so that an explicit 0 can be told apart from a missing field.
type transactionRequest struct {
	Type        core.TransactionType `json:"type"`
	Date        core.Date            `json:"date"`
	Description string               `json:"description"`
	Amount      *core.Money          `json:"amount"`
	Category    string               `json:"category"`
	Account     string               `json:"account"`
}

// fields checks required fields, sanitizes text and validates the result.
func (req transactionRequest) fields() (core.TransactionFields, error) {
	var missing []string
	if strings.TrimSpace(string(req.Type)) == "" {
		missing = append(missing, "type")
	}
	if req.Date.IsZero() {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.Description) == "" {
		missing = append(missing, "description")
	}
	if req.Amount == nil {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(req.Account) == "" {
		missing = append(missing, "account")
	}
	if len(missing) > 0 {
		return core.TransactionFields{}, &core.MissingFieldsError{Fields: missing}
	}

	f := core.TransactionFields{
		Type:        core.TransactionType(strings.TrimSpace(string(req.Type))),
		Date:        req.Date,
		Description: sanitizeInput(req.Description),
		Amount:      *req.Amount,
		Category:    sanitizeInput(req.Category),
		Account:     sanitizeInput(req.Account),
	}
	if err := f.Validate(); err != nil {
		return core.TransactionFields{}, err
	}
	return f, nil
}

// parseID reads the {id} route parameter.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid transaction id", core.ErrValidation)
	}
	return id, nil
}

// parseThreshold reads the optional ?threshold= query parameter, which may
// be negative.
func parseThreshold(r *http.Request) (*core.Money, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("threshold"))
	if raw == "" {
		return nil, nil
	}
	neg := strings.HasPrefix(raw, "-")
	m, err := core.ParseMoney(strings.TrimPrefix(raw, "-"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid threshold", core.ErrValidation)
	}
	if neg {
		m = m.Neg()
	}
	return &m, nil
}

// bearerToken returns the second word of the Authorization header, or "".
func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
