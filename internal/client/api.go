// Package client talks to the ledger API and owns the state behind the
// transaction form: the local list, the create/edit mode and the report
// derived from them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/summary"
)

// APIError is a non-2xx answer from the server. It unwraps to the core
// sentinel matching its status so callers can use errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("server answered %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return core.ErrValidation
	case http.StatusUnauthorized:
		return core.ErrAuth
	case http.StatusForbidden:
		return core.ErrForbidden
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusConflict:
		return core.ErrConflict
	}
	return nil
}

// API is a typed client for the /api surface.
type API struct {
	baseURL string
	http    *http.Client
	token   string
}

type APIOption func(*API)

// WithHTTPClient replaces the default client, which times out after 15s.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.http = c }
}

// WithToken sets the bearer token sent on authenticated calls.
func WithToken(token string) APIOption {
	return func(a *API) { a.token = token }
}

func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) SetToken(token string) { a.token = token }
func (a *API) Token() string         { return a.token }

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) Register(ctx context.Context, username, password string) error {
	return a.do(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, nil)
}

// Login exchanges credentials for a token and keeps it for later calls.
func (a *API) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login answered without a token")
	}
	a.token = out.Token
	return out.Token, nil
}

func (a *API) List(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := a.do(ctx, http.MethodGet, "/api/transactions", nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (a *API) Create(ctx context.Context, f core.TransactionFields) (core.Transaction, error) {
	var tx core.Transaction
	err := a.do(ctx, http.MethodPost, "/api/transactions", f, &tx)
	return tx, err
}

func (a *API) Update(ctx context.Context, id int64, f core.TransactionFields) (core.Transaction, error) {
	var tx core.Transaction
	err := a.do(ctx, http.MethodPut, "/api/transactions/"+strconv.FormatInt(id, 10), f, &tx)
	return tx, err
}

func (a *API) Delete(ctx context.Context, id int64) error {
	return a.do(ctx, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(id, 10), nil, nil)
}

// Summary fetches the server-side report. A nil threshold disables the alert.
func (a *API) Summary(ctx context.Context, threshold *core.Money) (summary.Report, error) {
	path := "/api/transactions/summary"
	if threshold != nil {
		path += "?threshold=" + url.QueryEscape(threshold.String())
	}
	var r summary.Report
	err := a.do(ctx, http.MethodGet, path, nil, &r)
	return r, err
}

func (a *API) ExportCSV(ctx context.Context) ([]byte, error) {
	return a.download(ctx, "/api/transactions/export/csv")
}

func (a *API) ExportPDF(ctx context.Context) ([]byte, error) {
	return a.download(ctx, "/api/transactions/export/pdf")
}

func (a *API) download(ctx context.Context, path string) ([]byte, error) {
	resp, err := a.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}

// do sends body as JSON and decodes a 2xx answer into out when out is
// non-nil.
func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}
	resp, err := a.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx answers into *APIError. The
// caller closes the body of a successful response.
func (a *API) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&msg); err == nil {
		apiErr.Message = msg.Message
	}
	return nil, apiErr
}
