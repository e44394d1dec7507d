package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
	"ledger/internal/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func newTestServer(t *testing.T, rateLimit int) *Server {
	t.Helper()
	return newTestServerWith(t, func(d *Deps) { d.RateLimitPerMinute = rateLimit })
}

func newTestServerWith(t *testing.T, configure func(*Deps)) *Server {
	t.Helper()
	logger := log.New(log.DefaultConfig())
	store := memory.New()
	authSvc, err := auth.NewService(store, testSecret, auth.WithLogger(logger))
	require.NoError(t, err)
	lists := cache.NewLRUCache[int64, []core.Transaction](100, time.Minute)

	d := Deps{
		Auth:         authSvc,
		Transactions: services.NewTransactionService(store, nil, lists, logger),
		Store:        store,
		Lists:        lists,
		Logger:       logger,
	}
	configure(&d)
	return NewServer(":0", d)
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body messageBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body.Message
}

func login(t *testing.T, srv *Server, username, password string) string {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/auth/register", "", credentialsRequest{username, password})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = do(t, srv, http.MethodPost, "/api/auth/login", "", credentialsRequest{username, password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct{ Token string }
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func txBody(typ, date, desc string, amount any, account string) map[string]any {
	return map[string]any{
		"type": typ, "date": date, "description": desc,
		"amount": amount, "category": "Work", "account": account,
	}
}

func decodeTx(t *testing.T, rr *httptest.ResponseRecorder) core.Transaction {
	t.Helper()
	var tx core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tx), rr.Body.String())
	return tx
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []core.Transaction {
	t.Helper()
	var txs []core.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &txs), rr.Body.String())
	return txs
}

func TestAliceScenario(t *testing.T) {
	srv := newTestServer(t, 100)
	token := login(t, srv, "alice", "secret123")

	rr := do(t, srv, http.MethodPost, "/api/transactions", token,
		txBody("Ingreso", "2024-01-05", "Salary", 1000, "Checking"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeTx(t, rr)
	assert.Positive(t, created.ID)
	assert.Equal(t, core.Income, created.Type)
	assert.Equal(t, "2024-01-05", created.Date.String())
	assert.Equal(t, "Salary", created.Description)
	assert.Equal(t, int64(100000), created.Amount.Cents())
	assert.Equal(t, "Work", created.Category)
	assert.Equal(t, "Checking", created.Account)

	rr = do(t, srv, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeList(t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	path := "/api/transactions/" + itoa(created.ID)
	rr = do(t, srv, http.MethodPut, path, token, txBody("Ingreso", "2024-01-05", "Salary", 1200, "Checking"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(120000), decodeTx(t, rr).Amount.Cents())

	rr = do(t, srv, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, msgDeleted, message(t, rr))

	rr = do(t, srv, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, 100)
	login(t, srv, "bob", "hunter22")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		msg    string
	}{
		{"duplicate username", "/api/auth/register", credentialsRequest{"bob", "other"}, http.StatusConflict, msgUsernameTaken},
		{"empty username", "/api/auth/register", credentialsRequest{"", "pw"}, http.StatusBadRequest, msgCredentialsNeeded},
		{"empty password", "/api/auth/register", credentialsRequest{"carol", ""}, http.StatusBadRequest, msgCredentialsNeeded},
		{"malformed register", "/api/auth/register", "{", http.StatusBadRequest, msgBadJSON},
		{"malformed login", "/api/auth/login", "not json", http.StatusBadRequest, msgBadJSON},
		{"wrong password", "/api/auth/login", credentialsRequest{"bob", "nope"}, http.StatusUnauthorized, msgBadCredentials},
		{"unknown user", "/api/auth/login", credentialsRequest{"mallory", "hunter22"}, http.StatusUnauthorized, msgBadCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.msg, message(t, rr))
		})
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := do(t, srv, http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/transactions", "garbage.token.value", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOwnerIsolation(t *testing.T) {
	srv := newTestServer(t, 100)
	alice := login(t, srv, "alice", "secret123")
	eve := login(t, srv, "eve", "secret456")

	rr := do(t, srv, http.MethodPost, "/api/transactions", alice, txBody("Gasto", "2024-02-01", "Rent", 500, "Checking"))
	require.Equal(t, http.StatusCreated, rr.Code)
	path := "/api/transactions/" + itoa(decodeTx(t, rr).ID)

	rr = do(t, srv, http.MethodGet, "/api/transactions", eve, nil)
	assert.Empty(t, decodeList(t, rr))

	rr = do(t, srv, http.MethodPut, path, eve, txBody("Gasto", "2024-02-01", "Mine now", 1, "Checking"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	notOwned := message(t, rr)

	rr = do(t, srv, http.MethodDelete, path, eve, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/transactions/999999", eve, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, notOwned, message(t, rr))

	rr = do(t, srv, http.MethodGet, "/api/transactions", alice, nil)
	require.Len(t, decodeList(t, rr), 1)
}

func TestDeleteTwice(t *testing.T) {
	srv := newTestServer(t, 100)
	token := login(t, srv, "alice", "secret123")

	rr := do(t, srv, http.MethodPost, "/api/transactions", token, txBody("Gasto", "2024-02-01", "Coffee", 3.5, "Cash"))
	require.Equal(t, http.StatusCreated, rr.Code)
	path := "/api/transactions/" + itoa(decodeTx(t, rr).ID)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, path, token, nil).Code)
}

func TestTransactionValidation(t *testing.T) {
	srv := newTestServer(t, 100)
	token := login(t, srv, "alice", "secret123")

	rr := do(t, srv, http.MethodPost, "/api/transactions", token, txBody("Gasto", "2024-02-01", "Seed", 1, "Cash"))
	require.Equal(t, http.StatusCreated, rr.Code)
	path := "/api/transactions/" + itoa(decodeTx(t, rr).ID)

	missingAmount := txBody("Gasto", "2024-02-01", "x", nil, "Cash")
	delete(missingAmount, "amount")

	tests := []struct {
		name string
		body any
	}{
		{"missing amount", missingAmount},
		{"missing account", txBody("Gasto", "2024-02-01", "x", 1, "")},
		{"missing description", txBody("Gasto", "2024-02-01", "  ", 1, "Cash")},
		{"unknown type", txBody("Regalo", "2024-02-01", "x", 1, "Cash")},
		{"negative amount", txBody("Gasto", "2024-02-01", "x", -1, "Cash")},
		{"amount beyond int64 cents", txBody("Gasto", "2024-02-01", "x", 1e17, "Cash")},
		{"bad date", txBody("Gasto", "2024-13-45", "x", 1, "Cash")},
		{"malformed", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/transactions", token, tt.body).Code)
			assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPut, path, token, tt.body).Code)
		})
	}

	rr = do(t, srv, http.MethodPut, "/api/transactions/abc", token, txBody("Gasto", "2024-02-01", "x", 1, "Cash"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/transactions", token, txBody("Inversion", "2024-02-01T10:00:00Z", "Zero", 0, "Broker"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, decodeTx(t, rr).Amount.IsZero())
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, 100)
	token := login(t, srv, "alice", "secret123")

	rr := do(t, srv, http.MethodGet, "/api/transactions/export/csv", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, msgNothingToExport, message(t, rr))

	for _, b := range []map[string]any{
		txBody("Ingreso", "2024-01-05", "Salary", 1000, "Checking"),
		txBody("Gasto", "2024-01-09", "Dinner, drinks", 45.5, "Card"),
		txBody("Gasto", "2024-01-07", `The "good" coffee`, 3, "Cash"),
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions", token, b).Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/export/csv", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv"))
	assert.Equal(t, `attachment; filename="transacciones.csv"`, rr.Header().Get("Content-Disposition"))

	lines := strings.Split(rr.Body.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID,Fecha,Descripción,Monto,Tipo,Categoría,Cuenta", lines[0])
	assert.Contains(t, lines[1], `,09/01/2024,"Dinner, drinks",45.50,Gasto,Work,Card`)
	assert.Contains(t, lines[2], `,07/01/2024,"The ""good"" coffee",3.00,Gasto,Work,Cash`)
	assert.Contains(t, lines[3], ",05/01/2024,Salary,1000.00,Ingreso,Work,Checking")
}

func TestExportPDF(t *testing.T) {
	srv := newTestServer(t, 100)
	token := login(t, srv, "alice", "secret123")

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/transactions/export/pdf", token, nil).Code)

	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/api/transactions", token, txBody("Gasto", "2024-01-09", "Cena", 45, "Tarjeta")).Code)

	rr := do(t, srv, http.MethodGet, "/api/transactions/export/pdf", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t, 100)
	token := login(t, srv, "alice", "secret123")

	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/api/transactions", token, txBody("Ingreso", "2024-03-01", "Pay", 100, "Bank")).Code)
	require.Equal(t, http.StatusCreated,
		do(t, srv, http.MethodPost, "/api/transactions", token, txBody("Gasto", "2024-03-02", "Food", 40, "Bank")).Code)

	rr := do(t, srv, http.MethodGet, "/api/transactions/summary?threshold=100", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report summary.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Len(t, report.Monthly, 1)
	assert.Equal(t, int64(6000), report.Monthly[0].Balance.Cents())
	assert.InDelta(t, 71.4, report.Monthly[0].IncomePercent, 0.001)
	assert.InDelta(t, 28.6, report.Monthly[0].ExpensePercent, 0.001)
	require.NotNil(t, report.Alert)

	rr = do(t, srv, http.MethodGet, "/api/transactions/summary", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	report = summary.Report{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Nil(t, report.Alert)

	rr = do(t, srv, http.MethodGet, "/api/transactions/summary?threshold=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRateLimitOnAuth(t *testing.T) {
	srv := newTestServer(t, 2)
	for i := 0; i < 2; i++ {
		rr := do(t, srv, http.MethodPost, "/api/auth/login", "", credentialsRequest{"x", "y"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/auth/login", "", credentialsRequest{"x", "y"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, msgRateLimited, message(t, rr))
}

func TestRateLimitTrustsOnlyConfiguredProxies(t *testing.T) {
	srv := newTestServerWith(t, func(d *Deps) {
		d.RateLimitPerMinute = 1
		d.TrustedProxies = []string{"10.9.0.0/16"}
	})

	attempt := func(remote, forwarded string) int {
		body := strings.NewReader(`{"username":"x","password":"y"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", forwarded)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnauthorized, attempt("192.168.1.20:5000", "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("192.168.1.20:5000", "203.0.113.2"),
		"a LAN peer cannot rotate X-Forwarded-For")

	assert.Equal(t, http.StatusUnauthorized, attempt("10.9.0.4:443", "203.0.113.3"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("10.9.0.5:443", "203.0.113.3"),
		"behind the proxy the forwarded client is limited")
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)

	rr := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ready"`)

	rr = do(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
	assert.Contains(t, rr.Body.String(), "cache_hits_total")

	rr = do(t, srv, http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
