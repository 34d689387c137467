package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stase/internal/handlers"
	"stase/internal/logger"
	"stase/internal/repositories/memory"
	"stase/internal/services/exchange"
	"stase/internal/services/transaction"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
}

func newTestServer(t *testing.T, checks map[string]handlers.Pinger) *testServer {
	t.Helper()
	return newLimitedServer(t, checks, 100)
}

func newLimitedServer(t *testing.T, checks map[string]handlers.Pinger, pinRateMax int) *testServer {
	t.Helper()
	store := memory.NewStore()
	app := fiber.New()
	cfg := transaction.DefaultConfig()
	cfg.RetryBackoff = 0
	SetupRoutes(app, Dependencies{
		Store:         store,
		Rates:         exchange.NewDefaultTable(),
		Engine:        cfg,
		PinCost:       bcrypt.MinCost,
		PinRateMax:    pinRateMax,
		PinRateWindow: time.Minute,
		HealthChecks:  checks,
		Log:           logger.Discard(),
	})
	return &testServer{t: t, app: app, store: store}
}

func (s *testServer) do(method, path, credential string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if credential != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+credential)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// register creates a user with a PIN of 1234.
func (s *testServer) register(credential, username string) {
	s.t.Helper()
	status, body := s.do(http.MethodPost, "/api/auth/create-account", credential, map[string]string{
		"firstName": "First", "lastName": username, "username": username, "email": username + "@example.com",
	})
	require.Equal(s.t, http.StatusCreated, status, body)
	status, body = s.do(http.MethodPost, "/api/auth/create-transaction-pin", credential, map[string]string{"pin": "1234"})
	require.Equal(s.t, http.StatusOK, status, body)
}

func balances(body map[string]interface{}) map[string]string {
	out := map[string]string{}
	accounts, _ := body["bankAccounts"].([]interface{})
	for _, a := range accounts {
		m := a.(map[string]interface{})
		out[m["accountCurrency"].(string)] = m["balance"].(string)
	}
	return out
}

func TestCreateAccount(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(http.MethodPost, "/api/auth/create-account", "ext-ada", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "username": "ada_l", "email": "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["bankAccounts"], 4)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ext-ada", user["clerkUserId"])
	assert.NotContains(t, user, "transactionPin")

	status, body = s.do(http.MethodPost, "/api/auth/create-account", "ext-other", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "username": "ADA_L", "email": "new@example.com",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])

	status, _ = s.do(http.MethodPost, "/api/auth/create-account", "", map[string]string{
		"firstName": "A", "lastName": "B", "username": "abc", "email": "abc@example.com",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPinEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	_, _ = s.do(http.MethodPost, "/api/auth/create-account", "ext-ada", map[string]string{
		"firstName": "Ada", "lastName": "L", "username": "ada_l", "email": "ada@example.com",
	})

	status, body := s.do(http.MethodGet, "/api/auth/check-transaction-pin", "ext-ada", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["hasTransactionPin"])

	status, body = s.do(http.MethodPost, "/api/auth/validate-transaction-pin", "ext-ada", map[string]string{"pin": "1234"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "PIN_NOT_CONFIGURED", body["code"])

	status, _ = s.do(http.MethodPost, "/api/auth/create-transaction-pin", "ext-ada", map[string]string{"pin": "12a4"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPost, "/api/auth/create-transaction-pin", "ext-ada", map[string]string{"pin": "4321"})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(http.MethodGet, "/api/auth/check-transaction-pin", "ext-ada", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["hasTransactionPin"])

	status, body = s.do(http.MethodPost, "/api/auth/validate-transaction-pin", "ext-ada", map[string]string{"pin": "43"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_PIN_FORMAT", body["code"])
	assert.Contains(t, body["details"], "pin")

	status, _ = s.do(http.MethodPost, "/api/auth/validate-transaction-pin", "ext-ada", map[string]string{"pin": "4321"})
	assert.Equal(t, http.StatusOK, status)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("ext-ada", "ada_l")

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/deposit", strings.NewReader("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer ext-ada")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_FIELDS", body["code"])
	assert.Equal(t, "invalid request body", body["error"])
}

func TestPinLimiter(t *testing.T) {
	s := newLimitedServer(t, nil, 3)
	s.register("ext-ada", "ada_l")

	for i := 0; i < 3; i++ {
		status, _ := s.do(http.MethodPost, "/api/auth/validate-transaction-pin", "ext-ada", map[string]string{"pin": "0000"})
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := s.do(http.MethodPost, "/api/auth/validate-transaction-pin", "ext-ada", map[string]string{"pin": "1234"})
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestCheckUser(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("ext-ada", "ada_l")

	status, body := s.do(http.MethodPost, "/api/auth/check-user", "", map[string]string{"email": "ADA_L@example.com"})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "First ada_l", data["fullName"])

	status, _ = s.do(http.MethodPost, "/api/auth/check-user", "", map[string]string{"username": "nobody"})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.do(http.MethodPost, "/api/auth/check-user", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTransactionFlow(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("ext-ada", "ada_l")
	s.register("ext-bob", "bob_b")

	status, body := s.do(http.MethodPost, "/api/transactions/deposit", "ext-ada", map[string]interface{}{
		"amount": 500, "accountCurrency": "USD", "transactionPin": "1234",
	})
	require.Equal(t, http.StatusOK, status, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "500.00", data["newBalance"])
	assert.Contains(t, data["reference"], "DEP")
	assert.Equal(t, "500", balances(body)["USD"])
	assert.Len(t, body["transactions"], 1)

	status, body = s.do(http.MethodPost, "/api/transactions/transfer", "ext-ada", map[string]interface{}{
		"username": "bob_b", "accountCurrency": "USD", "amount": "120.50",
	})
	require.Equal(t, http.StatusOK, status, body)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "379.50", data["sender"].(map[string]interface{})["newBalance"])
	assert.Equal(t, "120.50", data["receiver"].(map[string]interface{})["newBalance"])

	status, body = s.do(http.MethodPost, "/api/transactions/convert", "ext-ada", map[string]interface{}{
		"convertFromAmount": 100, "convertFromAccountCurrency": "USD",
		"convertToAmount": 136, "convertToAccountCurrency": "CAD",
		"currencyPairs": "USD-CAD",
	})
	require.Equal(t, http.StatusOK, status, body)
	details := body["data"].(map[string]interface{})["conversionDetails"].(map[string]interface{})
	assert.Equal(t, "136.00", details["convertToAmount"])
	assert.Equal(t, "1.36000", details["exchangeRate"])

	status, body = s.do(http.MethodPost, "/api/transactions/withdraw", "ext-ada", map[string]interface{}{
		"amount": 79.5, "accountCurrency": "USD", "transactionPin": "1234",
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(http.MethodGet, "/api/account/user-details", "ext-ada", nil)
	require.Equal(t, http.StatusOK, status)
	b := balances(body)
	assert.Equal(t, "200", b["USD"])
	assert.Equal(t, "136", b["CAD"])

	rows := body["transactions"].([]interface{})
	require.Len(t, rows, 5)
	kinds := map[string]int{}
	for _, r := range rows {
		row := r.(map[string]interface{})
		kinds[row["transactionType"].(string)]++
		if row["transactionType"] == "send" {
			assert.Equal(t, "ada_l", row["from"])
			assert.Equal(t, "bob_b", row["to"])
		}
		if row["transactionType"] == "deposit" {
			assert.Nil(t, row["from"])
		}
	}
	assert.Equal(t, map[string]int{"deposit": 1, "send": 1, "convert": 2, "withdraw": 1}, kinds)

	status, body = s.do(http.MethodGet, "/api/account/user-details", "ext-bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "120.5", balances(body)["USD"])
}

func TestTransactionErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("ext-ada", "ada_l")
	s.register("ext-bob", "bob_b")

	tests := []struct {
		name       string
		path       string
		credential string
		body       interface{}
		status     int
		code       string
	}{
		{"no credential", "/api/transactions/deposit", "", map[string]interface{}{"amount": 1, "accountCurrency": "USD", "transactionPin": "1234"}, 401, "UNAUTHORIZED"},
		{"unknown user", "/api/transactions/deposit", "ext-ghost", map[string]interface{}{"amount": 1, "accountCurrency": "USD", "transactionPin": "1234"}, 401, "UNAUTHORIZED"},
		{"over maximum", "/api/transactions/deposit", "ext-ada", map[string]interface{}{"amount": "100000.01", "accountCurrency": "USD", "transactionPin": "1234"}, 400, "MAX_LIMIT_EXCEEDED"},
		{"bad currency", "/api/transactions/deposit", "ext-ada", map[string]interface{}{"amount": 1, "accountCurrency": "JPY", "transactionPin": "1234"}, 400, "INVALID_CURRENCY"},
		{"insufficient", "/api/transactions/withdraw", "ext-ada", map[string]interface{}{"amount": 1, "accountCurrency": "USD", "transactionPin": "1234"}, 400, "INSUFFICIENT_FUNDS"},
		{"precision", "/api/transactions/transfer", "ext-ada", map[string]interface{}{"username": "bob_b", "accountCurrency": "USD", "amount": 10.005}, 400, "INVALID_PRECISION"},
		{"deposit precision", "/api/transactions/deposit", "ext-ada", map[string]interface{}{"amount": "10.005", "accountCurrency": "USD", "transactionPin": "1234"}, 400, "INVALID_PRECISION"},
		{"self transfer", "/api/transactions/transfer", "ext-ada", map[string]interface{}{"username": "ada_l", "accountCurrency": "USD", "amount": 1}, 400, "SELF_TRANSFER"},
		{"no recipient", "/api/transactions/transfer", "ext-ada", map[string]interface{}{"email": "ghost@example.com", "accountCurrency": "USD", "amount": 1}, 404, "RECIPIENT_NOT_FOUND"},
		{"rate mismatch", "/api/transactions/convert", "ext-ada", map[string]interface{}{"convertFromAmount": 100, "convertFromAccountCurrency": "USD", "convertToAmount": 200, "convertToAccountCurrency": "CAD", "currencyPairs": "USD-CAD"}, 400, "RATE_MISMATCH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(http.MethodPost, tt.path, tt.credential, tt.body)
			assert.Equal(t, tt.status, status, body)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, false, body["success"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/deposit", bytes.NewBufferString("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer ext-ada")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Pinger{
		"database": func(ctx context.Context) error { return nil },
	})
	status, body := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])

	s = newTestServer(t, map[string]handlers.Pinger{
		"cache": func(ctx context.Context) error { return errors.New("down") },
	})
	status, body = s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", body["services"].(map[string]interface{})["cache"])
}
