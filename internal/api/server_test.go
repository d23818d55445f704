package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymngr/moneymngr/internal/accounts"
	"github.com/moneymngr/moneymngr/internal/backup"
	"github.com/moneymngr/moneymngr/internal/categories"
	"github.com/moneymngr/moneymngr/internal/history"
	"github.com/moneymngr/moneymngr/internal/importer"
	"github.com/moneymngr/moneymngr/internal/journal"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/parser"
	"github.com/moneymngr/moneymngr/internal/store"
	"github.com/moneymngr/moneymngr/internal/threshold"
)

type testServer struct {
	handler http.Handler
	store   *store.Store
	bank    string
	food    string
}

func newTestServer(t *testing.T, withBackup bool) testServer {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	acctSvc := accounts.NewService(s, nil)
	bank, err := acctSvc.Create(ctx, accounts.CreateParams{Name: "HDFC Bank", OpeningBalance: dec("10000"), ThresholdValue: dec("2000")})
	require.NoError(t, err)
	catSvc := categories.NewService(s, nil)
	food, err := catSvc.Create(ctx, categories.CreateParams{Name: "Food", Type: model.CategoryTypeExpense})
	require.NoError(t, err)

	d := Deps{
		Accounts:   acctSvc,
		Categories: catSvc,
		Journal:    journal.NewService(s, nil),
		History:    history.NewService(s),
		Importer:   importer.NewService(s, nil),
		MagicBox:   parser.NewMagicBox(parser.DefaultThresholds()),
		Evaluator:  threshold.Evaluator{Symbol: "₹"},
		Location:   time.UTC,
	}
	if withBackup {
		objects := backup.NewDirStore(t.TempDir())
		d.Backup = backup.NewService(s, objects, nil, zerolog.Nop(), 0)
		d.Snapshots = backup.NewSnapshotStore(objects)
	}
	return testServer{
		handler: NewServer(d, zerolog.Nop()).Handler(),
		store:   s,
		bank:    bank.ID,
		food:    food.ID,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (ts testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, path, nil)
	case string:
		r = httptest.NewRequest(method, path, strings.NewReader(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts testServer) balance(t *testing.T, id string) string {
	t.Helper()
	a, err := ts.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func TestAccounts(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "Wallet", "type": "wallet", "balance": "250.5"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody(t, w)
	assert.Equal(t, "WALLET", created["type"])
	assert.Equal(t, "250.5", created["balance"])

	w = ts.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "Wallet"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/accounts", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeBody(t, w)["count"])

	w = ts.do(t, http.MethodGet, "/api/accounts/Wallet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created["id"], decodeBody(t, w)["id"])

	w = ts.do(t, http.MethodPatch, "/api/accounts/"+created["id"].(string), map[string]any{"thresholdValue": "100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "100", decodeBody(t, w)["thresholdValue"])

	w = ts.do(t, http.MethodDelete, "/api/accounts/"+created["id"].(string), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/accounts/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactions(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"transactionType": "EXPENSE", "amount": "1500", "fromAccountId": ts.bank,
		"categoryId": ts.food, "description": "groceries", "date": "2024-03-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tx := decodeBody(t, w)
	assert.Equal(t, "CONFIRMED", tx["status"])
	assert.Equal(t, "8500.00", ts.balance(t, ts.bank))
	txID := tx["id"].(string)

	// Missing category type and zero amount are both validation failures.
	w = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"transactionType": "EXPENSE", "amount": "0", "fromAccountId": ts.bank,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{"transactionType": "GIFT", "amount": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "8500.00", ts.balance(t, ts.bank))

	w = ts.do(t, http.MethodGet, "/api/transactions?account="+ts.bank+"&from=2024-03-01&to=2024-03-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["count"])

	w = ts.do(t, http.MethodGet, "/api/transactions?from=2024-03-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decodeBody(t, w)["count"])

	w = ts.do(t, http.MethodGet, "/api/transactions?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/transactions/"+txID, map[string]any{"amount": "1000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "9000.00", ts.balance(t, ts.bank))

	// Only PENDING rows can be confirmed.
	w = ts.do(t, http.MethodPost, "/api/transactions/"+txID+"/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/transactions/"+txID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "10000.00", ts.balance(t, ts.bank))

	w = ts.do(t, http.MethodGet, "/api/transactions/"+txID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/transactions/bulk-delete", map[string]any{"ids": []string{txID}})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 0, body["affected"])
	assert.Len(t, body["errors"], 1)
}

func TestThresholdAndHistory(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodGet, "/api/accounts/"+ts.bank+"/threshold?spend=7700", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, string(threshold.StatusCritical), body["status"])
	assert.Equal(t, "300", body["spendable"])
	assert.Equal(t, true, body["isAboveThreshold"])

	w = ts.do(t, http.MethodGet, "/api/accounts/"+ts.bank+"/threshold?spend=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/accounts/"+ts.bank+"/history?from=2024-01-01&to=2024-01-03", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	points := decodeBody(t, w)["points"].([]any)
	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-01", points[0].(map[string]any)["date"])

	w = ts.do(t, http.MethodGet, "/api/accounts/"+ts.bank+"/history?from=2024-01-03&to=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/networth?from=bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseMagic(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/parse/magic", map[string]any{"text": "250 lunch hdfc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entry := decodeBody(t, w)["entry"].(map[string]any)
	assert.Equal(t, true, entry["hasAmount"])
	assert.Equal(t, ts.bank, entry["accountMatch"].(map[string]any)["id"])
	assert.Equal(t, "10000.00", ts.balance(t, ts.bank))

	w = ts.do(t, http.MethodPost, "/api/parse/magic", map[string]any{"text": "250 lunch hdfc", "save": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tx := decodeBody(t, w)["transaction"].(map[string]any)
	assert.Equal(t, "MAGIC_BOX", tx["source"])
	assert.Equal(t, "9750.00", ts.balance(t, ts.bank))

	w = ts.do(t, http.MethodPost, "/api/parse/magic", map[string]any{"text": "lunch", "save": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

const hdfcDebit = "Rs.1,500.00 debited from HDFC Bank A/c XX1234 on 05-01-24 at SWIGGY. Avl Bal Rs 10,250.75. UPI Ref 401234567890"

type stubSuggester struct {
	calls int
	last  parser.SuggestRequest
}

func (s *stubSuggester) Suggest(_ context.Context, req parser.SuggestRequest) (parser.Suggestion, error) {
	s.calls++
	s.last = req
	return parser.Suggestion{}, errors.New("offline")
}

func TestParseSMS(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodPost, "/api/parse/sms", map[string]any{"text": hdfcDebit})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, ts.bank, body["accountId"])
	assert.Equal(t, ts.food, body["categoryId"])
	assert.Nil(t, body["transaction"])

	w = ts.do(t, http.MethodPost, "/api/parse/sms", map[string]any{"text": hdfcDebit, "autoSubmit": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, true, body["autoSubmit"])
	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "PENDING", tx["status"])
	assert.Equal(t, "SMS_PARSER", tx["source"])
	assert.Equal(t, "8500.00", ts.balance(t, ts.bank))

	w = ts.do(t, http.MethodPost, "/api/parse/sms", map[string]any{"text": "hello there"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestParseSMS_SuggesterFailureIsIgnored(t *testing.T) {
	ts := newTestServer(t, false)
	stub := &stubSuggester{}
	jr := journal.NewService(ts.store, nil)
	s := NewServer(Deps{
		Accounts:   accounts.NewService(ts.store, nil),
		Categories: categories.NewService(ts.store, nil),
		Journal:    jr,
		Suggester:  stub,
	}, zerolog.Nop())

	_, err := jr.Create(context.Background(), journal.CreateParams{
		Amount: dec("320"), Type: model.TransactionTypeExpense,
		FromAccountID: ts.bank, CategoryID: ts.food, Description: "SWIGGY lunch",
	})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/parse/sms", strings.NewReader(fmt.Sprintf(`{"text":%q,"suggest":true}`, hdfcDebit)))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, []string{"SWIGGY lunch: Food"}, stub.last.Recent)
}

func TestImportCSV(t *testing.T) {
	ts := newTestServer(t, false)
	csv := "Date,Account,Category,Amount,Type\n" +
		"01-01-2024,HDFC Bank,Food,100,Expense\n" +
		"02-01-2024,HDFC Bank,Food,-3,Expense\n"

	w := ts.do(t, http.MethodPost, "/api/import", csv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["imported"])
	assert.Len(t, body["errors"], 1)
	assert.Equal(t, "9900.00", ts.balance(t, ts.bank))
}

func TestBackupAndSnapshots(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(t, http.MethodPost, "/api/backup/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/backup/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "error", decodeBody(t, w)["status"])

	w = ts.do(t, http.MethodPost, "/api/backup/push", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decodeBody(t, w)["accounts"])

	w = ts.do(t, http.MethodPost, "/api/snapshots", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snapID := decodeBody(t, w)["id"].(string)

	w = ts.do(t, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["count"])

	w = ts.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "Later"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, "/api/snapshots/"+snapID+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err := ts.store.GetAccountByName(context.Background(), "Later")
	assert.ErrorIs(t, err, store.ErrAccountNotFound)

	w = ts.do(t, http.MethodPost, "/api/backup/restore", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodDelete, "/api/snapshots/"+snapID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/snapshots/"+snapID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackupDisabled(t *testing.T) {
	ts := newTestServer(t, false)
	for _, path := range []string{"/api/backup/status", "/api/snapshots"} {
		w := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{journal.ValidationError{Field: "amount", Message: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("creating account: %w", model.ValidationError{Field: "name", Message: "required"}), http.StatusBadRequest},
		{fmt.Errorf("x: %w", store.ErrAccountNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", store.ErrEntityInUse), http.StatusConflict},
		{&backup.RemoteSyncError{Op: "push", Err: errors.New("down")}, http.StatusBadGateway},
		{&backup.RemoteSyncError{Op: "pull", Err: backup.ErrNotFound}, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err, http.StatusInternalServerError), tt.err.Error())
	}
}
