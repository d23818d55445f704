package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/accounts"
	"github.com/moneymngr/moneymngr/internal/categories"
	"github.com/moneymngr/moneymngr/internal/journal"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

const defaultHistoryDays = 30

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Accounts.All(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": mapSlice(all, toAccountView),
		"count":    len(all),
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Accounts.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toAccountView(a))
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string          `json:"name"`
		Type              string          `json:"type"`
		Balance           decimal.Decimal `json:"balance"`
		ThresholdValue    decimal.Decimal `json:"thresholdValue"`
		Group             string          `json:"group"`
		IncludeInNetWorth *bool           `json:"includeInNetWorth"`
		IsLiability       bool            `json:"isLiability"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := s.deps.Accounts.Create(r.Context(), accounts.CreateParams{
		Name: req.Name, Type: model.MigrateAccountType(req.Type),
		OpeningBalance: req.Balance, ThresholdValue: req.ThresholdValue,
		Group: req.Group, IncludeInNetWorth: req.IncludeInNetWorth, IsLiability: req.IsLiability,
	})
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountView(a))
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              *string          `json:"name"`
		Type              *string          `json:"type"`
		ThresholdValue    *decimal.Decimal `json:"thresholdValue"`
		Group             *string          `json:"group"`
		IncludeInNetWorth *bool            `json:"includeInNetWorth"`
		IsLiability       *bool            `json:"isLiability"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := accounts.UpdateParams{
		Name: req.Name, ThresholdValue: req.ThresholdValue, Group: req.Group,
		IncludeInNetWorth: req.IncludeInNetWorth, IsLiability: req.IsLiability,
	}
	if req.Type != nil {
		at := model.AccountType(*req.Type)
		p.Type = &at
	}
	a, err := s.deps.Accounts.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, toAccountView(a))
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Accounts.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) accountThreshold(w http.ResponseWriter, r *http.Request) {
	spend := decimal.Zero
	if v := r.URL.Query().Get("spend"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			writeError(w, http.StatusBadRequest, "spend must be a non-negative number")
			return
		}
		spend = d
	}
	p, err := s.deps.Journal.ThresholdPreview(r.Context(), mux.Vars(r)["id"], spend, s.deps.Evaluator)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toThresholdView(p))
}

// dateRange reads ?from= and ?to= as calendar dates, defaulting to the
// last defaultHistoryDays days.
func (s *Server) dateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().In(s.deps.Location)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.deps.Location)
	from := to.AddDate(0, 0, -defaultHistoryDays)
	q := r.URL.Query()
	for key, dst := range map[string]*time.Time{"from": &from, "to": &to} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(time.DateOnly, v, s.deps.Location)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", key)
		}
		*dst = t
	}
	return from, to, nil
}

func (s *Server) accountHistory(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := s.deps.History.AccountSeries(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": mapSlice(points, toPointView)})
}

func (s *Server) netWorth(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := s.deps.History.NetWorthSeries(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": mapSlice(points, toNetWorthView)})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	all, err := s.deps.Categories.All(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if t := r.URL.Query().Get("type"); t != "" {
		all = categories.ByType(all, model.CategoryType(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": mapSlice(all, toCategoryView),
		"count":      len(all),
	})
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Type      string `json:"type"`
		ParentID  string `json:"parentId"`
		Icon      string `json:"icon"`
		SortOrder int    `json:"sortOrder"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.deps.Categories.Create(r.Context(), categories.CreateParams{
		Name: req.Name, Type: model.CategoryType(req.Type), ParentID: req.ParentID,
		Icon: req.Icon, SortOrder: req.SortOrder,
	})
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryView(c))
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Categories.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TransactionFilter{
		AccountID:  q.Get("account"),
		CategoryID: q.Get("category"),
		Type:       model.TransactionType(q.Get("type")),
		Status:     model.TransactionStatus(q.Get("status")),
		Search:     q.Get("q"),
	}
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, err := s.dateRange(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if q.Get("from") != "" {
			f.From = from
		}
		if q.Get("to") != "" {
			f.To = to.AddDate(0, 0, 1)
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	txns, err := s.deps.Journal.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": mapSlice(txns, toTransactionView),
		"count":        len(txns),
	})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Journal.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionView(t))
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date            *time.Time      `json:"date"`
		Amount          decimal.Decimal `json:"amount"`
		Type            string          `json:"transactionType"`
		FromAccountID   string          `json:"fromAccountId"`
		ToAccountID     string          `json:"toAccountId"`
		CategoryID      string          `json:"categoryId"`
		Description     string          `json:"description"`
		Status          string          `json:"status"`
		IsLinked        bool            `json:"isLinked"`
		PersonAccountID string          `json:"personAccountId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txType, err := model.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := journal.CreateParams{
		Amount: req.Amount, Type: txType,
		FromAccountID: req.FromAccountID, ToAccountID: req.ToAccountID, CategoryID: req.CategoryID,
		Description: req.Description, Status: model.TransactionStatus(req.Status),
		IsLinked: req.IsLinked, PersonAccountID: req.PersonAccountID,
	}
	if req.Date != nil {
		p.Date = *req.Date
	}
	t, err := s.deps.Journal.Create(r.Context(), p)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionView(t))
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date          *time.Time       `json:"date"`
		Amount        *decimal.Decimal `json:"amount"`
		Type          *string          `json:"transactionType"`
		FromAccountID *string          `json:"fromAccountId"`
		ToAccountID   *string          `json:"toAccountId"`
		CategoryID    *string          `json:"categoryId"`
		Description   *string          `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := journal.UpdateParams{
		Date: req.Date, Amount: req.Amount,
		FromAccountID: req.FromAccountID, ToAccountID: req.ToAccountID,
		CategoryID: req.CategoryID, Description: req.Description,
	}
	if req.Type != nil {
		txType, err := model.ParseTransactionType(*req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p.Type = &txType
	}
	t, err := s.deps.Journal.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionView(t))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Journal.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) confirmTransaction(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.deps.Journal.Confirm)
}

func (s *Server) rejectTransaction(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.deps.Journal.Reject)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (model.Transaction, error)) {
	t, err := fn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionView(t))
}

type bulkView struct {
	Affected int      `json:"affected"`
	Errors   []string `json:"errors"`
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Journal.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bulkView{Affected: res.Affected, Errors: res.Errors})
}

func (s *Server) bulkEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs        []string `json:"ids"`
		CategoryID *string  `json:"categoryId"`
		AccountID  *string  `json:"accountId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}
	res, err := s.deps.Journal.BulkEdit(r.Context(), req.IDs, journal.BulkEditParams{CategoryID: req.CategoryID, AccountID: req.AccountID})
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bulkView{Affected: res.Affected, Errors: res.Errors})
}
