package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/moneymngr/moneymngr/internal/backup"
	"github.com/moneymngr/moneymngr/internal/categories"
	"github.com/moneymngr/moneymngr/internal/importer"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/parser"
	"github.com/moneymngr/moneymngr/internal/store"
)

// maxImportBytes bounds an uploaded CSV.
const maxImportBytes = 32 << 20

func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := importer.ReadRows(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.deps.Importer.Import(r.Context(), rows, nil)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if res.Errors == nil {
		res.Errors = []importer.RowError{}
	}
	writeJSON(w, http.StatusOK, res)
}

// vocabulary loads the accounts and the categories of one type. An empty
// type returns every category.
func (s *Server) vocabulary(r *http.Request, t model.CategoryType) ([]model.Account, []model.Category, error) {
	accts, err := s.deps.Accounts.All(r.Context())
	if err != nil {
		return nil, nil, err
	}
	cats, err := s.deps.Categories.All(r.Context())
	if err != nil {
		return nil, nil, err
	}
	if t != "" {
		cats = categories.ByType(cats, t)
	}
	return accts, cats, nil
}

func (s *Server) parseMagic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
		Save bool   `json:"save"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	accts, cats, err := s.vocabulary(r, "")
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	entry := s.deps.MagicBox.Parse(req.Text, parser.AccountCandidates(accts), parser.CategoryCandidates(cats))
	resp := map[string]any{"entry": entry}
	if req.Save {
		t, err := s.deps.Journal.CreateFromQuickEntry(r.Context(), entry)
		if err != nil {
			s.fail(w, r, err, http.StatusInternalServerError)
			return
		}
		resp["transaction"] = toTransactionView(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func smsCategoryType(s parser.SMS) model.CategoryType {
	if s.Type == model.TransactionTypeIncome {
		return model.CategoryTypeIncome
	}
	return model.CategoryTypeExpense
}

// parseSMS parses one message. With save it stores the result as a
// confirmed row; with autoSubmit it stores it as PENDING only when the
// parse is confident enough.
func (s *Server) parseSMS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string `json:"text"`
		AccountID  string `json:"accountId"`
		CategoryID string `json:"categoryId"`
		Suggest    bool   `json:"suggest"`
		Save       bool   `json:"save"`
		AutoSubmit bool   `json:"autoSubmit"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sms := parser.ParseSMS(req.Text)
	if !sms.Amount.IsPositive() {
		writeError(w, http.StatusUnprocessableEntity, "no amount found in message")
		return
	}

	accts, cats, err := s.vocabulary(r, smsCategoryType(sms))
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if req.Suggest && s.deps.Suggester != nil {
		s.suggest(r, &sms, accts, cats)
	}

	th := s.deps.MagicBox.Thresholds
	accountID, categoryID := th.Resolve(sms, parser.AccountCandidates(accts), parser.CategoryCandidates(cats))
	if req.AccountID != "" {
		accountID = req.AccountID
	}
	if req.CategoryID != "" {
		categoryID = req.CategoryID
	}

	auto := req.AutoSubmit && th.ShouldAutoSubmit(sms)
	resp := map[string]any{
		"sms":        sms,
		"accountId":  accountID,
		"categoryId": categoryID,
		"autoSubmit": auto,
	}
	if req.Save || auto {
		t, err := s.deps.Journal.CreateFromSMS(r.Context(), sms, accountID, categoryID, auto && !req.Save)
		if err != nil {
			s.fail(w, r, err, http.StatusInternalServerError)
			return
		}
		resp["transaction"] = toTransactionView(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// recentLookback bounds how many past rows are scanned for prompt examples.
const recentLookback = 50

// suggest fills the suggested account and category from the LLM. Failures
// are logged and ignored.
func (s *Server) suggest(r *http.Request, sms *parser.SMS, accts []model.Account, cats []model.Category) {
	req := parser.SuggestRequest{SMS: sms.Raw, Categories: cats, Accounts: accts}
	recent, err := s.deps.Journal.List(r.Context(), store.TransactionFilter{Type: sms.Type, Limit: recentLookback})
	if err != nil {
		s.log.Warn().Err(err).Msg("loading recent transactions")
	}
	req.Recent = parser.RecentLines(recent, cats)

	sug, err := s.deps.Suggester.Suggest(r.Context(), req)
	if err != nil {
		s.log.Warn().Err(err).Msg("suggestion failed")
		return
	}
	if sug.Category != "" {
		sms.SuggestedCategory = sug.Category
	}
	if sug.AccountName != "" {
		sms.SuggestedAccount = sug.AccountName
	}
}

var errBackupDisabled = errors.New("backup is not configured")

func (s *Server) backupStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Backup == nil {
		writeError(w, http.StatusServiceUnavailable, errBackupDisabled.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Backup.Status())
}

func (s *Server) backupPush(w http.ResponseWriter, r *http.Request) {
	if s.deps.Backup == nil {
		writeError(w, http.StatusServiceUnavailable, errBackupDisabled.Error())
		return
	}
	counts, err := s.deps.Backup.Push(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) backupRestore(w http.ResponseWriter, r *http.Request) {
	if s.deps.Backup == nil {
		writeError(w, http.StatusServiceUnavailable, errBackupDisabled.Error())
		return
	}
	counts, err := s.deps.Backup.Restore(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) snapshotsReady(w http.ResponseWriter) bool {
	if s.deps.Backup == nil || s.deps.Snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, errBackupDisabled.Error())
		return false
	}
	return true
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.snapshotsReady(w) {
		return
	}
	list, err := s.deps.Snapshots.List(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []backup.SnapshotInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": list, "count": len(list)})
}

func (s *Server) createSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.snapshotsReady(w) {
		return
	}
	info, err := s.deps.Backup.Snapshot(r.Context(), s.deps.Snapshots)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.snapshotsReady(w) {
		return
	}
	p, err := s.deps.Snapshots.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.snapshotsReady(w) {
		return
	}
	if err := s.deps.Snapshots.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.snapshotsReady(w) {
		return
	}
	counts, err := s.deps.Backup.RestoreSnapshot(r.Context(), s.deps.Snapshots, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
