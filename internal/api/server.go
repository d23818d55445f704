// Package api serves the ledger over HTTP with JSON bodies.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

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

// Deps are the services the server exposes. Backup, Snapshots and
// Suggester are optional.
type Deps struct {
	Accounts   *accounts.Service
	Categories *categories.Service
	Journal    *journal.Service
	History    *history.Service
	Importer   *importer.Service
	Backup     *backup.Service
	Snapshots  *backup.SnapshotStore
	MagicBox   *parser.MagicBox
	Suggester  parser.Suggester
	Evaluator  threshold.Evaluator
	Location   *time.Location
}

// Server represents the API server.
type Server struct {
	deps   Deps
	log    zerolog.Logger
	router *mux.Router
}

// NewServer creates a server and registers its routes.
func NewServer(d Deps, log zerolog.Logger) *Server {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.MagicBox == nil {
		d.MagicBox = parser.NewMagicBox(parser.DefaultThresholds())
	}
	s := &Server{deps: d, log: log, router: mux.NewRouter()}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router.PathPrefix("/api").Subrouter()
	r.Use(recovery(s.log), requestLogger(s.log))

	r.HandleFunc("/accounts", s.listAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.createAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}", s.getAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}", s.updateAccount).Methods(http.MethodPatch)
	r.HandleFunc("/accounts/{id}", s.deleteAccount).Methods(http.MethodDelete)
	r.HandleFunc("/accounts/{id}/threshold", s.accountThreshold).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}/history", s.accountHistory).Methods(http.MethodGet)
	r.HandleFunc("/networth", s.netWorth).Methods(http.MethodGet)

	r.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories", s.createCategory).Methods(http.MethodPost)
	r.HandleFunc("/categories/{id}", s.deleteCategory).Methods(http.MethodDelete)

	r.HandleFunc("/transactions", s.listTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.createTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/bulk-delete", s.bulkDelete).Methods(http.MethodPost)
	r.HandleFunc("/transactions/bulk-edit", s.bulkEdit).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id}", s.getTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id}", s.updateTransaction).Methods(http.MethodPatch)
	r.HandleFunc("/transactions/{id}", s.deleteTransaction).Methods(http.MethodDelete)
	r.HandleFunc("/transactions/{id}/confirm", s.confirmTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id}/reject", s.rejectTransaction).Methods(http.MethodPost)

	r.HandleFunc("/import", s.importCSV).Methods(http.MethodPost)
	r.HandleFunc("/parse/magic", s.parseMagic).Methods(http.MethodPost)
	r.HandleFunc("/parse/sms", s.parseSMS).Methods(http.MethodPost)

	r.HandleFunc("/backup/status", s.backupStatus).Methods(http.MethodGet)
	r.HandleFunc("/backup/push", s.backupPush).Methods(http.MethodPost)
	r.HandleFunc("/backup/restore", s.backupRestore).Methods(http.MethodPost)
	r.HandleFunc("/snapshots", s.listSnapshots).Methods(http.MethodGet)
	r.HandleFunc("/snapshots", s.createSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/snapshots/{id}", s.getSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/snapshots/{id}", s.deleteSnapshot).Methods(http.MethodDelete)
	r.HandleFunc("/snapshots/{id}/restore", s.restoreSnapshot).Methods(http.MethodPost)
}

// Handler returns the HTTP handler for the API server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// fail writes err with the status it maps to. Errors no rule recognizes
// get fallback.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := errorStatus(err, fallback)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error, fallback int) int {
	var ve model.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrTransactionNotFound),
		errors.Is(err, backup.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateEntity), errors.Is(err, store.ErrEntityInUse):
		return http.StatusConflict
	case backup.IsRemote(err):
		return http.StatusBadGateway
	}
	return fallback
}
