// Package importer loads free-form CSV exports into the ledger.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/actionlog"
	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/ledger"
	"github.com/moneymngr/moneymngr/internal/logger"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

// Phase is one step of an import.
type Phase int

const (
	PhaseLoad Phase = iota + 1
	PhaseScan
	PhaseAccounts
	PhaseCategories
	PhaseRows
	PhaseInsert
	PhaseBalances
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseLoad:       "load",
	PhaseScan:       "scan",
	PhaseAccounts:   "accounts",
	PhaseCategories: "categories",
	PhaseRows:       "rows",
	PhaseInsert:     "insert",
	PhaseBalances:   "balances",
	PhaseDone:       "done",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Progress is a coarse report of how far an import has got. Fraction runs
// from 0 to 1 across all phases.
type Progress struct {
	Phase    Phase
	Fraction float64
}

// ProgressFunc receives progress reports. It is called on the importing
// goroutine and should return quickly.
type ProgressFunc func(Progress)

// RowError explains why one row was left out of an import.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string { return e.Message }

// Result summarizes an import. Errors lists skipped rows in input order.
type Result struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

// rowReportEvery controls how often row progress is reported.
const rowReportEvery = 100

var hasLetters = regexp.MustCompile(`[A-Za-z]`)

// Service imports rows into the ledger.
type Service struct {
	store   *store.Store
	actions *actionlog.Service
	loc     *time.Location
	now     func() time.Time
}

// NewService returns an importer that reads day-first and ISO dates in
// the local time zone.
func NewService(s *store.Store, actions *actionlog.Service) *Service {
	return &Service{store: s, actions: actions, loc: time.Local, now: time.Now}
}

// SetLocation changes the zone used for dates without an offset.
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// ImportFile reads path with ReadRows and imports the result.
func (s *Service) ImportFile(ctx context.Context, path string, progress ProgressFunc) (Result, error) {
	name := filepath.Base(path)
	s.actions.Record(actionlog.CSVImportStart, name, "")

	f, err := os.Open(path)
	if err != nil {
		s.actions.Record(actionlog.CSVImportError, name, err.Error())
		return Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		s.actions.Record(actionlog.CSVImportError, name, err.Error())
		return Result{}, fmt.Errorf("reading %s: %w", name, err)
	}

	res, err := s.Import(ctx, rows, progress)
	if err != nil {
		s.actions.Record(actionlog.CSVImportError, name, err.Error())
		return Result{}, err
	}
	s.actions.Record(actionlog.CSVImportSuccess, name,
		fmt.Sprintf("imported %d, skipped %d", res.Imported, len(res.Errors)))
	return res, nil
}

// importRun holds the state of one Import call.
type importRun struct {
	rows     []Row
	progress ProgressFunc

	accounts   map[string]string
	categories map[string]model.Category

	newAccounts   []model.Account
	newCategories []model.Category

	txns   []model.Transaction
	deltas map[string]decimal.Decimal
	errs   []RowError
}

func (r *importRun) report(p Phase, fraction float64) {
	if r.progress != nil {
		r.progress(Progress{Phase: p, Fraction: fraction})
	}
}

// Import runs the rows through seven phases: load existing names, scan for
// new accounts and categories, create accounts, create categories, build
// transactions, insert them, and apply the net balance change per account.
// A bad row is recorded in Result.Errors and skipped. Everything is written
// in one store transaction, so a cancelled ctx or a store failure leaves
// the ledger untouched.
func (s *Service) Import(ctx context.Context, rows []Row, progress ProgressFunc) (Result, error) {
	log := logger.FromContext(ctx)
	run := &importRun{
		rows:       rows,
		progress:   progress,
		accounts:   make(map[string]string),
		categories: make(map[string]model.Category),
		deltas:     make(map[string]decimal.Decimal),
	}

	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		run.report(PhaseLoad, 0)
		if err := run.load(ctx, q); err != nil {
			return err
		}

		run.report(PhaseScan, 0.05)
		if err := run.scan(ctx); err != nil {
			return err
		}

		run.report(PhaseAccounts, 0.10)
		for _, a := range run.newAccounts {
			if err := q.InsertAccount(ctx, a); err != nil {
				return fmt.Errorf("creating account %q: %w", a.Name, err)
			}
		}

		run.report(PhaseCategories, 0.125)
		for _, c := range run.newCategories {
			if err := q.InsertCategory(ctx, c); err != nil {
				return fmt.Errorf("creating category %q: %w", c.Name, err)
			}
		}

		run.report(PhaseRows, 0.15)
		if err := s.build(ctx, run); err != nil {
			return err
		}

		run.report(PhaseInsert, 0.85)
		if err := q.InsertTransactions(ctx, run.txns); err != nil {
			return fmt.Errorf("inserting transactions: %w", err)
		}

		run.report(PhaseBalances, 0.95)
		if err := ledger.Commit(ctx, q, run.deltas); err != nil {
			return fmt.Errorf("applying balances: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("importing CSV: %w", err)
	}
	run.report(PhaseDone, 1)

	for _, a := range run.newAccounts {
		s.actions.Record(actionlog.AccountCreate, a.Name, "created by CSV import")
	}
	for _, c := range run.newCategories {
		s.actions.Record(actionlog.CategoryCreate, c.Name, "created by CSV import")
	}

	for _, e := range run.errs {
		log.Warn().Int("row", e.Row).Msg(e.Message)
	}
	log.Info().
		Int("imported", len(run.txns)).
		Int("skipped", len(run.errs)).
		Int("new_accounts", len(run.newAccounts)).
		Int("new_categories", len(run.newCategories)).
		Msg("CSV import complete")

	return Result{Imported: len(run.txns), Errors: run.errs}, nil
}

func (r *importRun) load(ctx context.Context, q *store.Queries) error {
	accts, err := q.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	for _, a := range accts {
		r.accounts[a.Name] = a.ID
	}
	cats, err := q.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}
	for _, c := range cats {
		r.categories[c.Name] = c
	}
	return nil
}

// scan collects account and category names not seen before. For a
// transfer the category column names the destination account.
func (r *importRun) scan(ctx context.Context) error {
	now := store.Now()
	for i, row := range r.rows {
		if i%rowReportEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		kind := classify(row.Type)
		if usableName(row.Account) {
			r.addAccount(row.Account, now)
		}
		if !usableName(row.Category) {
			continue
		}
		if kind == model.TransactionTypeTransfer {
			r.addAccount(row.Category, now)
			continue
		}
		if _, ok := r.categories[row.Category]; ok {
			continue
		}
		ct := model.CategoryTypeExpense
		if kind == model.TransactionTypeIncome {
			ct = model.CategoryTypeIncome
		}
		c := model.Category{
			ID:        id.New(),
			Name:      row.Category,
			Type:      ct,
			Icon:      "tag",
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.categories[c.Name] = c
		r.newCategories = append(r.newCategories, c)
	}
	return nil
}

func (r *importRun) addAccount(name string, now time.Time) {
	if _, ok := r.accounts[name]; ok {
		return
	}
	a := model.Account{
		ID:                id.New(),
		Name:              name,
		Type:              model.AccountTypeBank,
		Balance:           decimal.Zero,
		ThresholdValue:    decimal.Zero,
		IncludeInNetWorth: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.accounts[name] = a.ID
	r.newAccounts = append(r.newAccounts, a)
}

func (s *Service) build(ctx context.Context, r *importRun) error {
	log := logger.FromContext(ctx)
	now := store.Now()
	for i, row := range r.rows {
		if i%rowReportEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.report(PhaseRows, 0.15+0.70*float64(i)/float64(len(r.rows)))
		}
		n := row.Line
		if n == 0 {
			n = i + 2
		}
		t, skip, rerr := s.buildRow(r, row, n, now)
		if rerr != nil {
			r.errs = append(r.errs, *rerr)
			continue
		}
		if skip {
			log.Debug().Int("row", n).Msg("skipping zero-amount row")
			continue
		}
		r.txns = append(r.txns, t)
		ledger.Accumulate(r.deltas, ledger.Effects(t, ledger.Apply))
	}
	return nil
}

// buildRow turns one row into a transaction. skip is set for rows that are
// dropped without an error.
func (s *Service) buildRow(r *importRun, row Row, n int, now time.Time) (t model.Transaction, skip bool, rerr *RowError) {
	fail := func(format string, args ...any) (model.Transaction, bool, *RowError) {
		return model.Transaction{}, false, &RowError{Row: n, Message: fmt.Sprintf(format, args...)}
	}

	amount, err := parseAmount(row.Amount)
	if err != nil || amount.IsNegative() {
		return fail("Invalid amount (%s) in row %d", row.Amount, n)
	}
	if amount.IsZero() {
		return model.Transaction{}, true, nil
	}

	date, ok := parseDate(row.Date, s.loc)
	if !ok {
		date = s.now()
	}

	kind := classify(row.Type)
	if !usableName(row.Account) {
		return fail("Row %d missing account", n)
	}
	accountID, ok := r.accounts[row.Account]
	if !ok {
		return fail("Row %d account not found: %s", n, row.Account)
	}

	t = model.Transaction{
		ID:          id.New(),
		Date:        date.UTC(),
		Amount:      amount.Round(2),
		Type:        kind,
		Description: firstNonEmpty(row.Description, row.Note, row.Category, "Imported"),
		Status:      model.StatusConfirmed,
		Source:      model.SourceCSVImport,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch kind {
	case model.TransactionTypeTransfer:
		if !usableName(row.Category) {
			return fail("Row %d transfer missing destination account", n)
		}
		to := r.accounts[row.Category]
		if to == accountID {
			return fail("Row %d transfer to the same account: %s", n, row.Account)
		}
		t.FromAccountID, t.ToAccountID = accountID, to
	case model.TransactionTypeIncome:
		t.ToAccountID = accountID
	default:
		t.FromAccountID = accountID
	}

	if kind != model.TransactionTypeTransfer && usableName(row.Category) {
		c := r.categories[row.Category]
		if string(c.Type) != string(kind) {
			return fail("Row %d category %s is not an %s category", n, row.Category, strings.ToLower(string(kind)))
		}
		t.CategoryID = c.ID
	}
	return t, false, nil
}

// classify maps a free-text type column to a transaction type. Anything
// that mentions neither income nor transfer is an expense.
func classify(s string) model.TransactionType {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "income"):
		return model.TransactionTypeIncome
	case strings.Contains(s, "transfer"):
		return model.TransactionTypeTransfer
	}
	return model.TransactionTypeExpense
}

// usableName rejects blanks and purely numeric names.
func usableName(s string) bool {
	return s != "" && hasLetters.MatchString(s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(strings.TrimSpace(s))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
