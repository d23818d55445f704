package journal

import (
	"context"
	"errors"
	"fmt"
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

// Service owns every transaction mutation. Each public method is one
// atomic unit: the transaction rows and the balances they affect are
// written together or not at all.
type Service struct {
	store   *store.Store
	actions *actionlog.Service
}

// NewService creates a journal Service. actions may be nil.
func NewService(s *store.Store, actions *actionlog.Service) *Service {
	return &Service{store: s, actions: actions}
}

// CreateParams holds parameters for a new transaction.
type CreateParams struct {
	Date            time.Time
	Amount          decimal.Decimal
	Type            model.TransactionType
	FromAccountID   string
	ToAccountID     string
	CategoryID      string
	Description     string
	Status          model.TransactionStatus
	Source          model.TransactionSource
	IsLinked        bool
	PersonAccountID string
}

// Create validates and stores a transaction, applies its balance effect,
// and for linked expenses also creates the INCOME receivable on the person
// account. Returns the stored primary transaction.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Transaction, error) {
	now := store.Now()
	if p.Date.IsZero() {
		p.Date = now
	}
	if p.Status == "" {
		p.Status = model.StatusConfirmed
	}
	if p.Source == "" {
		p.Source = model.SourceManual
	}

	t := model.Transaction{
		ID:            id.New(),
		Date:          p.Date.UTC(),
		Amount:        p.Amount.Round(2),
		Type:          p.Type,
		FromAccountID: p.FromAccountID,
		ToAccountID:   p.ToAccountID,
		CategoryID:    p.CategoryID,
		Description:   strings.TrimSpace(p.Description),
		Status:        p.Status,
		Source:        p.Source,
		CreatedAt:     now,
		UpdatedAt:     now,
	}.Normalize()

	draft := Draft{Transaction: t, IsLinked: p.IsLinked, PersonAccountID: p.PersonAccountID}
	if err := firstError(Validate(draft)); err != nil {
		return model.Transaction{}, err
	}

	var linked model.Transaction
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		if err := checkCategory(ctx, q, t); err != nil {
			return err
		}
		if p.IsLinked {
			person, err := q.GetAccount(ctx, p.PersonAccountID)
			if err != nil {
				return err
			}
			if person.Type != model.AccountTypePerson {
				return ValidationError{Field: "personAccountId", Message: fmt.Sprintf("%q is not a PERSON account", person.Name)}
			}
			linked = linkedReceivable(t, person.ID, now)
			t.LinkedTransactionID = linked.ID
		}

		if err := q.InsertTransaction(ctx, t); err != nil {
			return err
		}
		if err := ledger.ApplyTo(ctx, q, t, ledger.Apply); err != nil {
			return err
		}
		if p.IsLinked {
			if err := q.InsertTransaction(ctx, linked); err != nil {
				return err
			}
			if err := ledger.ApplyTo(ctx, q, linked, ledger.Apply); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("creating transaction: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("tx_id", t.ID).Str("type", string(t.Type)).Str("amount", t.Amount.StringFixed(2)).Msg("transaction created")
	s.actions.Record(actionlog.TransactionCreate, t.ID, t.Amount.StringFixed(2)+" "+t.Description)
	if p.IsLinked {
		log.Info().Str("tx_id", linked.ID).Str("linked_to", t.ID).Msg("linked receivable created")
		s.actions.Record(actionlog.TransactionCreate, linked.ID, "linked to "+t.ID)
	}
	return t, nil
}

// linkedReceivable builds the INCOME row that credits the person an expense
// was paid on behalf of. It carries no category and shares the primary's
// status.
func linkedReceivable(primary model.Transaction, personID string, now time.Time) model.Transaction {
	desc := primary.Description
	if desc == "" {
		desc = "Payment on behalf"
	}
	return model.Transaction{
		ID:                  id.New(),
		Date:                primary.Date,
		Amount:              primary.Amount,
		Type:                model.TransactionTypeIncome,
		ToAccountID:         personID,
		Description:         "Linked: " + desc,
		Status:              primary.Status,
		Source:              model.SourceManual,
		LinkedTransactionID: primary.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func checkCategory(ctx context.Context, q *store.Queries, t model.Transaction) error {
	if t.CategoryID == "" {
		return nil
	}
	c, err := q.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return err
	}
	if !categoryMatches(t.Type, c.Type) {
		return ValidationError{
			Field:   "categoryId",
			Message: fmt.Sprintf("%s category %q cannot be used on %s", c.Type, c.Name, t.Type),
		}
	}
	return nil
}

// UpdateParams holds editable fields. Nil fields are left alone.
type UpdateParams struct {
	Date          *time.Time
	Amount        *decimal.Decimal
	Type          *model.TransactionType
	FromAccountID *string
	ToAccountID   *string
	CategoryID    *string
	Description   *string
}

var errRejectedIsFinal = ValidationError{Field: "status", Message: "rejected transactions are final and cannot be edited"}

// Update edits a transaction by reversing its old balance effect and
// applying the new one. For a linked pair, amount and date changes are
// mirrored onto the partner row.
func (s *Service) Update(ctx context.Context, txID string, p UpdateParams) (model.Transaction, error) {
	var updated model.Transaction
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		old, err := q.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if old.Status == model.StatusRejected {
			return errRejectedIsFinal
		}

		t := old
		if p.Date != nil {
			t.Date = p.Date.UTC()
		}
		if p.Amount != nil {
			t.Amount = p.Amount.Round(2)
		}
		if p.Type != nil {
			t.Type = *p.Type
		}
		if p.FromAccountID != nil {
			t.FromAccountID = *p.FromAccountID
		}
		if p.ToAccountID != nil {
			t.ToAccountID = *p.ToAccountID
		}
		if p.CategoryID != nil {
			t.CategoryID = *p.CategoryID
		}
		if p.Description != nil {
			t.Description = strings.TrimSpace(*p.Description)
		}
		t = t.Normalize()
		t.UpdatedAt = store.Now()

		// A linked receivable is generated without a category.
		isReceivable := old.LinkedTransactionID != "" && old.Type == model.TransactionTypeIncome && old.CategoryID == ""
		errs := Validate(Draft{Transaction: t})
		if isReceivable {
			errs = dropField(errs, "categoryId")
		}
		if err := firstError(errs); err != nil {
			return err
		}
		if err := checkCategory(ctx, q, t); err != nil {
			return err
		}

		if err := replace(ctx, q, old, t); err != nil {
			return err
		}

		if old.LinkedTransactionID != "" && (!old.Amount.Equal(t.Amount) || !old.Date.Equal(t.Date)) {
			partner, err := q.GetTransaction(ctx, old.LinkedTransactionID)
			if err != nil {
				return fmt.Errorf("loading linked transaction: %w", err)
			}
			np := partner
			np.Amount = t.Amount
			np.Date = t.Date
			np.UpdatedAt = t.UpdatedAt
			if err := replace(ctx, q, partner, np); err != nil {
				return err
			}
		}

		updated = t
		return nil
	})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("updating transaction %s: %w", txID, err)
	}

	logger.FromContext(ctx).Info().Str("tx_id", txID).Msg("transaction updated")
	s.actions.Record(actionlog.TransactionUpdate, txID, updated.Amount.StringFixed(2))
	return updated, nil
}

// replace swaps a stored row for its new version, moving balances from the
// old effect to the new one.
func replace(ctx context.Context, q *store.Queries, old, t model.Transaction) error {
	if err := ledger.ApplyTo(ctx, q, old, ledger.Reverse); err != nil {
		return err
	}
	if err := ledger.ApplyTo(ctx, q, t, ledger.Apply); err != nil {
		return err
	}
	return q.UpdateTransaction(ctx, t)
}

func dropField(errs []ValidationError, field string) []ValidationError {
	out := errs[:0]
	for _, e := range errs {
		if e.Field != field {
			out = append(out, e)
		}
	}
	return out
}

// Delete reverses a transaction's effect and removes it, cascading to its
// linked partner.
func (s *Service) Delete(ctx context.Context, txID string) error {
	var removed []string
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		removed, err = deleteOne(ctx, q, txID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting transaction %s: %w", txID, err)
	}
	for _, id := range removed {
		s.actions.Record(actionlog.TransactionDelete, id, "")
	}
	logger.FromContext(ctx).Info().Strs("tx_ids", removed).Msg("transactions deleted")
	return nil
}

func deleteOne(ctx context.Context, q *store.Queries, txID string) ([]string, error) {
	t, err := q.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if err := ledger.ApplyTo(ctx, q, t, ledger.Reverse); err != nil {
		return nil, err
	}
	removed := []string{t.ID}

	if t.LinkedTransactionID != "" {
		linked, err := q.GetTransaction(ctx, t.LinkedTransactionID)
		switch {
		case errors.Is(err, store.ErrTransactionNotFound):
			// partner already gone
		case err != nil:
			return nil, err
		default:
			if err := ledger.ApplyTo(ctx, q, linked, ledger.Reverse); err != nil {
				return nil, err
			}
			if err := q.DeleteTransaction(ctx, linked.ID); err != nil {
				return nil, err
			}
			removed = append(removed, linked.ID)
		}
	}

	if err := q.DeleteTransaction(ctx, t.ID); err != nil {
		return nil, err
	}
	return removed, nil
}

// BulkResult reports a batch operation. Errors lists per-row problems that
// were skipped; they did not abort the batch.
type BulkResult struct {
	Affected int
	Errors   []string
}

// BulkDelete deletes many transactions in one atomic unit. Unknown ids are
// reported in Errors; a balance inconsistency (missing account) aborts the
// whole batch.
func (s *Service) BulkDelete(ctx context.Context, txIDs []string) (BulkResult, error) {
	var res BulkResult
	var removed []string
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		res = BulkResult{}
		removed = removed[:0]
		gone := make(map[string]bool)
		for _, txID := range txIDs {
			if gone[txID] {
				continue
			}
			ids, err := deleteOne(ctx, q, txID)
			if errors.Is(err, store.ErrTransactionNotFound) {
				res.Errors = append(res.Errors, fmt.Sprintf("transaction %s not found", txID))
				continue
			}
			if err != nil {
				return err
			}
			for _, id := range ids {
				gone[id] = true
			}
			removed = append(removed, ids...)
		}
		res.Affected = len(removed)
		return nil
	})
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk delete: %w", err)
	}
	for _, id := range removed {
		s.actions.Record(actionlog.TransactionDelete, id, "bulk")
	}
	logger.FromContext(ctx).Info().Int("deleted", res.Affected).Int("errors", len(res.Errors)).Msg("bulk delete")
	return res, nil
}

// BulkEditParams reassigns fields on many rows. Nil fields are left alone.
// AccountID replaces the debited account of EXPENSE and TRANSFER rows and
// the credited account of INCOME rows.
type BulkEditParams struct {
	CategoryID *string
	AccountID  *string
}

// BulkEdit applies p to each transaction with balance reconciliation. Rows
// the edit cannot apply to are reported in Errors and left unchanged.
func (s *Service) BulkEdit(ctx context.Context, txIDs []string, p BulkEditParams) (BulkResult, error) {
	if p.CategoryID == nil && p.AccountID == nil {
		return BulkResult{}, ValidationError{Field: "bulkEdit", Message: "nothing to change"}
	}

	var res BulkResult
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		res = BulkResult{}
		var category model.Category
		if p.CategoryID != nil {
			c, err := q.GetCategory(ctx, *p.CategoryID)
			if err != nil {
				return err
			}
			category = c
		}
		if p.AccountID != nil {
			if _, err := q.GetAccount(ctx, *p.AccountID); err != nil {
				return err
			}
		}

		for _, txID := range txIDs {
			old, err := q.GetTransaction(ctx, txID)
			if errors.Is(err, store.ErrTransactionNotFound) {
				res.Errors = append(res.Errors, fmt.Sprintf("transaction %s not found", txID))
				continue
			}
			if err != nil {
				return err
			}

			t := old
			if p.CategoryID != nil {
				if !categoryMatches(t.Type, category.Type) {
					res.Errors = append(res.Errors, fmt.Sprintf("transaction %s: %s category %q cannot be used on %s", txID, category.Type, category.Name, t.Type))
					continue
				}
				t.CategoryID = category.ID
			}
			if p.AccountID != nil {
				if t.Type == model.TransactionTypeIncome {
					t.ToAccountID = *p.AccountID
				} else {
					t.FromAccountID = *p.AccountID
				}
				if t.Type == model.TransactionTypeTransfer && t.FromAccountID == t.ToAccountID {
					res.Errors = append(res.Errors, fmt.Sprintf("transaction %s: cannot transfer to the same account", txID))
					continue
				}
			}
			t.UpdatedAt = store.Now()

			if err := replace(ctx, q, old, t); err != nil {
				return err
			}
			res.Affected++
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk edit: %w", err)
	}
	s.actions.Record(actionlog.TransactionUpdate, "bulk", fmt.Sprintf("%d rows", res.Affected))
	return res, nil
}

// Confirm moves a PENDING transaction to CONFIRMED. Both statuses carry the
// same balance effect, so balances do not move.
func (s *Service) Confirm(ctx context.Context, txID string) (model.Transaction, error) {
	return s.transition(ctx, txID, model.StatusConfirmed)
}

// Reject moves a PENDING transaction to REJECTED and reverses its effect.
// A linked partner moves with it.
func (s *Service) Reject(ctx context.Context, txID string) (model.Transaction, error) {
	return s.transition(ctx, txID, model.StatusRejected)
}

func (s *Service) transition(ctx context.Context, txID string, to model.TransactionStatus) (model.Transaction, error) {
	var updated model.Transaction
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		old, err := q.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if old.Status != model.StatusPending {
			return ValidationError{Field: "status", Message: fmt.Sprintf("only PENDING transactions can become %s, this one is %s", to, old.Status)}
		}
		t := old
		t.Status = to
		t.UpdatedAt = store.Now()
		if err := replace(ctx, q, old, t); err != nil {
			return err
		}
		updated = t

		if old.LinkedTransactionID == "" {
			return nil
		}
		partner, err := q.GetTransaction(ctx, old.LinkedTransactionID)
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if partner.Status != model.StatusPending {
			return nil
		}
		moved := partner
		moved.Status = to
		moved.UpdatedAt = t.UpdatedAt
		return replace(ctx, q, partner, moved)
	})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("marking %s %s: %w", txID, to, err)
	}
	s.actions.Record(actionlog.TransactionUpdate, txID, string(to))
	return updated, nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, txID string) (model.Transaction, error) {
	return s.store.GetTransaction(ctx, txID)
}

// List returns transactions matching f, newest first.
func (s *Service) List(ctx context.Context, f store.TransactionFilter) ([]model.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}
