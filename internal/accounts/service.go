package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/actionlog"
	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/logger"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

// Service provides account CRUD on top of the ledger store. Balances are
// never written here; see internal/ledger.
type Service struct {
	store   *store.Store
	actions *actionlog.Service
}

// NewService creates an account Service.
// actions may be nil.
func NewService(s *store.Store, actions *actionlog.Service) *Service {
	return &Service{store: s, actions: actions}
}

// CreateParams holds the fields for a new account.
type CreateParams struct {
	Name              string
	Type              model.AccountType
	OpeningBalance    decimal.Decimal
	ThresholdValue    decimal.Decimal
	Group             string
	IncludeInNetWorth *bool
	IsLiability       bool
}

// Create validates and stores a new account. A duplicate name fails with
// store.ErrDuplicateEntity.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Account, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return model.Account{}, model.ValidationError{Field: "name", Message: "required"}
	}
	if p.Type == "" {
		p.Type = model.AccountTypeBank
	}
	if !p.Type.Valid() {
		return model.Account{}, model.ValidationError{Field: "type", Message: fmt.Sprintf("unknown account type %q", p.Type)}
	}
	if p.ThresholdValue.IsNegative() {
		return model.Account{}, model.ValidationError{Field: "thresholdValue", Message: "must not be negative"}
	}

	include := true
	if p.IncludeInNetWorth != nil {
		include = *p.IncludeInNetWorth
	}

	now := store.Now()
	a := model.Account{
		ID:                id.New(),
		Name:              name,
		Type:              p.Type,
		Balance:           p.OpeningBalance.Round(2),
		ThresholdValue:    p.ThresholdValue.Round(2),
		Group:             strings.TrimSpace(p.Group),
		IncludeInNetWorth: include,
		IsLiability:       p.IsLiability || p.Type == model.AccountTypeLoan,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.InsertAccount(ctx, a); err != nil {
		return model.Account{}, err
	}

	logger.FromContext(ctx).Info().Str("account_id", a.ID).Str("name", a.Name).Msg("account created")
	s.actions.Record(actionlog.AccountCreate, a.ID, a.Name)
	return a, nil
}

// UpdateParams holds editable account fields. Nil fields are left alone.
type UpdateParams struct {
	Name              *string
	Type              *model.AccountType
	ThresholdValue    *decimal.Decimal
	Group             *string
	IncludeInNetWorth *bool
	IsLiability       *bool
}

// Update edits account details. The balance is not editable.
func (s *Service) Update(ctx context.Context, accountID string, p UpdateParams) (model.Account, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return model.Account{}, model.ValidationError{Field: "name", Message: "required"}
		}
		a.Name = name
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			return model.Account{}, model.ValidationError{Field: "type", Message: fmt.Sprintf("unknown account type %q", *p.Type)}
		}
		a.Type = *p.Type
	}
	if p.ThresholdValue != nil {
		if p.ThresholdValue.IsNegative() {
			return model.Account{}, model.ValidationError{Field: "thresholdValue", Message: "must not be negative"}
		}
		a.ThresholdValue = p.ThresholdValue.Round(2)
	}
	if p.Group != nil {
		a.Group = strings.TrimSpace(*p.Group)
	}
	if p.IncludeInNetWorth != nil {
		a.IncludeInNetWorth = *p.IncludeInNetWorth
	}
	if p.IsLiability != nil {
		a.IsLiability = *p.IsLiability
	}
	a.UpdatedAt = store.Now()

	if err := s.store.UpdateAccountDetails(ctx, a); err != nil {
		return model.Account{}, err
	}
	s.actions.Record(actionlog.AccountUpdate, a.ID, a.Name)
	return a, nil
}

// Delete removes an account that no transaction references, on either side.
// Otherwise it fails with store.ErrEntityInUse.
func (s *Service) Delete(ctx context.Context, accountID string) error {
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		a, err := q.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		n, err := q.CountAccountReferences(ctx, accountID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("account %q has %d transaction(s), delete them first: %w", a.Name, n, store.ErrEntityInUse)
		}
		return q.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}
	s.actions.Record(actionlog.AccountDelete, accountID, "")
	return nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, accountID string) (model.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// All returns all accounts ordered by name.
func (s *Service) All(ctx context.Context) ([]model.Account, error) {
	return s.store.ListAccounts(ctx)
}

// Resolve finds an account by ID, then by case-insensitive name.
func (s *Service) Resolve(ctx context.Context, ref string) (model.Account, error) {
	if a, err := s.store.GetAccount(ctx, ref); err == nil {
		return a, nil
	}
	all, err := s.store.ListAccounts(ctx)
	if err != nil {
		return model.Account{}, err
	}
	for _, a := range all {
		if strings.EqualFold(a.Name, strings.TrimSpace(ref)) {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("account %q: %w", ref, store.ErrAccountNotFound)
}

// ByType returns all accounts of the given type.
func ByType(all []model.Account, t model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range all {
		if a.Type == t {
			result = append(result, a)
		}
	}
	return result
}
