package accounts

import (
	"context"
	"errors"

	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

// DefaultAccounts returns the starter accounts created by `moneymngr init`.
// IDs are stable so re-running init never duplicates them.
func DefaultAccounts() []model.Account {
	return []model.Account{
		{ID: id.Stable("account", "Cash"), Name: "Cash", Type: model.AccountTypeCash, IncludeInNetWorth: true},
		{ID: id.Stable("account", "Bank"), Name: "Bank", Type: model.AccountTypeBank, IncludeInNetWorth: true},
	}
}

// Seed inserts any default account whose name is not taken yet and
// returns how many were created.
func (s *Service) Seed(ctx context.Context) (int, error) {
	created := 0
	now := store.Now()
	for _, a := range DefaultAccounts() {
		a.CreatedAt, a.UpdatedAt = now, now
		err := s.store.InsertAccount(ctx, a)
		if errors.Is(err, store.ErrDuplicateEntity) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
