package categories

import (
	"context"
	"errors"

	"github.com/moneymngr/moneymngr/internal/id"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

var defaultExpense = []string{
	"Food", "Transport", "Shopping", "Entertainment", "Health", "Education",
	"Utilities", "Rent", "Grocery", "Bills",
}

var defaultIncome = []string{
	"Salary", "Freelance", "Investment", "Cashback", "Interest",
}

// DefaultCategories returns the starter categories. Their names line up
// with the magic-box alias table so aliases resolve on a fresh ledger.
func DefaultCategories() []model.Category {
	var out []model.Category
	for i, name := range defaultExpense {
		out = append(out, model.Category{
			ID: id.Stable("category", name), Name: name, Type: model.CategoryTypeExpense, SortOrder: i,
		})
	}
	for i, name := range defaultIncome {
		out = append(out, model.Category{
			ID: id.Stable("category", name), Name: name, Type: model.CategoryTypeIncome, SortOrder: 100 + i,
		})
	}
	return out
}

// Seed inserts any missing default category and returns how many were created.
func (s *Service) Seed(ctx context.Context) (int, error) {
	created := 0
	now := store.Now()
	for _, c := range DefaultCategories() {
		c.CreatedAt, c.UpdatedAt = now, now
		err := s.store.InsertCategory(ctx, c)
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
