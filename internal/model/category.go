package model

import "time"

// CategoryType is fixed at creation.
type CategoryType string

const (
	CategoryTypeExpense CategoryType = "EXPENSE"
	CategoryTypeIncome  CategoryType = "INCOME"
)

// Category groups transactions. ParentID is empty for top-level categories;
// only one level of nesting is allowed.
type Category struct {
	ID        string
	Name      string
	Type      CategoryType
	ParentID  string
	Icon      string
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}
