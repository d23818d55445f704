package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/history"
	"github.com/moneymngr/moneymngr/internal/journal"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/threshold"
)

type accountView struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	Balance           decimal.Decimal `json:"balance"`
	ThresholdValue    decimal.Decimal `json:"thresholdValue"`
	Group             string          `json:"group,omitempty"`
	IncludeInNetWorth bool            `json:"includeInNetWorth"`
	IsLiability       bool            `json:"isLiability"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func toAccountView(a model.Account) accountView {
	return accountView{
		ID: a.ID, Name: a.Name, Type: string(a.Type),
		Balance: a.Balance, ThresholdValue: a.ThresholdValue, Group: a.Group,
		IncludeInNetWorth: a.IncludeInNetWorth, IsLiability: a.IsLiability,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

type categoryView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	ParentID  string `json:"parentId,omitempty"`
	Icon      string `json:"icon,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

func toCategoryView(c model.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Type: string(c.Type), ParentID: c.ParentID, Icon: c.Icon, SortOrder: c.SortOrder}
}

type transactionView struct {
	ID                  string          `json:"id"`
	Date                time.Time       `json:"date"`
	Amount              decimal.Decimal `json:"amount"`
	Type                string          `json:"transactionType"`
	FromAccountID       string          `json:"fromAccountId,omitempty"`
	ToAccountID         string          `json:"toAccountId,omitempty"`
	CategoryID          string          `json:"categoryId,omitempty"`
	Description         string          `json:"description"`
	Status              string          `json:"status"`
	Source              string          `json:"source"`
	LinkedTransactionID string          `json:"linkedTransactionId,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func toTransactionView(t model.Transaction) transactionView {
	return transactionView{
		ID: t.ID, Date: t.Date, Amount: t.Amount, Type: string(t.Type),
		FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID, CategoryID: t.CategoryID,
		Description: t.Description, Status: string(t.Status), Source: string(t.Source),
		LinkedTransactionID: t.LinkedTransactionID, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func mapSlice[T, V any](in []T, f func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

type thresholdView struct {
	Balance          decimal.Decimal  `json:"balance"`
	Threshold        decimal.Decimal  `json:"threshold"`
	Spendable        decimal.Decimal  `json:"spendable"`
	PercentRemaining decimal.Decimal  `json:"percentRemaining"`
	Status           threshold.Status `json:"status"`
	Message          string           `json:"message"`
	NewBalance       decimal.Decimal  `json:"newBalance"`
	SafeBalance      decimal.Decimal  `json:"safeBalance"`
	IsAboveThreshold bool             `json:"isAboveThreshold"`
}

func toThresholdView(p journal.Preview) thresholdView {
	r := p.Evaluation
	return thresholdView{
		Balance: r.Balance, Threshold: r.Threshold, Spendable: r.Spendable,
		PercentRemaining: r.PercentRemaining, Status: r.Status, Message: r.Message,
		NewBalance: p.NewBalance, SafeBalance: p.SafeBalance, IsAboveThreshold: p.IsAboveThreshold,
	}
}

type pointView struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

func toPointView(p history.Point) pointView {
	return pointView{Date: p.Date.Format(time.DateOnly), Balance: p.Balance}
}

type netWorthView struct {
	Date        string          `json:"date"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	NetWorth    decimal.Decimal `json:"netWorth"`
}

func toNetWorthView(p history.NetWorthPoint) netWorthView {
	return netWorthView{Date: p.Date.Format(time.DateOnly), Assets: p.Assets, Liabilities: p.Liabilities, NetWorth: p.NetWorth}
}
