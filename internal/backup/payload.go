package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

// PayloadVersion is written into every payload. Payloads without a version
// predate it and are read as legacy data.
const PayloadVersion = 1

// Payload is the full contents of a ledger as stored remotely.
type Payload struct {
	Version      int                 `json:"version,omitempty"`
	ExportedAt   time.Time           `json:"exportedAt"`
	Accounts     []AccountRecord     `json:"accounts"`
	Categories   []CategoryRecord    `json:"categories"`
	Transactions []TransactionRecord `json:"transactions"`
}

// Counts is the number of rows of each kind moved by a push or restore.
type Counts struct {
	Accounts     int `json:"accounts"`
	Categories   int `json:"categories"`
	Transactions int `json:"transactions"`
}

// Counts reports how many rows p holds.
func (p Payload) Counts() Counts {
	return Counts{Accounts: len(p.Accounts), Categories: len(p.Categories), Transactions: len(p.Transactions)}
}

// AccountRecord is the wire form of an account.
type AccountRecord struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	Balance           decimal.Decimal `json:"balance"`
	ThresholdValue    decimal.Decimal `json:"thresholdValue"`
	Group             string          `json:"group,omitempty"`
	IncludeInNetWorth *bool           `json:"includeInNetWorth,omitempty"`
	IsLiability       bool            `json:"isLiability,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// CategoryRecord is the wire form of a category.
type CategoryRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	ParentID  string    `json:"parentId,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sortOrder,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TransactionRecord is the wire form of a transaction. It accepts every
// legacy field so old backups can be read back.
type TransactionRecord struct {
	model.LegacyTransaction
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Export reads the whole ledger into a payload.
func Export(ctx context.Context, q *store.Queries) (Payload, error) {
	accts, err := q.ListAccounts(ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("exporting accounts: %w", err)
	}
	cats, err := q.ListCategories(ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("exporting categories: %w", err)
	}
	txns, err := q.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		return Payload{}, fmt.Errorf("exporting transactions: %w", err)
	}

	p := Payload{
		Version:      PayloadVersion,
		ExportedAt:   store.Now(),
		Accounts:     make([]AccountRecord, 0, len(accts)),
		Categories:   make([]CategoryRecord, 0, len(cats)),
		Transactions: make([]TransactionRecord, 0, len(txns)),
	}
	for _, a := range accts {
		include := a.IncludeInNetWorth
		p.Accounts = append(p.Accounts, AccountRecord{
			ID: a.ID, Name: a.Name, Type: string(a.Type),
			Balance: a.Balance, ThresholdValue: a.ThresholdValue,
			Group: a.Group, IncludeInNetWorth: &include, IsLiability: a.IsLiability,
			CreatedAt: a.CreatedAt,
		})
	}
	for _, c := range cats {
		p.Categories = append(p.Categories, CategoryRecord{
			ID: c.ID, Name: c.Name, Type: string(c.Type), ParentID: c.ParentID,
			Icon: c.Icon, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt,
		})
	}
	for _, t := range txns {
		created := t.CreatedAt
		p.Transactions = append(p.Transactions, TransactionRecord{
			LegacyTransaction: model.LegacyTransaction{
				ID: t.ID, Date: t.Date, Amount: t.Amount,
				TransactionType: string(t.Type),
				FromAccountID:   t.FromAccountID, ToAccountID: t.ToAccountID,
				CategoryID: t.CategoryID, Description: t.Description,
				Status: string(t.Status), Source: string(t.Source),
				LinkedTransactionID: t.LinkedTransactionID,
			},
			CreatedAt: &created,
		})
	}
	return p, nil
}

// Encode renders p as indented JSON.
func Encode(p Payload) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return data, nil
}

// Decode parses a payload.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decoding payload: %w", err)
	}
	if p.Version > PayloadVersion {
		return Payload{}, fmt.Errorf("payload version %d is newer than supported %d", p.Version, PayloadVersion)
	}
	return p, nil
}

// ledgerRows is a payload converted and checked against the model.
type ledgerRows struct {
	accounts     []model.Account
	categories   []model.Category
	transactions []model.Transaction
}

// convert turns p into model rows, migrating legacy transaction shapes,
// and checks every reference. It touches no storage.
func convert(p Payload, now time.Time) (ledgerRows, error) {
	var rows ledgerRows
	accountIDs := make(map[string]bool, len(p.Accounts))
	for i, r := range p.Accounts {
		if r.ID == "" || strings.TrimSpace(r.Name) == "" {
			return ledgerRows{}, fmt.Errorf("account %d: missing id or name", i)
		}
		include := true
		if r.IncludeInNetWorth != nil {
			include = *r.IncludeInNetWorth
		}
		created := orNow(r.CreatedAt, now)
		rows.accounts = append(rows.accounts, model.Account{
			ID: r.ID, Name: strings.TrimSpace(r.Name), Type: model.MigrateAccountType(r.Type),
			Balance: r.Balance.Round(2), ThresholdValue: r.ThresholdValue.Round(2),
			Group: r.Group, IncludeInNetWorth: include, IsLiability: r.IsLiability,
			CreatedAt: created, UpdatedAt: created,
		})
		accountIDs[r.ID] = true
	}

	categories := make(map[string]model.Category, len(p.Categories))
	byName := make(map[string]string, len(p.Categories))
	for i, r := range p.Categories {
		ct := model.CategoryType(strings.ToUpper(r.Type))
		if ct != model.CategoryTypeExpense && ct != model.CategoryTypeIncome {
			return ledgerRows{}, fmt.Errorf("category %d: unknown type %q", i, r.Type)
		}
		if r.ID == "" || strings.TrimSpace(r.Name) == "" {
			return ledgerRows{}, fmt.Errorf("category %d: missing id or name", i)
		}
		created := orNow(r.CreatedAt, now)
		c := model.Category{
			ID: r.ID, Name: strings.TrimSpace(r.Name), Type: ct, ParentID: r.ParentID,
			Icon: r.Icon, SortOrder: r.SortOrder, CreatedAt: created, UpdatedAt: created,
		}
		rows.categories = append(rows.categories, c)
		categories[c.ID] = c
		byName[strings.ToLower(c.Name)] = c.ID
	}
	for _, c := range rows.categories {
		if c.ParentID != "" {
			if _, ok := categories[c.ParentID]; !ok {
				return ledgerRows{}, fmt.Errorf("category %s parent %s: %w", c.ID, c.ParentID, store.ErrCategoryNotFound)
			}
		}
	}

	lookup := func(name string) (string, bool) {
		id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		return id, ok
	}
	for i, r := range p.Transactions {
		if r.ID == "" {
			return ledgerRows{}, fmt.Errorf("transaction %d: missing id", i)
		}
		t := model.MigrateLegacy(r.LegacyTransaction, lookup)
		created := now
		if r.CreatedAt != nil && !r.CreatedAt.IsZero() {
			created = *r.CreatedAt
		}
		t.Date = t.Date.UTC()
		t.Amount = t.Amount.Round(2)
		t.CreatedAt, t.UpdatedAt = created.UTC(), created.UTC()

		for _, id := range t.Accounts() {
			if !accountIDs[id] {
				return ledgerRows{}, fmt.Errorf("transaction %s account %s: %w", t.ID, id, store.ErrAccountNotFound)
			}
		}
		if t.CategoryID != "" {
			if _, ok := categories[t.CategoryID]; !ok {
				return ledgerRows{}, fmt.Errorf("transaction %s category %s: %w", t.ID, t.CategoryID, store.ErrCategoryNotFound)
			}
		}
		rows.transactions = append(rows.transactions, t)
	}
	return rows, nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
