package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
)

const accountColumns = `id, name, type, balance, threshold_value, group_label, include_in_net_worth, is_liability, created_at, updated_at`

// InsertAccount stores a new account. A name collision yields ErrDuplicateEntity.
func (q *Queries) InsertAccount(ctx context.Context, a model.Account) error {
	_, err := q.q.ExecContext(ctx, `
	INSERT INTO accounts(`+accountColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Type), a.Balance.StringFixed(2), a.ThresholdValue.StringFixed(2),
		a.Group, a.IncludeInNetWorth, a.IsLiability, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("account %q: %w", a.Name, ErrDuplicateEntity)
	}
	if err != nil {
		return fmt.Errorf("inserting account %q: %w", a.Name, err)
	}
	return nil
}

// GetAccount returns an account by id, or ErrAccountNotFound.
func (q *Queries) GetAccount(ctx context.Context, id string) (model.Account, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
	}
	return a, err
}

// GetAccountByName returns an account by exact name, or ErrAccountNotFound.
func (q *Queries) GetAccountByName(ctx context.Context, name string) (model.Account, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE name = ?`, name)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %q: %w", name, ErrAccountNotFound)
	}
	return a, err
}

// ListAccounts returns all accounts ordered by name.
func (q *Queries) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAccountDetails rewrites every account field except balance.
func (q *Queries) UpdateAccountDetails(ctx context.Context, a model.Account) error {
	res, err := q.q.ExecContext(ctx, `
	UPDATE accounts SET name = ?, type = ?, threshold_value = ?, group_label = ?,
		include_in_net_worth = ?, is_liability = ?, updated_at = ?
	WHERE id = ?`,
		a.Name, string(a.Type), a.ThresholdValue.StringFixed(2), a.Group,
		a.IncludeInNetWorth, a.IsLiability, a.UpdatedAt, a.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("account %q: %w", a.Name, ErrDuplicateEntity)
	}
	if err != nil {
		return fmt.Errorf("updating account %s: %w", a.ID, err)
	}
	return expectOne(res, fmt.Errorf("account %s: %w", a.ID, ErrAccountNotFound))
}

// SetAccountBalance overwrites the stored balance, rounded to two decimals.
func (q *Queries) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := q.q.ExecContext(ctx, `UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance.StringFixed(2), Now(), id)
	if err != nil {
		return fmt.Errorf("setting balance on %s: %w", id, err)
	}
	return expectOne(res, fmt.Errorf("account %s: %w", id, ErrAccountNotFound))
}

// DeleteAccount removes an account row. Reference checks are the caller's job.
func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	return expectOne(res, fmt.Errorf("account %s: %w", id, ErrAccountNotFound))
}

// CountAccountReferences counts transactions that debit or credit the account.
func (q *Queries) CountAccountReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE from_account_id = ? OR to_account_id = ?`, id, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting references to %s: %w", id, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (model.Account, error) {
	var a model.Account
	var typ string
	if err := r.Scan(&a.ID, &a.Name, &typ, &a.Balance, &a.ThresholdValue, &a.Group,
		&a.IncludeInNetWorth, &a.IsLiability, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	return a, nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
