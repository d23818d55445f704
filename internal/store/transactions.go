package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moneymngr/moneymngr/internal/model"
)

const transactionColumns = `id, date, amount, transaction_type, from_account_id, to_account_id, category_id,
	description, status, source, linked_transaction_id, created_at, updated_at`

// TransactionFilter narrows ListTransactions. Zero fields are ignored.
type TransactionFilter struct {
	AccountID  string // matches either side
	CategoryID string
	Type       model.TransactionType
	Status     model.TransactionStatus
	From       time.Time // inclusive
	To         time.Time // exclusive
	Search     string
	Limit      int
}

// InsertTransaction stores a single transaction row.
func (q *Queries) InsertTransaction(ctx context.Context, t model.Transaction) error {
	_, err := q.q.ExecContext(ctx, `INSERT INTO transactions(`+transactionColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, transactionArgs(t)...)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction %s: %w", t.ID, ErrDuplicateEntity)
	}
	if err != nil {
		return fmt.Errorf("inserting transaction %s: %w", t.ID, err)
	}
	return nil
}

// InsertTransactions stores many rows with one prepared statement. Callers
// wanting all-or-nothing must run it under WithTx.
func (q *Queries) InsertTransactions(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	preparer, ok := q.q.(interface {
		PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	})
	if !ok {
		for _, t := range txns {
			if err := q.InsertTransaction(ctx, t); err != nil {
				return err
			}
		}
		return nil
	}

	stmt, err := preparer.PrepareContext(ctx, `INSERT INTO transactions(`+transactionColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing bulk insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txns {
		if _, err := stmt.ExecContext(ctx, transactionArgs(t)...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("row %d: transaction %s: %w", i, t.ID, ErrDuplicateEntity)
			}
			return fmt.Errorf("row %d: inserting transaction %s: %w", i, t.ID, err)
		}
	}
	return nil
}

// GetTransaction returns a transaction by id, or ErrTransactionNotFound.
func (q *Queries) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
	}
	return t, err
}

// ListTransactions returns matching rows, newest first.
func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	var where []string
	var args []any

	if f.AccountID != "" {
		where = append(where, "(from_account_id = ? OR to_account_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "date < ?")
		args = append(args, f.To.UTC())
	}
	if f.Search != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTransaction rewrites every mutable column of an existing row.
// It never touches balances; see internal/journal for reconciled edits.
func (q *Queries) UpdateTransaction(ctx context.Context, t model.Transaction) error {
	res, err := q.q.ExecContext(ctx, `
	UPDATE transactions SET date = ?, amount = ?, transaction_type = ?, from_account_id = ?,
		to_account_id = ?, category_id = ?, description = ?, status = ?, source = ?,
		linked_transaction_id = ?, updated_at = ?
	WHERE id = ?`,
		t.Date.UTC(), t.Amount.StringFixed(2), string(t.Type), t.FromAccountID, t.ToAccountID,
		t.CategoryID, t.Description, string(t.Status), string(t.Source), t.LinkedTransactionID,
		t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("updating transaction %s: %w", t.ID, err)
	}
	return expectOne(res, fmt.Errorf("transaction %s: %w", t.ID, ErrTransactionNotFound))
}

// SetLinkedTransaction records the partner of a linked pair on one row.
func (q *Queries) SetLinkedTransaction(ctx context.Context, id, linkedID string) error {
	res, err := q.q.ExecContext(ctx, `UPDATE transactions SET linked_transaction_id = ?, updated_at = ? WHERE id = ?`,
		linkedID, Now(), id)
	if err != nil {
		return fmt.Errorf("linking transaction %s: %w", id, err)
	}
	return expectOne(res, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound))
}

// DeleteTransaction removes one row. Balance reversal is the caller's job.
func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	return expectOne(res, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound))
}

// CountTransactions returns the total number of transaction rows.
func (q *Queries) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// ClearAll empties all three collections.
func (q *Queries) ClearAll(ctx context.Context) error {
	for _, table := range []string{"transactions", "categories", "accounts"} {
		if _, err := q.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func transactionArgs(t model.Transaction) []any {
	return []any{
		t.ID, t.Date.UTC(), t.Amount.StringFixed(2), string(t.Type), t.FromAccountID, t.ToAccountID,
		t.CategoryID, t.Description, string(t.Status), string(t.Source), t.LinkedTransactionID,
		t.CreatedAt, t.UpdatedAt,
	}
}

func scanTransaction(r rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var typ, status, source string
	if err := r.Scan(&t.ID, &t.Date, &t.Amount, &typ, &t.FromAccountID, &t.ToAccountID, &t.CategoryID,
		&t.Description, &status, &source, &t.LinkedTransactionID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return model.Transaction{}, err
	}
	t.Type = model.TransactionType(typ)
	t.Status = model.TransactionStatus(status)
	t.Source = model.TransactionSource(source)
	return t, nil
}
