// Package ledger computes and applies the balance effect of transactions.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
)

// Direction says whether a transaction's effect is added or taken back.
type Direction int

const (
	Apply Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "apply"
}

// Delta is a signed change to one account's balance.
type Delta struct {
	AccountID string
	Amount    decimal.Decimal
}

// Effects returns the balance deltas of t in direction dir. The result is
// independent of t.Status; callers decide whether a status carries an effect.
//
//	EXPENSE:  from -amount
//	INCOME:   to   +amount
//	TRANSFER: from -amount, to +amount
func Effects(t model.Transaction, dir Direction) []Delta {
	amt := t.Amount
	if dir == Reverse {
		amt = amt.Neg()
	}

	switch t.Type {
	case model.TransactionTypeExpense:
		return []Delta{{AccountID: t.FromAccountID, Amount: amt.Neg()}}
	case model.TransactionTypeIncome:
		return []Delta{{AccountID: t.ToAccountID, Amount: amt}}
	case model.TransactionTypeTransfer:
		return []Delta{
			{AccountID: t.FromAccountID, Amount: amt.Neg()},
			{AccountID: t.ToAccountID, Amount: amt},
		}
	}
	return nil
}

// Accumulate folds deltas into a per-account net map.
func Accumulate(into map[string]decimal.Decimal, deltas []Delta) {
	for _, d := range deltas {
		into[d.AccountID] = into[d.AccountID].Add(d.Amount)
	}
}

// ApplyTo runs the effect of t against q, which should be bound to an open
// store transaction. Rows whose status carries no effect are skipped. Every
// account is read before any balance is written, so a missing account fails
// with store.ErrAccountNotFound and nothing is changed.
func ApplyTo(ctx context.Context, q *store.Queries, t model.Transaction, dir Direction) error {
	if !t.Status.Affects() {
		return nil
	}
	net := make(map[string]decimal.Decimal)
	Accumulate(net, Effects(t, dir))
	if err := Commit(ctx, q, net); err != nil {
		return fmt.Errorf("%s %s: %w", dir, t.ID, err)
	}
	return nil
}

// Commit adds each net delta to its account balance. Deltas for an empty
// account id are rejected as a missing account.
func Commit(ctx context.Context, q *store.Queries, net map[string]decimal.Decimal) error {
	accounts := make(map[string]model.Account, len(net))
	for id := range net {
		if id == "" {
			return fmt.Errorf("empty account id: %w", store.ErrAccountNotFound)
		}
		a, err := q.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		accounts[id] = a
	}

	for id, delta := range net {
		if delta.IsZero() {
			continue
		}
		balance := accounts[id].Balance.Add(delta).Round(2)
		if err := q.SetAccountBalance(ctx, id, balance); err != nil {
			return err
		}
	}
	return nil
}
