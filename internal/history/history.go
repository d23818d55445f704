// Package history reconstructs past balances by replaying transactions
// backwards from the current balance. Nothing here writes to the store.
package history

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/ledger"
	"github.com/moneymngr/moneymngr/internal/model"
)

// Point is an account balance at the end of one day.
type Point struct {
	Date    time.Time
	Balance decimal.Decimal
}

// DayEnd returns the last nanosecond of t's calendar day in t's location.
func DayEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}

// reversal returns the amount to add to accountID's balance to undo t.
func reversal(accountID string, t model.Transaction) decimal.Decimal {
	total := decimal.Zero
	if !t.Status.Affects() {
		return total
	}
	for _, d := range ledger.Effects(t, ledger.Reverse) {
		if d.AccountID == accountID {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// BalanceAt returns accountID's balance as of instant at, given its
// current balance and the transactions touching it. Every transaction
// dated strictly after at is reversed.
func BalanceAt(accountID string, current decimal.Decimal, txns []model.Transaction, at time.Time) decimal.Decimal {
	balance := current
	for _, t := range txns {
		if t.Date.After(at) {
			balance = balance.Add(reversal(accountID, t))
		}
	}
	return balance.Round(2)
}

// Series returns one point per day from `from` to `to` inclusive, each the
// balance at that day's end. Dates are taken in from's location.
func Series(acct model.Account, txns []model.Transaction, from, to time.Time) []Point {
	days := Days(from, to)
	if len(days) == 0 {
		return nil
	}

	// Walk newest to oldest so each transaction is reversed once.
	sorted := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Touches(acct.ID) {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	points := make([]Point, len(days))
	balance := acct.Balance
	next := 0
	for i := len(days) - 1; i >= 0; i-- {
		end := DayEnd(days[i])
		for next < len(sorted) && sorted[next].Date.After(end) {
			balance = balance.Add(reversal(acct.ID, sorted[next]))
			next++
		}
		points[i] = Point{Date: days[i], Balance: balance.Round(2)}
	}
	return points
}

// Days lists midnight of every calendar day from `from` to `to` inclusive.
func Days(from, to time.Time) []time.Time {
	loc := from.Location()
	y, m, d := from.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	ty, tm, td := to.In(loc).Date()
	stop := time.Date(ty, tm, td, 0, 0, 0, 0, loc)

	var days []time.Time
	for day := start; !day.After(stop); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// NetWorthPoint splits a day's net worth into assets and liabilities.
type NetWorthPoint struct {
	Date        time.Time
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	NetWorth    decimal.Decimal
}

// NetWorth replays every account included in net worth. Liability
// accounts, and any account with a negative balance, count toward
// liabilities by absolute value.
func NetWorth(accts []model.Account, txns []model.Transaction, from, to time.Time) []NetWorthPoint {
	days := Days(from, to)
	out := make([]NetWorthPoint, len(days))
	for i, day := range days {
		out[i] = NetWorthPoint{Date: day, Assets: decimal.Zero, Liabilities: decimal.Zero}
	}

	for _, a := range accts {
		if !a.IncludeInNetWorth {
			continue
		}
		for i, p := range Series(a, txns, from, to) {
			switch {
			case a.IsLiability, p.Balance.IsNegative():
				out[i].Liabilities = out[i].Liabilities.Add(p.Balance.Abs())
			default:
				out[i].Assets = out[i].Assets.Add(p.Balance)
			}
		}
	}

	for i := range out {
		out[i].NetWorth = out[i].Assets.Sub(out[i].Liabilities).Round(2)
	}
	return out
}
