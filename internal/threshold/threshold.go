// Package threshold classifies how safe it is to spend from an account.
package threshold

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the three-tier spendability classification.
type Status string

const (
	StatusSafe     Status = "SAFE"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

var (
	hundred       = decimal.NewFromInt(100)
	criticalLimit = decimal.NewFromInt(20)
	warningLimit  = decimal.NewFromInt(50)
)

// Result is the outcome of one evaluation.
type Result struct {
	Balance          decimal.Decimal
	Threshold        decimal.Decimal
	Spendable        decimal.Decimal
	PercentRemaining decimal.Decimal
	Status           Status
	Message          string
}

// Evaluator formats messages with a currency symbol.
type Evaluator struct {
	Symbol string
}

// Evaluate runs the default evaluator (rupee symbol).
func Evaluate(balance, threshold, proposedExpense decimal.Decimal) Result {
	return Evaluator{Symbol: "₹"}.Evaluate(balance, threshold, proposedExpense)
}

// Evaluate computes spendable = balance - proposedExpense - threshold and
// classifies it:
//
//	spendable < 0              CRITICAL
//	0 <= percent <= 20         CRITICAL
//	20 < percent <= 50         WARNING
//	percent > 50               SAFE
//
// percent is spendable/threshold*100. A zero threshold has no percentage;
// it reports 100 while spendable stays non-negative.
func (e Evaluator) Evaluate(balance, threshold, proposedExpense decimal.Decimal) Result {
	spendable := balance.Sub(proposedExpense).Sub(threshold)

	// Bands are checked against the unrounded ratio; only the reported
	// figure is rounded.
	var percent decimal.Decimal
	switch {
	case threshold.IsPositive():
		percent = spendable.Div(threshold).Mul(hundred)
	case spendable.IsNegative():
		percent = decimal.Zero
	default:
		percent = hundred
	}

	r := Result{
		Balance:          balance,
		Threshold:        threshold,
		Spendable:        spendable,
		PercentRemaining: percent.Round(2),
	}

	amount := e.Symbol + spendable.Abs().StringFixed(2)
	switch {
	case spendable.IsNegative():
		r.Status = StatusCritical
		r.Message = fmt.Sprintf("This will put you %s below your threshold!", amount)
	case percent.LessThanOrEqual(criticalLimit):
		r.Status = StatusCritical
		r.Message = fmt.Sprintf("Only %s left above threshold", amount)
	case percent.LessThanOrEqual(warningLimit):
		r.Status = StatusWarning
		r.Message = fmt.Sprintf("Only %s left above threshold", amount)
	default:
		r.Status = StatusSafe
		r.Message = fmt.Sprintf("You have %s safe to spend", amount)
	}
	return r
}
