package journal

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/threshold"
)

// Preview shows what spending an amount would do to an account before the
// expense is created.
type Preview struct {
	Account          model.Account
	NewBalance       decimal.Decimal
	SafeBalance      decimal.Decimal
	IsAboveThreshold bool
	Evaluation       threshold.Result
}

// ThresholdPreview computes the balance after spending amount from
// accountID. Nothing is written.
func (s *Service) ThresholdPreview(ctx context.Context, accountID string, amount decimal.Decimal, ev threshold.Evaluator) (Preview, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return Preview{}, err
	}
	newBalance := a.Balance.Sub(amount)
	return Preview{
		Account:          a,
		NewBalance:       newBalance,
		SafeBalance:      newBalance.Sub(a.ThresholdValue),
		IsAboveThreshold: newBalance.GreaterThanOrEqual(a.ThresholdValue),
		Evaluation:       ev.Evaluate(a.Balance, a.ThresholdValue, amount),
	}, nil
}
