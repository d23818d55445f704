package history

import (
	"context"
	"fmt"
	"time"

	"github.com/moneymngr/moneymngr/internal/store"
)

// Service loads accounts and transactions from the store and projects them.
type Service struct {
	store *store.Store
}

// NewService creates a history Service.
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// AccountSeries returns the daily balance of one account between from and to.
func (s *Service) AccountSeries(ctx context.Context, accountID string, from, to time.Time) ([]Point, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	// Only rows after the range start can change a point in the range.
	txns, err := s.store.ListTransactions(ctx, store.TransactionFilter{AccountID: accountID, From: from})
	if err != nil {
		return nil, err
	}
	return Series(a, txns, from, to), nil
}

// NetWorthSeries returns daily net worth between from and to.
func (s *Service) NetWorthSeries(ctx context.Context, from, to time.Time) ([]NetWorthPoint, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	accts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, store.TransactionFilter{From: from})
	if err != nil {
		return nil, err
	}
	return NetWorth(accts, txns, from, to), nil
}
