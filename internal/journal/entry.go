package journal

import (
	"context"
	"fmt"

	"github.com/moneymngr/moneymngr/internal/actionlog"
	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/parser"
)

// QuickEntryParams maps a parsed quick entry onto create params. The matched
// account is debited for EXPENSE and TRANSFER and credited for INCOME; a
// category hint without an id is dropped.
func QuickEntryParams(e parser.QuickEntry) (CreateParams, error) {
	if !e.HasAmount {
		return CreateParams{}, ValidationError{Field: "amount", Message: "no amount found in input"}
	}
	if e.Account == nil || e.Account.ID == "" {
		return CreateParams{}, ValidationError{Field: "fromAccountId", Message: "no account matched"}
	}

	p := CreateParams{
		Date:        e.Date,
		Amount:      e.Amount,
		Type:        e.Type,
		Description: e.Description,
		Status:      model.StatusConfirmed,
		Source:      model.SourceMagicBox,
	}
	if e.Type == model.TransactionTypeIncome {
		p.ToAccountID = e.Account.ID
	} else {
		p.FromAccountID = e.Account.ID
	}
	if e.Category != nil && e.Category.ID != "" && e.Type != model.TransactionTypeTransfer {
		p.CategoryID = e.Category.ID
	}
	if p.Description == "" && e.Category != nil {
		p.Description = e.Category.Name
	}
	return p, nil
}

// SMSParams maps a parsed message onto create params against a chosen
// account and optional category. pending marks rows saved without review.
func SMSParams(s parser.SMS, accountID, categoryID string, pending bool) CreateParams {
	p := CreateParams{
		Amount:     s.Amount,
		Type:       s.Type,
		CategoryID: categoryID,
		Status:     model.StatusConfirmed,
		Source:     model.SourceSMS,
	}
	if pending {
		p.Status = model.StatusPending
	}
	if s.Date != nil {
		p.Date = *s.Date
	}
	if p.Type == model.TransactionTypeIncome {
		p.ToAccountID = accountID
	} else {
		p.FromAccountID = accountID
	}

	switch {
	case s.Merchant != "":
		p.Description = s.Merchant
	case s.Bank != "":
		p.Description = s.Bank + " " + string(s.Type)
	default:
		p.Description = "SMS transaction"
	}
	return p
}

// CreateFromQuickEntry stores a parsed quick entry.
func (s *Service) CreateFromQuickEntry(ctx context.Context, e parser.QuickEntry) (model.Transaction, error) {
	p, err := QuickEntryParams(e)
	if err != nil {
		return model.Transaction{}, err
	}
	t, err := s.Create(ctx, p)
	if err != nil {
		return model.Transaction{}, err
	}
	s.actions.Record(actionlog.MagicBoxConfirm, t.ID, e.Raw)
	return t, nil
}

// CreateFromSMS stores a parsed message.
func (s *Service) CreateFromSMS(ctx context.Context, sms parser.SMS, accountID, categoryID string, pending bool) (model.Transaction, error) {
	if accountID == "" {
		return model.Transaction{}, ValidationError{Field: "fromAccountId", Message: "an account is required"}
	}
	t, err := s.Create(ctx, SMSParams(sms, accountID, categoryID, pending))
	if err != nil {
		return model.Transaction{}, err
	}
	s.actions.Record(actionlog.SMSParse, t.ID, fmt.Sprintf("%s %s confidence %d", t.Status, t.Amount.StringFixed(2), sms.Confidence))
	return t, nil
}
