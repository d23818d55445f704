package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies where money is held or owed.
type AccountType string

const (
	AccountTypeBank       AccountType = "BANK"
	AccountTypeSavings    AccountType = "SAVINGS"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeWallet     AccountType = "WALLET"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeLoan       AccountType = "LOAN"
	AccountTypeInvestment AccountType = "INVESTMENT"
	AccountTypePerson     AccountType = "PERSON"
	AccountTypeOther      AccountType = "OTHER"
)

// AccountTypes lists every valid AccountType in display order.
var AccountTypes = []AccountType{
	AccountTypeBank,
	AccountTypeSavings,
	AccountTypeCash,
	AccountTypeWallet,
	AccountTypeCredit,
	AccountTypeLoan,
	AccountTypeInvestment,
	AccountTypePerson,
	AccountTypeOther,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, at := range AccountTypes {
		if at == t {
			return true
		}
	}
	return false
}

// Account is a named pot of money. Balance is only ever changed by the
// balance engine in internal/ledger.
type Account struct {
	ID                string
	Name              string
	Type              AccountType
	Balance           decimal.Decimal
	ThresholdValue    decimal.Decimal
	Group             string
	IncludeInNetWorth bool
	IsLiability       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
