package accounts

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymngr/moneymngr/internal/model"
)

func TestWriteReadAccounts(t *testing.T) {
	created := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	accts := []model.Account{
		{ID: "a1", Name: "Cash", Type: model.AccountTypeCash, Balance: dec("12.5"), ThresholdValue: dec("0"), IncludeInNetWorth: true, CreatedAt: created},
		{ID: "a2", Name: "Car, Loan", Type: model.AccountTypeLoan, Balance: dec("-9000"), ThresholdValue: dec("0"), Group: "Debt", IsLiability: true, CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accts))
	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Car, Loan", got[1].Name)
	assert.True(t, got[1].IsLiability)
	assert.Equal(t, "-9000.00", got[1].Balance.StringFixed(2))
	assert.True(t, got[0].CreatedAt.Equal(created))
}

func TestReadAccounts_WrongHeader(t *testing.T) {
	_, err := ReadAccounts(strings.NewReader("a,b,c,d,e,f,g,h,i\n"))
	assert.ErrorContains(t, err, "header")
}

func TestUnmarshalAccount_LegacyType(t *testing.T) {
	a, err := UnmarshalAccount([]string{"a1", "Amex", "CREDIT_CARD", "0", "0", "", "true", "true", ""})
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeCredit, a.Type)
}

func TestUnmarshalAccount_Errors(t *testing.T) {
	_, err := UnmarshalAccount([]string{"a1"})
	assert.Error(t, err)

	_, err = UnmarshalAccount([]string{"a1", "X", "BANK", "abc", "0", "", "true", "false", ""})
	assert.ErrorContains(t, err, "balance")
}
