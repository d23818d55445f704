package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
)

// Header is the CSV header for accounts.csv.
const Header = "id,name,type,balance,threshold_value,group,include_in_net_worth,is_liability,created_at"

const (
	numFields    = 9
	timeFormat   = time.RFC3339
	colID        = 0
	colName      = 1
	colType      = 2
	colBalance   = 3
	colThreshold = 4
	colGroup     = 5
	colNetWorth  = 6
	colLiability = 7
	colCreatedAt = 8
)

// ReadAccounts reads accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if got := strings.Join(records[0], ","); got != Header {
		return nil, fmt.Errorf("accounts CSV header %q, want %q", got, Header)
	}

	var out []model.Account
	for i, rec := range records[1:] {
		a, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// WriteAccounts writes accounts.csv, header included.
func WriteAccounts(w io.Writer, accts []model.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, a := range accts {
		if err := cw.Write(MarshalAccount(a)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(a model.Account) []string {
	row := make([]string, numFields)
	row[colID] = a.ID
	row[colName] = a.Name
	row[colType] = string(a.Type)
	row[colBalance] = a.Balance.StringFixed(2)
	row[colThreshold] = a.ThresholdValue.StringFixed(2)
	row[colGroup] = a.Group
	row[colNetWorth] = strconv.FormatBool(a.IncludeInNetWorth)
	row[colLiability] = strconv.FormatBool(a.IsLiability)
	if !a.CreatedAt.IsZero() {
		row[colCreatedAt] = a.CreatedAt.UTC().Format(timeFormat)
	}
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	balance, err := decimal.NewFromString(record[colBalance])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
	}
	threshold, err := decimal.NewFromString(record[colThreshold])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing threshold_value %q: %w", record[colThreshold], err)
	}
	include, err := strconv.ParseBool(record[colNetWorth])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing include_in_net_worth %q: %w", record[colNetWorth], err)
	}
	liability, err := strconv.ParseBool(record[colLiability])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing is_liability %q: %w", record[colLiability], err)
	}

	var created time.Time
	if record[colCreatedAt] != "" {
		created, err = time.Parse(timeFormat, record[colCreatedAt])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return model.Account{
		ID:                record[colID],
		Name:              record[colName],
		Type:              model.MigrateAccountType(record[colType]),
		Balance:           balance,
		ThresholdValue:    threshold,
		Group:             record[colGroup],
		IncludeInNetWorth: include,
		IsLiability:       liability,
		CreatedAt:         created,
		UpdatedAt:         created,
	}, nil
}
