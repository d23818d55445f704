package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
)

// Header is the CSV header for transactions.csv exports.
const Header = "id,date,amount,transaction_type,from_account_id,to_account_id,category_id,description,status,source,linked_transaction_id,created_at"

const (
	numFields    = 12
	timeFormat   = time.RFC3339
	colID        = 0
	colDate      = 1
	colAmount    = 2
	colType      = 3
	colFrom      = 4
	colTo        = 5
	colCategory  = 6
	colDesc      = 7
	colStatus    = 8
	colSource    = 9
	colLinked    = 10
	colCreatedAt = 11
)

// ReadTransactions reads a transactions.csv export.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if got := strings.Join(records[0], ","); got != Header {
		return nil, fmt.Errorf("transactions CSV header %q, want %q", got, Header)
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// WriteTransactions writes transactions (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colDate] = t.Date.UTC().Format(timeFormat)
	row[colAmount] = t.Amount.StringFixed(2)
	row[colType] = string(t.Type)
	row[colFrom] = t.FromAccountID
	row[colTo] = t.ToAccountID
	row[colCategory] = t.CategoryID
	row[colDesc] = t.Description
	row[colStatus] = string(t.Status)
	row[colSource] = string(t.Source)
	row[colLinked] = t.LinkedTransactionID
	if !t.CreatedAt.IsZero() {
		row[colCreatedAt] = t.CreatedAt.UTC().Format(timeFormat)
	}
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(timeFormat, record[colDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	typ, err := model.ParseTransactionType(record[colType])
	if err != nil {
		return model.Transaction{}, err
	}

	var created time.Time
	if record[colCreatedAt] != "" {
		created, err = time.Parse(timeFormat, record[colCreatedAt])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
		}
	}

	return model.Transaction{
		ID:                  record[colID],
		Date:                date,
		Amount:              amount,
		Type:                typ,
		FromAccountID:       record[colFrom],
		ToAccountID:         record[colTo],
		CategoryID:          record[colCategory],
		Description:         record[colDesc],
		Status:              model.TransactionStatus(record[colStatus]),
		Source:              model.TransactionSource(record[colSource]),
		LinkedTransactionID: record[colLinked],
		CreatedAt:           created,
		UpdatedAt:           created,
	}, nil
}
