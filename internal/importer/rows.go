package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Row is one raw CSV line after header normalization. All fields are free
// text; Import decides what they mean.
type Row struct {
	Line        int
	Date        string
	Account     string
	Category    string
	Subcategory string
	Note        string
	Amount      string
	Description string
	Type        string
}

// Field names a normalized CSV column.
type Field string

const (
	FieldDate        Field = "date"
	FieldAccount     Field = "account"
	FieldCategory    Field = "category"
	FieldSubcategory Field = "subcategory"
	FieldNote        Field = "note"
	FieldAmount      Field = "amount"
	FieldDescription Field = "description"
	FieldType        Field = "type"
	FieldCurrency    Field = "currency"
)

type alias struct {
	field Field
	names []string
}

// aliases is scanned in order; the first field with a matching alias wins.
var aliases = []alias{
	{FieldDate, []string{"date", "datetime", "timestamp"}},
	{FieldAccount, []string{"account", "accountname", "fromaccount", "acct"}},
	{FieldCategory, []string{"category", "maincategory"}},
	{FieldSubcategory, []string{"subcategory", "subcat"}},
	{FieldNote, []string{"note", "memo", "remarks"}},
	{FieldAmount, []string{"amount", "inr", "value", "amt"}},
	{FieldDescription, []string{"description", "details"}},
	{FieldType, []string{"incomeexpense", "income", "expense", "type", "transactiontype"}},
	{FieldCurrency, []string{"currency"}},
}

// minSubstringAlias is the shortest alias allowed to match inside a longer
// header. Short aliases like "amt" only match exactly.
const minSubstringAlias = 4

var (
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]`)
	numericValue = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
)

func normalizeHeader(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// MapHeader returns the field a raw header names, or "" when no alias
// matches. Exact alias matches are preferred over substring matches.
// "Account Name" -> account, "Amount (INR)" -> amount
func MapHeader(raw string) Field {
	key := normalizeHeader(raw)
	if key == "" {
		return ""
	}
	for _, a := range aliases {
		for _, n := range a.names {
			if key == n {
				return a.field
			}
		}
	}
	for _, a := range aliases {
		for _, n := range a.names {
			if len(n) >= minSubstringAlias && strings.Contains(key, n) {
				return a.field
			}
		}
	}
	return ""
}

// looksNumeric reports values like "42" or "-3.50", which in an account
// column usually mean the CSV columns are misaligned.
func looksNumeric(s string) bool {
	return numericValue.MatchString(strings.TrimSpace(s))
}

// ReadRows reads a CSV with a header row and returns the rows that have both
// a date and an amount. Unknown columns are ignored.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	fields := make([]Field, len(header))
	for i, h := range header {
		fields[i] = MapHeader(h)
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		row := Row{Line: line}
		for i, v := range rec {
			if i >= len(fields) {
				break
			}
			row.set(fields[i], strings.TrimSpace(v))
		}
		if row.Date == "" || row.Amount == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Row) set(f Field, v string) {
	switch f {
	case FieldDate:
		r.Date = v
	case FieldAccount:
		if !looksNumeric(v) {
			r.Account = v
		}
	case FieldCategory:
		r.Category = v
	case FieldSubcategory:
		r.Subcategory = v
	case FieldNote:
		r.Note = v
	case FieldAmount:
		r.Amount = v
	case FieldDescription:
		r.Description = v
	case FieldType:
		r.Type = v
	}
}
