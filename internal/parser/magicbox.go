package parser

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
)

type categoryAlias struct {
	category string
	words    []string
}

// categoryAliases maps everyday words to default category names. Order
// matters: the first category listing a word wins.
var categoryAliases = []categoryAlias{
	{"Food", []string{"chai", "tea", "coffee", "lunch", "dinner", "breakfast", "snack", "biryani", "thali", "samosa", "dosa", "pav", "bhaji", "pizza", "burger", "noodles", "momos"}},
	{"Transport", []string{"uber", "ola", "rapido", "cab", "auto", "metro", "bus", "petrol", "diesel", "fuel", "parking", "toll"}},
	{"Shopping", []string{"amazon", "flipkart", "myntra", "ajio", "nykaa", "clothes", "shoes"}},
	{"Entertainment", []string{"netflix", "spotify", "hotstar", "prime", "movie", "film", "game"}},
	{"Health", []string{"medicine", "doctor", "hospital", "pharmacy", "gym", "yoga"}},
	{"Education", []string{"book", "course", "udemy", "class", "tuition", "school", "college"}},
	{"Utilities", []string{"electricity", "water", "gas", "wifi", "internet", "mobile", "recharge", "bill"}},
	{"Rent", []string{"rent", "emi"}},
	{"Grocery", []string{"grocery", "vegetables", "fruits", "milk", "eggs", "blinkit", "zepto", "bigbasket", "instamart"}},
	{"Salary", []string{"salary", "payroll", "stipend", "wage"}},
	{"Freelance", []string{"freelance", "project", "consulting"}},
	{"Investment", []string{"invest", "mutual", "sip", "stock", "fd", "rd"}},
	{"Cashback", []string{"cashback", "refund", "return"}},
}

var (
	incomeKeywords   = wordSet("income", "salary", "received", "credited", "earning", "freelance", "stipend", "cashback", "refund", "dividend")
	transferKeywords = wordSet("transfer", "send", "sent")
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// amountToken matches "200", "₹200", "rs.1,250.50" and "INR99".
var amountToken = regexp.MustCompile(`(?i)^(?:rs\.?|inr|₹)?(\d[\d,]*(?:\.\d+)?)$`)

// QuickEntry is the parsed form of a one-line entry such as "200 chai DB".
type QuickEntry struct {
	Amount      decimal.Decimal       `json:"amount"`
	HasAmount   bool                  `json:"hasAmount"`
	Account     *Match                `json:"accountMatch"`
	Category    *Match                `json:"categoryMatch"`
	Description string                `json:"description"`
	Date        time.Time             `json:"date"`
	Type        model.TransactionType `json:"transactionType"`
	Raw         string                `json:"rawInput"`
	Unmatched   []string              `json:"unmatchedTokens"`
}

// MagicBox parses quick-entry lines.
type MagicBox struct {
	Thresholds Thresholds
	now        func() time.Time
}

// NewMagicBox returns a parser using th.
func NewMagicBox(th Thresholds) *MagicBox {
	return &MagicBox{Thresholds: th, now: time.Now}
}

// Parse splits input on whitespace, takes the first positive number as the
// amount, consumes type keywords, then tries each remaining token as an
// account and then as a category. Leftover tokens become the description.
func (p *MagicBox) Parse(input string, accounts, categories []Candidate) QuickEntry {
	res := QuickEntry{
		Date: p.now(),
		Type: model.TransactionTypeExpense,
		Raw:  input,
	}
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return res
	}

	rest := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		if !res.HasAmount {
			if amt, ok := parseAmountToken(tok); ok {
				res.Amount, res.HasAmount = amt, true
				continue
			}
		}
		rest = append(rest, tokens[i])
	}

	words := rest[:0]
	for _, tok := range rest {
		lower := strings.ToLower(tok)
		switch {
		case incomeKeywords[lower]:
			res.Type = model.TransactionTypeIncome
		case transferKeywords[lower]:
			res.Type = model.TransactionTypeTransfer
		default:
			words = append(words, tok)
		}
	}

	th := p.Thresholds
	for _, tok := range words {
		if res.Account == nil {
			if m, ok := th.Best(tok, accounts); ok && m.Confidence >= th.AccountMin {
				res.Account = &m
				continue
			}
		}
		if res.Category == nil {
			if m, ok := th.alias(tok, categories); ok {
				res.Category = &m
				continue
			}
			if m, ok := th.Best(tok, categories); ok && m.Confidence >= th.CategoryMin {
				res.Category = &m
				continue
			}
		}
		res.Unmatched = append(res.Unmatched, tok)
	}
	res.Description = strings.Join(res.Unmatched, " ")
	return res
}

func parseAmountToken(tok string) (decimal.Decimal, bool) {
	m := amountToken.FindStringSubmatch(tok)
	if m == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// alias looks tok up in the alias table. The first category whose name
// equals or contains the aliased name is returned; when none exists the
// aliased name comes back as a hint.
func (th Thresholds) alias(tok string, categories []Candidate) (Match, bool) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	for _, a := range categoryAliases {
		if !slices.Contains(a.words, tok) {
			continue
		}
		want := strings.ToLower(a.category)
		for _, c := range categories {
			name := strings.ToLower(c.Name)
			if name == want || strings.Contains(name, want) {
				return Match{ID: c.ID, Name: c.Name, Confidence: th.Alias}, true
			}
		}
		return Match{Name: a.category, Confidence: th.AliasHint, Hint: true}, true
	}
	return Match{}, false
}

// CategoryCandidates converts categories to match candidates.
func CategoryCandidates(cats []model.Category) []Candidate {
	out := make([]Candidate, 0, len(cats))
	for _, c := range cats {
		out = append(out, Candidate{ID: c.ID, Name: c.Name})
	}
	return out
}

// AccountCandidates converts accounts to match candidates.
func AccountCandidates(accts []model.Account) []Candidate {
	out := make([]Candidate, 0, len(accts))
	for _, a := range accts {
		out = append(out, Candidate{ID: a.ID, Name: a.Name})
	}
	return out
}
