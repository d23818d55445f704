package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneymngr/moneymngr/internal/model"
)

// SMS is what could be read out of one bank or wallet message.
type SMS struct {
	Amount       decimal.Decimal       `json:"amount"`
	Type         model.TransactionType `json:"transactionType"`
	Bank         string                `json:"bankName,omitempty"`
	AccountLast4 string                `json:"accountLast4,omitempty"`
	Balance      *decimal.Decimal      `json:"balance,omitempty"`
	Merchant     string                `json:"merchantName,omitempty"`
	Reference    string                `json:"upiRef,omitempty"`
	Date         *time.Time            `json:"date,omitempty"`
	Confidence   int                   `json:"confidence"`
	Raw          string                `json:"rawText"`

	SuggestedAccount  string `json:"suggestedAccount,omitempty"`
	SuggestedCategory string `json:"suggestedCategory,omitempty"`
}

// Signal weights; the total is capped at maxConfidence.
const (
	scoreAmount   = 30
	scoreType     = 20
	scoreBank     = 15
	scoreLast4    = 10
	scoreBalance  = 5
	scoreCategory = 10
	maxConfidence = 100
)

type bankPattern struct {
	name     string
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// banks is checked in order against the lowercased text.
var banks = []bankPattern{
	{"HDFC", compileAll(`hdfc`)},
	{"SBI", compileAll(`\bsbi\b`, `state bank`, `statebank`)},
	{"ICICI", compileAll(`icici`)},
	{"Axis", compileAll(`\baxis\b`)},
	{"Kotak", compileAll(`kotak`)},
	{"PNB", compileAll(`\bpnb\b`, `punjab national`)},
	{"BOB", compileAll(`\bbob\b`, `bank of baroda`)},
	{"Canara", compileAll(`canara`)},
	{"IndusInd", compileAll(`indusind`)},
	{"Yes", compileAll(`yes bank`, `yesbank`)},
	{"IDBI", compileAll(`\bidbi\b`)},
	{"Union", compileAll(`union bank`)},
	{"Google Pay", compileAll(`\bgpay\b`, `google pay`, `googlepay`)},
	{"PhonePe", compileAll(`phonepe`, `phone pe`)},
	{"Paytm", compileAll(`paytm`)},
	{"Amazon", compileAll(`amazon pay`, `amazonpay`)},
	{"CRED", compileAll(`\bcred\b`)},
}

var (
	debitKeywords = keywordSet("debited", "debit", "spent", "withdrawn", "withdrawal", "payment",
		"purchase", "paid", "sent", "transferred", "txn", "dr", "deducted",
		"charged", "using", "toward", "for rs", "of rs", "amt of rs")
	creditKeywords = keywordSet("credited", "credit", "received", "deposited", "deposit", "refund",
		"cashback", "reversed", "cr", "added", "transferred to your")
)

type categoryKeywords struct {
	category string
	keywords keywordMatcher
}

// smsCategories is scanned in order and the first category with any hit
// wins, even if a later one has more hits.
var smsCategories = []categoryKeywords{
	{"Food", keywordSet("swiggy", "zomato", "food", "restaurant", "cafe", "hotel", "pizza",
		"burger", "chai", "tea", "coffee", "dominos", "mcdonalds", "kfc",
		"starbucks", "dunkin", "subway", "dineout", "eazydiner")},
	{"Transportation", keywordSet("uber", "ola", "rapido", "metro", "irctc", "railway", "petrol",
		"fuel", "diesel", "parking", "toll", "fastag", "cab", "taxi",
		"redbus", "bus", "flight", "airline", "indigo", "spicejet")},
	{"Shopping", keywordSet("amazon", "flipkart", "myntra", "ajio", "nykaa", "meesho",
		"snapdeal", "bigbasket", "grofers", "blinkit", "zepto", "dmart",
		"reliance", "mall", "shopping", "store", "mart", "decathlon")},
	{"Entertainment", keywordSet("netflix", "prime video", "hotstar", "spotify", "gaana", "wynk",
		"youtube", "movie", "cinema", "pvr", "inox", "bookmyshow",
		"gaming", "playstation", "xbox", "steam")},
	{"Utilities", keywordSet("electricity", "electric", "power", "water", "gas", "broadband",
		"wifi", "internet", "jio", "airtel", "vi", "vodafone", "bsnl",
		"mobile", "recharge", "postpaid", "prepaid", "dth", "tatasky")},
	{"Health", keywordSet("pharmacy", "medical", "hospital", "clinic", "doctor", "medicine",
		"apollo", "medplus", "netmeds", "1mg", "pharmeasy", "wellness",
		"gym", "fitness", "cult", "healthify")},
	{"Education", keywordSet("school", "college", "university", "course", "udemy", "coursera",
		"unacademy", "byju", "vedantu", "books", "stationery", "exam",
		"education", "tuition", "coaching")},
	{"Bills", keywordSet("bill", "emi", "loan", "insurance", "premium", "rent", "society",
		"maintenance", "subscription", "payment", "installment")},
}

// keywordMatcher matches plain substrings, except that keywords of three
// letters or fewer must stand alone ("dr" does not match "address").
type keywordMatcher struct {
	long  []string
	short *regexp.Regexp
}

func keywordSet(words ...string) keywordMatcher {
	var k keywordMatcher
	var short []string
	for _, w := range words {
		if len(w) <= 3 {
			short = append(short, regexp.QuoteMeta(w))
			continue
		}
		k.long = append(k.long, w)
	}
	if len(short) > 0 {
		k.short = regexp.MustCompile(`\b(?:` + strings.Join(short, "|") + `)\b`)
	}
	return k
}

func (k keywordMatcher) in(text string) bool {
	for _, w := range k.long {
		if strings.Contains(text, w) {
			return true
		}
	}
	return k.short != nil && k.short.MatchString(text)
}

const money = `([0-9,]+(?:\.\d{1,2})?)`

// Each list is tried in order and the first pattern that matches wins.
var (
	amountPatterns = compileAll(
		`(?:rs\.?|inr|₹)\s*`+money,
		money+`\s*(?:rs\.?|inr|₹)`,
		`(?:debited|credited|amount|amt|paid|received|sent)\s*(?:rs\.?|inr|₹)?\s*`+money,
		`(?:rs\.?|inr|₹)?\s*`+money+`\s*(?:debited|credited|has been|was|is)`,
	)
	accountPatterns = compileAll(
		`(?:a/c|ac|account|acct|card)[\s:]*(?:no\.?|number)?[\s:]*[x*]+(\d{4})`,
		`[x*]{4,}(\d{4})`,
		`(?:ending|linked)\s*(?:with)?\s*(\d{4})`,
	)
	balancePatterns = compileAll(
		`(?:bal|balance|avl\.?\s*bal|available\s*balance)[\s:]*(?:rs\.?|inr|₹)?\s*`+money,
		`(?:rs\.?|inr|₹)\s*`+money+`\s*(?:is your|as|available)`,
	)
	referencePatterns = compileAll(
		`(?:upi\s*ref|upi\s*id|ref\s*no|txn\s*id|transaction\s*id)[\s:.]*([a-z0-9]+)`,
		`(\d{12,})`,
	)
	merchantPatterns = compileAll(
		`(?i)(?:\bat|\bto|\bfrom|\bfor|@)\s+([a-z0-9\s]+?)(?:\s+on|\s+ref|\s+upi|\.|,|$)`,
		`(?i)(?:paid|sent|received)\s+(?:to|from)?\s*([a-z0-9\s]+?)(?:\s+on|\s+ref|\.|,|$)`,
	)
	numericDate = regexp.MustCompile(`(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})`)
	namedDate   = regexp.MustCompile(`(\d{1,2})[\s-]*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s,-]*(\d{2,4})`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

func firstSubmatch(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func firstMoney(patterns []*regexp.Regexp, text string) (decimal.Decimal, bool) {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		return d, true
	}
	return decimal.Zero, false
}

// ParseSMS reads one bank or wallet notification. It never fails; fields
// it cannot find are left empty and lower the confidence score.
func ParseSMS(raw string) SMS {
	text := strings.ToLower(raw)
	s := SMS{Type: model.TransactionTypeExpense, Raw: raw}
	score := 0

	if amt, ok := firstMoney(amountPatterns, text); ok {
		s.Amount = amt
		score += scoreAmount
	}

	debit, credit := debitKeywords.in(text), creditKeywords.in(text)
	switch {
	case credit && !debit:
		s.Type = model.TransactionTypeIncome
		score += scoreType
	case debit:
		score += scoreType
	}

	for _, b := range banks {
		if matchesAny(b.patterns, text) {
			s.Bank = b.name
			score += scoreBank
			break
		}
	}

	if last4, ok := firstSubmatch(accountPatterns, text); ok {
		s.AccountLast4 = last4
		score += scoreLast4
	}

	if bal, ok := firstMoney(balancePatterns, text); ok {
		s.Balance = &bal
		score += scoreBalance
	}

	if ref, ok := firstSubmatch(referencePatterns, text); ok {
		s.Reference = ref
	}

	if d, ok := parseSMSDate(text); ok {
		s.Date = &d
	}

	for _, p := range merchantPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			if name := strings.TrimSpace(m[1]); len(name) > 2 {
				s.Merchant = name
				break
			}
		}
	}

	for _, c := range smsCategories {
		if c.keywords.in(text) {
			s.SuggestedCategory = c.category
			score += scoreCategory
			break
		}
	}

	if s.Bank != "" {
		s.SuggestedAccount = s.Bank
		if s.AccountLast4 != "" {
			s.SuggestedAccount += " " + s.AccountLast4
		}
	}

	s.Confidence = min(score, maxConfidence)
	return s
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// parseSMSDate reads day-first dates such as "05-01-24", "5/1/2024" and
// "05 jan 2024". Two-digit years are taken as 20xx.
func parseSMSDate(text string) (time.Time, bool) {
	var day, year int
	var month time.Month
	if m := numericDate.FindStringSubmatch(text); m != nil {
		day, _ = strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		month = time.Month(mon)
		year, _ = strconv.Atoi(m[3])
	} else if m := namedDate.FindStringSubmatch(text); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = months[m[2]]
		year, _ = strconv.Atoi(m[3])
	} else {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ShouldAutoSubmit reports whether s is confident enough to be saved as a
// pending transaction without the user filling in the form.
func (th Thresholds) ShouldAutoSubmit(s SMS) bool {
	return s.Confidence >= th.AutoSubmit && s.Amount.IsPositive()
}

// Resolve picks the ledger account and category for s. The account is
// matched by bank name, then by the last four digits appearing in an account
// name, then by any suggested account name; the category by the suggested
// category name. Callers pass only categories of the matching type.
func (th Thresholds) Resolve(s SMS, accounts, categories []Candidate) (accountID, categoryID string) {
	for _, name := range []string{s.Bank, s.SuggestedAccount} {
		if name == "" || accountID != "" {
			continue
		}
		if m, ok := th.Best(name, accounts); ok && m.Confidence >= th.AccountMin {
			accountID = m.ID
		}
	}
	if accountID == "" && s.AccountLast4 != "" {
		for _, a := range accounts {
			if strings.Contains(a.Name, s.AccountLast4) {
				accountID = a.ID
				break
			}
		}
	}
	if s.SuggestedCategory != "" {
		if m, ok := th.Best(s.SuggestedCategory, categories); ok && m.Confidence >= th.CategoryMin {
			categoryID = m.ID
		}
	}
	return accountID, categoryID
}

// ParseSMSBatch parses every message and keeps those with an amount.
func ParseSMSBatch(messages []string) []SMS {
	var out []SMS
	for _, m := range messages {
		if s := ParseSMS(m); s.Amount.IsPositive() {
			out = append(out, s)
		}
	}
	return out
}

// FormatSMS renders s as "Label: value" lines for display.
func FormatSMS(s SMS, symbol string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Amount: %s%s\n", symbol, s.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Type: %s\n", s.Type)
	if s.Bank != "" {
		fmt.Fprintf(&b, "Bank: %s\n", s.Bank)
	}
	if s.AccountLast4 != "" {
		fmt.Fprintf(&b, "Account: ****%s\n", s.AccountLast4)
	}
	if s.Merchant != "" {
		fmt.Fprintf(&b, "Merchant: %s\n", s.Merchant)
	}
	if s.Balance != nil {
		fmt.Fprintf(&b, "Balance: %s%s\n", symbol, s.Balance.StringFixed(2))
	}
	if s.Reference != "" {
		fmt.Fprintf(&b, "UPI Ref: %s\n", s.Reference)
	}
	if s.Date != nil {
		fmt.Fprintf(&b, "Date: %s\n", s.Date.Format("02/01/2006"))
	}
	fmt.Fprintf(&b, "Confidence: %d%%", s.Confidence)
	if s.SuggestedAccount != "" {
		fmt.Fprintf(&b, "\nSuggested Account: %s", s.SuggestedAccount)
	}
	if s.SuggestedCategory != "" {
		fmt.Fprintf(&b, "\nSuggested Category: %s", s.SuggestedCategory)
	}
	return b.String()
}
