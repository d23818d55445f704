package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"github.com/moneymngr/moneymngr/internal/model"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Suggestion is a model's guess at how to file an SMS.
type Suggestion struct {
	Category    string                `json:"category"`
	SubCategory string                `json:"subCategory"`
	AccountName string                `json:"accountName"`
	Type        model.TransactionType `json:"transactionType"`
	Confidence  int                   `json:"confidence"`
	Reasoning   string                `json:"reasoning"`
}

// SuggestRequest carries the message and the user's ledger vocabulary.
type SuggestRequest struct {
	SMS        string
	Categories []model.Category
	Accounts   []model.Account
	// Recent holds "merchant: category" lines for similar past spending.
	Recent []string
}

// maxRecent caps the past transactions shown to the model.
const maxRecent = 10

// RecentLines renders up to ten categorized transactions as
// "description: Category" or "description: Parent/Child" for
// SuggestRequest.Recent. Rows whose category is not in cats are skipped.
func RecentLines(txns []model.Transaction, cats []model.Category) []string {
	byID := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	var lines []string
	for _, t := range txns {
		if len(lines) == maxRecent {
			break
		}
		c, ok := byID[t.CategoryID]
		if !ok || t.Description == "" {
			continue
		}
		name := c.Name
		if parent, ok := byID[c.ParentID]; ok {
			name = parent.Name + "/" + c.Name
		}
		lines = append(lines, t.Description+": "+name)
	}
	return lines
}

// Suggester proposes a category and account for an SMS.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestRequest) (Suggestion, error)
}

// ErrNoSuggestion is returned when the model answered without usable JSON.
var ErrNoSuggestion = errors.New("no suggestion in model response")

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSuggester asks a Gemini model for suggestions.
type GeminiSuggester struct {
	models contentGenerator
	model  string
}

// NewGeminiSuggester creates a client for the Gemini API.
func NewGeminiSuggester(ctx context.Context, apiKey, modelName string) (*GeminiSuggester, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiSuggester{models: client.Models, model: modelName}, nil
}

// Suggest sends the prompt and decodes the JSON answer.
func (g *GeminiSuggester) Suggest(ctx context.Context, req SuggestRequest) (Suggestion, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.3),
		MaxOutputTokens:  500,
		ResponseMIMEType: "application/json",
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(req)), cfg)
	if err != nil {
		return Suggestion{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	return parseSuggestion(resp.Text())
}

func buildPrompt(req SuggestRequest) string {
	var b strings.Builder
	b.WriteString("You are a financial transaction categorizer for an Indian user. ")
	b.WriteString("Analyze this bank SMS and suggest the most appropriate category, subcategory, and account based on the user's existing data.\n\n")
	fmt.Fprintf(&b, "SMS MESSAGE:\n%q\n\n", req.SMS)

	b.WriteString("EXISTING CATEGORIES:\n")
	if len(req.Categories) == 0 {
		b.WriteString("None yet\n")
	}
	children := map[string][]string{}
	for _, c := range req.Categories {
		if c.ParentID != "" {
			children[c.ParentID] = append(children[c.ParentID], c.Name)
		}
	}
	for _, c := range req.Categories {
		if c.ParentID != "" {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)", c.Name, c.Type)
		if subs := children[c.ID]; len(subs) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(subs, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nEXISTING ACCOUNTS:\n")
	if len(req.Accounts) == 0 {
		b.WriteString("None yet\n")
	}
	for _, a := range req.Accounts {
		fmt.Fprintf(&b, "- %s (%s)\n", a.Name, a.Type)
	}

	b.WriteString("\nRECENT SIMILAR TRANSACTIONS:\n")
	if len(req.Recent) == 0 {
		b.WriteString("None yet\n")
	}
	for i, r := range req.Recent {
		if i == maxRecent {
			break
		}
		fmt.Fprintf(&b, "- %s\n", r)
	}

	b.WriteString(`
Respond ONLY with JSON in this format:
{"category": string or null, "subCategory": string or null, "accountName": string or null,
 "transactionType": "EXPENSE" or "INCOME", "confidence": number 0-100, "reasoning": string}
`)
	return b.String()
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// parseSuggestion pulls the first JSON object out of text, tolerating code
// fences and chatter around it.
func parseSuggestion(text string) (Suggestion, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return Suggestion{}, ErrNoSuggestion
	}
	var wire struct {
		Category        *string  `json:"category"`
		SubCategory     *string  `json:"subCategory"`
		AccountName     *string  `json:"accountName"`
		TransactionType string   `json:"transactionType"`
		Confidence      *float64 `json:"confidence"`
		Reasoning       string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrNoSuggestion, err)
	}

	s := Suggestion{
		Category:    deref(wire.Category),
		SubCategory: deref(wire.SubCategory),
		AccountName: deref(wire.AccountName),
		Type:        model.TransactionTypeExpense,
		Confidence:  50,
		Reasoning:   wire.Reasoning,
	}
	if strings.EqualFold(wire.TransactionType, string(model.TransactionTypeIncome)) {
		s.Type = model.TransactionTypeIncome
	}
	if wire.Confidence != nil {
		s.Confidence = min(max(int(*wire.Confidence), 0), 100)
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
