package fallback

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/shopspring/decimal"
)

// Confidence assigned to fallback transactions.
const (
	ConfidenceWithAmount = 0.65
	ConfidenceNoAmount   = 0.2
)

type categoryRule struct {
	slug     string
	keywords []string
}

// expenseRules is evaluated in order and the first matching keyword wins.
// Reordering changes how ambiguous clauses are classified.
var expenseRules = []categoryRule{
	{slug: "fast_food", keywords: []string{"burger", "pizza", "kfc", "mcdonald", "fries", "shawarma", "sandwich"}},
	{slug: "coffee_snacks", keywords: []string{"coffee", "tea", "cafe", "starbucks", "snack", "chips", "biscuit"}},
	{slug: "clothing", keywords: []string{"dress", "shirt", "clothes", "jeans", "shoes", "tshirt", "saree", "panjabi"}},
	{slug: "transport", keywords: []string{"uber", "taxi", "bus", "train", "fuel", "gas", "rickshaw", "cng", "pathao"}},
	{slug: "groceries", keywords: []string{"grocery", "groceries", "vegetables", "fish", "meat", "milk", "eggs", "supermarket"}},
	{slug: "entertainment", keywords: []string{"movie", "cinema", "netflix", "game", "concert", "spotify"}},
	{slug: "health", keywords: []string{"medicine", "doctor", "pharmacy", "hospital", "clinic", "gym"}},
	{slug: "education", keywords: []string{"course", "class", "exam", "school", "college", "university"}},
	{slug: "books_supplies", keywords: []string{"book", "notebook", "pen", "pencil", "stationery"}},
	{slug: "dining_out", keywords: []string{"restaurant", "dinner", "buffet", "treat"}},
	{slug: "food", keywords: []string{"lunch", "breakfast", "meal", "food", "rice", "biryani"}},
}

// incomeRules classifies clauses already identified as income.
var incomeRules = []categoryRule{
	{slug: "tuition", keywords: []string{"tuition", "tutoring", "student"}},
	{slug: "freelance", keywords: []string{"freelance", "client", "project", "upwork", "fiverr"}},
	{slug: "part_time_job", keywords: []string{"salary", "job", "shift", "wage", "wages"}},
	{slug: "from_home", keywords: []string{"home", "parents", "family", "mom", "dad", "father", "mother"}},
	{slug: "investment", keywords: []string{"dividend", "interest", "investment", "stock", "stocks", "profit"}},
	{slug: "gift", keywords: []string{"gift", "birthday", "eid", "salami"}},
}

const (
	numberPattern   = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`
	symbolPattern   = `[$৳]`
	wordCurrencies  = `usd|dollars?|bdt|taka|tk`
	prefixCurrency  = `usd|bdt|tk`
	clauseSeparator = `[.!?]+(?:\s+|$)|[\r\n]+|(?i:\s+and\s+)`
)

var (
	clauseRe = regexp.MustCompile(clauseSeparator)
	// "$25", "৳ 300", "tk 50"
	prefixAmountRe = regexp.MustCompile(`(?i)(` + symbolPattern + `|\b(?:` + prefixCurrency + `)\b\.?)\s*` + numberPattern)
	// "25 dollars", "300taka", "30৳"
	suffixAmountRe = regexp.MustCompile(`(?i)` + numberPattern + `\s*(` + symbolPattern + `|(?:` + wordCurrencies + `)\b)`)
	descriptionRe  = regexp.MustCompile(`(?i)\b(?:on|for|at)\s+(.+)$`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Finance parses text into transactions, one per clause. Clauses without a
// recognizable amount are kept with a zero amount so callers can ask for it.
func Finance(text string, today time.Time) model.ParseResult {
	result := model.ParseResult{
		Transactions: []model.ParsedTransaction{},
		Source:       model.SourceFallback,
		FallbackUsed: true,
	}

	for _, clause := range SplitClauses(text) {
		result.Transactions = append(result.Transactions, parseClause(clause, today))
	}

	result.ApplyConfirmationGate()
	return result
}

// SplitClauses splits on sentence endings, new lines and the word "and".
func SplitClauses(text string) []string {
	var clauses []string
	for _, part := range clauseRe.Split(text, -1) {
		part = strings.TrimSpace(part)
		part = strings.TrimRight(part, ",;:")
		if part != "" {
			clauses = append(clauses, part)
		}
	}
	return clauses
}

func parseClause(clause string, today time.Time) model.ParsedTransaction {
	amount, currency, span := detectAmount(clause)
	words := wordSet(clause)

	txnType := model.TypeExpense
	for _, kw := range model.IncomeKeywords {
		if words.has(kw) {
			txnType = model.TypeIncome
			break
		}
	}

	rules := expenseRules
	if txnType == model.TypeIncome {
		rules = incomeRules
	}
	category, keyword := matchCategory(rules, words)

	withoutAmount := clause
	if span != "" {
		withoutAmount = strings.Replace(clause, span, " ", 1)
	}

	confidence := ConfidenceNoAmount
	if amount.IsPositive() {
		confidence = ConfidenceWithAmount
	}

	return model.ParsedTransaction{
		Type:        txnType,
		Amount:      amount,
		Currency:    currency,
		Category:    category,
		Description: describe(clause, withoutAmount, keyword),
		Date:        today.Format(model.DateLayout),
		Confidence:  confidence,
	}
}

// detectAmount returns the amount, its currency and the matched text. Numbers
// without a currency token are ignored.
func detectAmount(clause string) (decimal.Decimal, string, string) {
	if m := prefixAmountRe.FindStringSubmatch(clause); m != nil {
		if amount, ok := parseNumber(m[2]); ok {
			return amount, currencyFor(m[1]), m[0]
		}
	}
	if m := suffixAmountRe.FindStringSubmatch(clause); m != nil {
		if amount, ok := parseNumber(m[1]); ok {
			return amount, currencyFor(m[2]), m[0]
		}
	}
	return decimal.Zero, model.DefaultCurrency, ""
}

func parseNumber(raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return amount.Abs(), true
}

func currencyFor(token string) string {
	return model.NormalizeCurrency(strings.TrimSuffix(strings.TrimSpace(token), "."))
}

func matchCategory(rules []categoryRule, words wordIndex) (string, string) {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if words.has(kw) {
				return rule.slug, kw
			}
		}
	}
	return model.CategoryOther, ""
}

// describe prefers the phrase after on/for/at, then the matched keyword, then the clause.
func describe(clause, withoutAmount, keyword string) string {
	if m := descriptionRe.FindStringSubmatch(withoutAmount); m != nil {
		if desc := cleanPhrase(m[1]); desc != "" {
			return desc
		}
	}
	if keyword != "" {
		return keyword
	}
	return cleanPhrase(clause)
}

func cleanPhrase(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// wordIndex is the lower-cased words of a clause, padded for phrase lookups.
type wordIndex struct {
	set    map[string]struct{}
	padded string
}

func wordSet(clause string) wordIndex {
	fields := strings.FieldsFunc(strings.ToLower(clause), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	idx := wordIndex{set: make(map[string]struct{}, len(fields)), padded: " " + strings.Join(fields, " ") + " "}
	for _, f := range fields {
		idx.set[f] = struct{}{}
	}
	return idx
}

// has matches whole words, plain plurals and multi-word phrases.
func (w wordIndex) has(keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(w.padded, " "+keyword+" ")
	}
	if _, ok := w.set[keyword]; ok {
		return true
	}
	if _, ok := w.set[keyword+"s"]; ok {
		return true
	}
	_, ok := w.set[keyword+"es"]
	return ok
}
