package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-gateway/internal/model"
)

// PromptBuilder renders the structured extraction prompts.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// FinancePrompt asks the model for every transaction mentioned in text.
func (b *PromptBuilder) FinancePrompt(text string, today time.Time) string {
	date := today.Format(model.DateLayout)

	return fmt.Sprintf(`Extract every financial transaction from the user's message.

USER MESSAGE:
%q

TODAY: %s

OUTPUT SCHEMA (respond with ONLY this JSON object, no markdown, no commentary):
{
  "transactions": [
    {
      "type": "income" | "expense",
      "amount": number (positive, no currency symbols),
      "currency": "BDT" | "USD" | "EUR" | "GBP" | "INR",
      "category": one of the category slugs below,
      "description": short noun phrase naming what the money was for,
      "date": "YYYY-MM-DD",
      "meta": {"vendor": string?, "location": string?, "tax": number?, "tip": number?},
      "confidence": number between 0 and 1
    }
  ]
}
If the message cannot be understood, respond with {"error": "<reason>"}.

INCOME CATEGORIES:
%s
EXPENSE CATEGORIES:
%s
RULES:
- Currency tokens: "$", "usd", "dollar", "dollars" mean USD; "৳", "bdt", "taka", "tk" mean BDT; "€" EUR; "£" GBP; "₹" INR. Default to BDT.
- Type: the words %s mean income. Everything else is an expense.
- A message may describe several transactions. Split on sentence endings, new lines and the word "and", and emit one object per transaction in the order they appear.
- Relative dates ("yesterday", "last friday") are resolved against TODAY. Missing dates are TODAY.
- Use "other" when no category fits. Never invent a category slug.
- Lower the confidence when the amount or the category is a guess.

EXAMPLES:
Message: "spent 30 taka on burger"
{"transactions":[{"type":"expense","amount":30,"currency":"BDT","category":"fast_food","description":"burger","date":"%s","meta":{},"confidence":0.95}]}

Message: "got 5000 tk tuition from my student and paid 120 for an uber"
{"transactions":[{"type":"income","amount":5000,"currency":"BDT","category":"tuition","description":"tuition from student","date":"%s","meta":{},"confidence":0.9},{"type":"expense","amount":120,"currency":"BDT","category":"ride_sharing","description":"uber","date":"%s","meta":{"vendor":"Uber"},"confidence":0.85}]}

Message: "$12.50 coffee at starbucks, tip $2"
{"transactions":[{"type":"expense","amount":12.5,"currency":"USD","category":"coffee_snacks","description":"coffee","date":"%s","meta":{"vendor":"Starbucks","tip":2},"confidence":0.9}]}
`,
		text,
		date,
		bulletList(model.IncomeCategories),
		bulletList(model.ExpenseCategories),
		quotedList(model.IncomeKeywords),
		date, date, date, date,
	)
}

// TaskPrompt asks the model for a single to-do item.
func (b *PromptBuilder) TaskPrompt(text string, today time.Time) string {
	date := today.Format(model.DateLayout)

	return fmt.Sprintf(`Turn the user's message into a single task.

USER MESSAGE:
%q

TODAY: %s (%s)

OUTPUT SCHEMA (respond with ONLY this JSON object, no markdown, no commentary):
{
  "title": short imperative title,
  "description": any extra detail, or "",
  "due_date": "YYYY-MM-DD" or null,
  "priority": "low" | "medium" | "high" | "urgent",
  "recurrence": "none" | "daily" | "weekly" | "monthly" | "yearly",
  "confidence": number between 0 and 1
}
If the message is not a task, respond with {"error": "<reason>"}.

RULES:
- Resolve relative dates ("tomorrow", "next monday") against TODAY.
- "asap", "urgent" and "immediately" mean urgent priority. Default priority is medium.
- "every day", "every week", "monthly" and similar set the recurrence. Default is none.

EXAMPLES:
Message: "submit the physics assignment by tomorrow, it's important"
{"title":"Submit physics assignment","description":"","due_date":"%s","priority":"high","recurrence":"none","confidence":0.9}

Message: "pay rent every month"
{"title":"Pay rent","description":"","due_date":null,"priority":"medium","recurrence":"monthly","confidence":0.85}
`,
		text,
		date,
		today.Weekday(),
		today.AddDate(0, 0, 1).Format(model.DateLayout),
	)
}

// ReceiptPrompt accompanies a receipt image.
func (b *PromptBuilder) ReceiptPrompt(today time.Time) string {
	return fmt.Sprintf(`Read the attached receipt image and extract its contents.

TODAY: %s

OUTPUT SCHEMA (respond with ONLY this JSON object, no markdown, no commentary):
{
  "vendor": store name,
  "date": "YYYY-MM-DD" (TODAY when not printed),
  "total": number,
  "currency": "BDT" | "USD" | "EUR" | "GBP" | "INR",
  "tax": number or null,
  "tip": number or null,
  "category": one of the expense categories below,
  "items": [{"name": string, "amount": number}],
  "confidence": number between 0 and 1
}
If the image is not a readable receipt, respond with {"error": "<reason>"}.

EXPENSE CATEGORIES:
%s`,
		today.Format(model.DateLayout),
		bulletList(model.ExpenseCategories),
	)
}

func bulletList(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return sb.String()
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}
