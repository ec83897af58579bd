package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-gateway/internal/common"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/shopspring/decimal"
)

// Confidence assigned when the model omits one.
const (
	DefaultConfidenceWithAmount = 0.8
	DefaultConfidenceNoAmount   = 0.3
)

// payloadKind discriminates the shapes a model answer may take.
type payloadKind int

const (
	kindMalformed payloadKind = iota
	kindMultiTransaction
	kindLegacySingle
	kindError
)

// financePayload is the decoded model answer after discrimination.
type financePayload struct {
	errMessage   string
	transactions []rawTransaction
	kind         payloadKind
}

type rawMeta struct {
	Tax      *decimal.Decimal `json:"tax"`
	Tip      *decimal.Decimal `json:"tip"`
	Vendor   string           `json:"vendor"`
	Location string           `json:"location"`
}

type rawTransaction struct {
	Meta        *rawMeta        `json:"meta"`
	Confidence  *float64        `json:"confidence"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// ParseFinanceResponse decodes a finance answer into normalized transactions.
// It returns common.ErrMalformedResponse for undecodable or unknown shapes and
// common.ErrUpstreamError when the model reported an error itself.
func ParseFinanceResponse(text string, today time.Time) ([]model.ParsedTransaction, error) {
	payload, err := discriminateFinance(text)
	if err != nil {
		return nil, err
	}

	switch payload.kind {
	case kindError:
		return nil, fmt.Errorf("%w: %s", common.ErrUpstreamError, payload.errMessage)
	case kindMultiTransaction, kindLegacySingle:
		txns := make([]model.ParsedTransaction, 0, len(payload.transactions))
		for _, raw := range payload.transactions {
			txns = append(txns, normalizeTransaction(raw, today))
		}
		return txns, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized payload shape", common.ErrMalformedResponse)
	}
}

func discriminateFinance(text string) (financePayload, error) {
	fields, err := decodeObject(text)
	if err != nil {
		return financePayload{}, err
	}

	if msg, ok := errorMarker(fields); ok {
		return financePayload{kind: kindError, errMessage: msg}, nil
	}

	if raw, ok := fields["transactions"]; ok {
		var txns []rawTransaction
		if err := json.Unmarshal(raw, &txns); err != nil {
			return financePayload{}, fmt.Errorf("%w: transactions: %w", common.ErrMalformedResponse, err)
		}
		return financePayload{kind: kindMultiTransaction, transactions: txns}, nil
	}

	_, hasAmount := fields["amount"]
	_, hasType := fields["type"]
	if hasAmount || hasType {
		var txn rawTransaction
		if err := json.Unmarshal([]byte(cleanMarkdownWrapper(text)), &txn); err != nil {
			return financePayload{}, fmt.Errorf("%w: transaction: %w", common.ErrMalformedResponse, err)
		}
		return financePayload{kind: kindLegacySingle, transactions: []rawTransaction{txn}}, nil
	}

	return financePayload{kind: kindMalformed}, nil
}

func normalizeTransaction(raw rawTransaction, today time.Time) model.ParsedTransaction {
	txnType := model.TypeExpense
	if strings.EqualFold(strings.TrimSpace(raw.Type), string(model.TypeIncome)) {
		txnType = model.TypeIncome
	}

	amount := raw.Amount.Abs()

	confidence := DefaultConfidenceNoAmount
	if amount.IsPositive() {
		confidence = DefaultConfidenceWithAmount
	}
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}

	var meta model.Meta
	if raw.Meta != nil {
		meta = model.Meta{
			Vendor:   strings.TrimSpace(raw.Meta.Vendor),
			Location: strings.TrimSpace(raw.Meta.Location),
			Tax:      absPtr(raw.Meta.Tax),
			Tip:      absPtr(raw.Meta.Tip),
		}
	}

	return model.ParsedTransaction{
		Type:        txnType,
		Amount:      amount,
		Currency:    model.NormalizeCurrency(raw.Currency),
		Category:    model.NormalizeCategory(txnType, strings.ToLower(strings.TrimSpace(raw.Category))),
		Description: strings.TrimSpace(raw.Description),
		Date:        model.NormalizeDate(raw.Date, today),
		Meta:        meta,
		Confidence:  model.ClampConfidence(confidence),
	}
}

type rawTask struct {
	Confidence  *float64 `json:"confidence"`
	DueDate     *string  `json:"due_date"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Recurrence  string   `json:"recurrence"`
}

// ParseTaskResponse decodes a task answer.
func ParseTaskResponse(text string) (model.ParsedTask, error) {
	fields, err := decodeObject(text)
	if err != nil {
		return model.ParsedTask{}, err
	}
	if msg, ok := errorMarker(fields); ok {
		return model.ParsedTask{}, fmt.Errorf("%w: %s", common.ErrUpstreamError, msg)
	}
	if _, ok := fields["title"]; !ok {
		return model.ParsedTask{}, fmt.Errorf("%w: task has no title", common.ErrMalformedResponse)
	}

	var raw rawTask
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(text)), &raw); err != nil {
		return model.ParsedTask{}, fmt.Errorf("%w: task: %w", common.ErrMalformedResponse, err)
	}

	task := model.ParsedTask{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Priority:    model.NormalizePriority(raw.Priority),
		Recurrence:  model.NormalizeRecurrence(raw.Recurrence),
	}
	if raw.DueDate != nil {
		if due, ok := model.ParseDate(*raw.DueDate); ok {
			task.DueDate = due
		}
	}

	confidence := DefaultConfidenceNoAmount
	if task.Title != "" {
		confidence = DefaultConfidenceWithAmount
	}
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}
	task.Confidence = model.ClampConfidence(confidence)

	return task, nil
}

type rawReceiptItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type rawReceipt struct {
	Tax        *decimal.Decimal `json:"tax"`
	Tip        *decimal.Decimal `json:"tip"`
	Confidence *float64         `json:"confidence"`
	Total      decimal.Decimal  `json:"total"`
	Vendor     string           `json:"vendor"`
	Date       string           `json:"date"`
	Currency   string           `json:"currency"`
	Category   string           `json:"category"`
	Items      []rawReceiptItem `json:"items"`
}

// ParseReceiptResponse decodes a receipt answer.
func ParseReceiptResponse(text string, today time.Time) (model.ReceiptData, error) {
	fields, err := decodeObject(text)
	if err != nil {
		return model.ReceiptData{}, err
	}
	if msg, ok := errorMarker(fields); ok {
		return model.ReceiptData{}, fmt.Errorf("%w: %s", common.ErrUpstreamError, msg)
	}
	_, hasTotal := fields["total"]
	_, hasItems := fields["items"]
	if !hasTotal && !hasItems {
		return model.ReceiptData{}, fmt.Errorf("%w: receipt has no total or items", common.ErrMalformedResponse)
	}

	var raw rawReceipt
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(text)), &raw); err != nil {
		return model.ReceiptData{}, fmt.Errorf("%w: receipt: %w", common.ErrMalformedResponse, err)
	}

	receipt := model.ReceiptData{
		Vendor:   strings.TrimSpace(raw.Vendor),
		Date:     model.NormalizeDate(raw.Date, today),
		Total:    raw.Total.Abs(),
		Currency: model.NormalizeCurrency(raw.Currency),
		Category: model.NormalizeCategory(model.TypeExpense, strings.ToLower(strings.TrimSpace(raw.Category))),
		Tax:      absPtr(raw.Tax),
		Tip:      absPtr(raw.Tip),
		Items:    make([]model.ReceiptItem, 0, len(raw.Items)),
	}
	for _, item := range raw.Items {
		receipt.Items = append(receipt.Items, model.ReceiptItem{
			Name:   strings.TrimSpace(item.Name),
			Amount: item.Amount.Abs(),
		})
	}

	confidence := DefaultConfidenceNoAmount
	if receipt.Total.IsPositive() {
		confidence = DefaultConfidenceWithAmount
	}
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}
	receipt.Confidence = model.ClampConfidence(confidence)

	return receipt, nil
}

// decodeObject strips wrappers and decodes the top-level JSON object.
func decodeObject(text string) (map[string]json.RawMessage, error) {
	cleaned := cleanMarkdownWrapper(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", common.ErrMalformedResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null payload", common.ErrMalformedResponse)
	}
	return fields, nil
}

// errorMarker reports an "error" field that is set to anything but null, false or "".
func errorMarker(fields map[string]json.RawMessage) (string, bool) {
	raw, ok := fields["error"]
	if !ok {
		return "", false
	}
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "null", "false", `""`:
		return "", false
	}

	var msg string
	if err := json.Unmarshal(trimmed, &msg); err == nil {
		return msg, true
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &nested); err == nil && nested.Message != "" {
		return nested.Message, true
	}
	return string(trimmed), true
}

// cleanMarkdownWrapper removes code fences and any prose around the JSON object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	if !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start >= 0 && end > start {
			content = content[start : end+1]
		}
	}
	return content
}

func absPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := d.Abs()
	return &v
}
