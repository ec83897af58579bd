// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used on every parsed record.
const DateLayout = "2006-01-02"

// ConfirmationThreshold is the confidence below which a user must review the result.
const ConfirmationThreshold = 0.6

// Module identifies which extraction domain a request belongs to.
type Module string

// Extraction modules.
const (
	ModuleFinance Module = "finance"
	ModuleTask    Module = "task"
	ModuleReceipt Module = "receipt"
)

// Source records which path produced a result.
type Source string

// Result sources.
const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Meta holds optional details the model may extract alongside a transaction.
type Meta struct {
	Tax      *decimal.Decimal `json:"tax,omitempty"`
	Tip      *decimal.Decimal `json:"tip,omitempty"`
	Vendor   string           `json:"vendor,omitempty"`
	Location string           `json:"location,omitempty"`
}

// ParsedTransaction is one financial record extracted from free-form text.
type ParsedTransaction struct {
	Meta        Meta            `json:"meta"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Confidence  float64         `json:"confidence"`
}

// ParseResult is the outcome of a finance extraction.
type ParseResult struct {
	Transactions         []ParsedTransaction `json:"transactions"`
	Source               Source              `json:"source"`
	Model                string              `json:"model,omitempty"`
	ErrorNote            string              `json:"error_note,omitempty"`
	RequiresConfirmation bool                `json:"requires_confirmation"`
	FallbackUsed         bool                `json:"fallback_used"`
}

// ApplyConfirmationGate sets RequiresConfirmation when the list is empty or any
// transaction falls below ConfirmationThreshold.
func (r *ParseResult) ApplyConfirmationGate() {
	r.RequiresConfirmation = len(r.Transactions) == 0
	for _, txn := range r.Transactions {
		if txn.Confidence < ConfirmationThreshold {
			r.RequiresConfirmation = true
			return
		}
	}
}

// MinConfidence returns the lowest confidence in the result, or 0 when empty.
func (r ParseResult) MinConfidence() float64 {
	if len(r.Transactions) == 0 {
		return 0
	}
	lowest := r.Transactions[0].Confidence
	for _, txn := range r.Transactions[1:] {
		if txn.Confidence < lowest {
			lowest = txn.Confidence
		}
	}
	return lowest
}

// ClampConfidence bounds a confidence score to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// NormalizeDate parses common date spellings into DateLayout, falling back to today.
func NormalizeDate(raw string, today time.Time) string {
	if date, ok := ParseDate(raw); ok {
		return date
	}
	return today.Format(DateLayout)
}

// ParseDate parses common date spellings into DateLayout.
func ParseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	layouts := []string{
		DateLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
		"02/01/2006",
		"02-01-2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}
