package model

import "github.com/shopspring/decimal"

// ReceiptItem is a single line on a scanned receipt.
type ReceiptItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ReceiptData is the structured content of a scanned receipt image.
type ReceiptData struct {
	Tax                  *decimal.Decimal `json:"tax,omitempty"`
	Tip                  *decimal.Decimal `json:"tip,omitempty"`
	Total                decimal.Decimal  `json:"total"`
	Vendor               string           `json:"vendor"`
	Date                 string           `json:"date"`
	Currency             string           `json:"currency"`
	Category             string           `json:"category"`
	Source               Source           `json:"source"`
	Model                string           `json:"model,omitempty"`
	ErrorNote            string           `json:"error_note,omitempty"`
	Items                []ReceiptItem    `json:"items"`
	Confidence           float64          `json:"confidence"`
	RequiresConfirmation bool             `json:"requires_confirmation"`
	FallbackUsed         bool             `json:"fallback_used"`
}

// ApplyConfirmationGate flags receipts with no total or with low confidence.
func (r *ReceiptData) ApplyConfirmationGate() {
	r.RequiresConfirmation = !r.Total.IsPositive() || r.Confidence < ConfirmationThreshold
}

// AsTransaction converts the receipt into an expense transaction.
func (r ReceiptData) AsTransaction() ParsedTransaction {
	return ParsedTransaction{
		Type:        TypeExpense,
		Amount:      r.Total,
		Currency:    r.Currency,
		Category:    NormalizeCategory(TypeExpense, r.Category),
		Description: r.Vendor,
		Date:        r.Date,
		Meta:        Meta{Vendor: r.Vendor, Tax: r.Tax, Tip: r.Tip},
		Confidence:  r.Confidence,
	}
}
