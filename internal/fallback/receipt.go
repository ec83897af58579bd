package fallback

import (
	"time"

	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/shopspring/decimal"
)

// Receipt returns an empty receipt for manual entry. Images cannot be read
// without the remote model, so nothing is guessed.
func Receipt(today time.Time, reason string) model.ReceiptData {
	receipt := model.ReceiptData{
		Total:        decimal.Zero,
		Date:         today.Format(model.DateLayout),
		Currency:     model.DefaultCurrency,
		Category:     model.CategoryOther,
		Items:        []model.ReceiptItem{},
		Source:       model.SourceFallback,
		ErrorNote:    reason,
		FallbackUsed: true,
	}
	receipt.ApplyConfirmationGate()
	return receipt
}
