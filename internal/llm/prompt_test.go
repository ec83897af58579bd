package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPromptBuilder(t *testing.T) {
	b := NewPromptBuilder()
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("finance", func(t *testing.T) {
		p := b.FinancePrompt("spent 30 taka on burger", today)

		assert.Contains(t, p, `"spent 30 taka on burger"`)
		assert.Contains(t, p, "TODAY: 2024-03-15")
		assert.Contains(t, p, `"transactions"`)
		for _, slug := range model.ExpenseCategories {
			assert.Contains(t, p, "- "+slug+"\n")
		}
		for _, slug := range model.IncomeCategories {
			assert.Contains(t, p, "- "+slug+"\n")
		}
		assert.Contains(t, p, `"salary"`)
		assert.Contains(t, p, "taka")
		assert.Equal(t, 3, strings.Count(p, "Message: "))
	})

	t.Run("task", func(t *testing.T) {
		p := b.TaskPrompt("call mom tomorrow", today)
		assert.Contains(t, p, `"call mom tomorrow"`)
		assert.Contains(t, p, "Friday")
		assert.Contains(t, p, `"due_date":"2024-03-16"`)
		assert.Contains(t, p, "recurrence")
	})

	t.Run("receipt", func(t *testing.T) {
		p := b.ReceiptPrompt(today)
		assert.Contains(t, p, "receipt image")
		assert.Contains(t, p, "- dining_out\n")
	})
}

