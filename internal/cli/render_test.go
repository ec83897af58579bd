package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/spice-gateway/internal/gateway"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/Veraticus/spice-gateway/internal/resilience"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderParseResult(t *testing.T) {
	result := model.ParseResult{
		Transactions: []model.ParsedTransaction{
			{Type: model.TypeExpense, Amount: decimal.NewFromInt(30), Currency: "BDT", Category: "fast_food", Description: "burger", Date: "2024-03-15", Confidence: 0.9},
			{Type: model.TypeIncome, Amount: decimal.RequireFromString("12.5"), Currency: "USD", Category: "gift", Description: "birthday", Date: "2024-03-15", Confidence: 0.4},
		},
		Source:               model.SourceAI,
		Model:                "gemini-1.5-flash",
		RequiresConfirmation: true,
	}

	out := RenderParseResult(result)
	assert.Contains(t, out, "2 transaction(s)")
	assert.Contains(t, out, SpiceIcon)
	assert.Contains(t, out, "fast_food")
	assert.Contains(t, out, "30.00 BDT")
	assert.Contains(t, out, "12.50 USD")
	assert.Contains(t, out, "AI (gemini-1.5-flash)")
	assert.Contains(t, out, "please confirm before saving")
}

func TestRenderParseResult_Fallback(t *testing.T) {
	out := RenderParseResult(model.ParseResult{
		Transactions: []model.ParsedTransaction{},
		Source:       model.SourceFallback,
		ErrorNote:    "AI extraction unavailable (circuit_open); parsed with fallback rules",
		FallbackUsed: true,
	})
	assert.Contains(t, out, "fallback rules")
	assert.Contains(t, out, "circuit_open")
}

func TestRenderTaskAndReceipt(t *testing.T) {
	task := RenderTask(model.ParsedTask{
		Title:      "Submit assignment",
		Priority:   model.PriorityHigh,
		Recurrence: model.RecurrenceNone,
		DueDate:    "2024-03-16",
		Source:     model.SourceAI,
		Confidence: 0.9,
	})
	assert.Contains(t, task, "Submit assignment")
	assert.Contains(t, task, "2024-03-16")
	assert.Contains(t, task, "high")

	tax := decimal.NewFromInt(5)
	receipt := RenderReceipt(model.ReceiptData{
		Vendor:   "Star Kabab",
		Total:    decimal.NewFromInt(850),
		Currency: "BDT",
		Tax:      &tax,
		Items:    []model.ReceiptItem{{Name: "kacchi", Amount: decimal.NewFromInt(845)}},
		Source:   model.SourceFallback,
	})
	assert.Contains(t, receipt, "Star Kabab")
	assert.Contains(t, receipt, "850.00 BDT")
	assert.Contains(t, receipt, "Tax: 5.00")
	assert.Contains(t, receipt, "kacchi")
}

func TestRenderStats(t *testing.T) {
	stats := gateway.UsageStats{
		Provider:           "gemini",
		Model:              "gemini-1.5-flash",
		RequestsThisMinute: 7,
		RequestsToday:      42,
		RateLimit:          50,
		CircuitBreaker:     resilience.BreakerState{Status: resilience.BreakerClosed, Threshold: 5},
		RetryConfig:        resilience.DefaultRetryPolicy(),
	}

	out := RenderStats(stats, true)
	assert.Contains(t, out, "7 / 50")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "0/5 failures")

	assert.Contains(t, RenderStats(stats, false), "unavailable")
}

func TestRenderBreaker(t *testing.T) {
	last := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	out := RenderBreaker(resilience.BreakerState{Status: resilience.BreakerOpen, FailureCount: 5, Threshold: 5, LastFailureAt: &last})
	assert.Contains(t, out, "open")
	assert.Contains(t, out, "5/5 failures")
	assert.Contains(t, out, "last failure")
}

func TestRenderAudit(t *testing.T) {
	assert.Contains(t, RenderAudit(nil), "No audit records yet.")

	out := RenderAudit([]model.AuditRecord{{
		CreatedAt:     time.Now(),
		Module:        model.ModuleFinance,
		Status:        model.AuditFallback,
		FailureReason: "circuit_open",
		RawText:       "spent 30 taka on a very long description that keeps going and going",
		DurationMS:    12,
	}})
	assert.Contains(t, out, "Audit log")
	assert.Contains(t, out, "finance")
	assert.Contains(t, out, "circuit_open")
	assert.Contains(t, out, "12ms")
	assert.Contains(t, out, "…")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a \n b", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestNewBatchProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBatchProgress(&buf, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, bar.Add(1))
	}
	assert.True(t, bar.IsFinished())
}
