package fallback

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) // a Friday

func TestFinance_MultiClause(t *testing.T) {
	result := Finance("brought dress 300 taka. drank tea 30 taka", today)

	require.Len(t, result.Transactions, 2)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, model.SourceFallback, result.Source)

	first := result.Transactions[0]
	assert.Equal(t, model.TypeExpense, first.Type)
	assert.True(t, decimal.NewFromInt(300).Equal(first.Amount))
	assert.Equal(t, "BDT", first.Currency)
	assert.Equal(t, "clothing", first.Category)
	assert.Equal(t, "dress", first.Description)
	assert.Equal(t, "2024-03-15", first.Date)

	second := result.Transactions[1]
	assert.Equal(t, model.TypeExpense, second.Type)
	assert.True(t, decimal.NewFromInt(30).Equal(second.Amount))
	assert.Equal(t, "BDT", second.Currency)
	assert.Equal(t, "coffee_snacks", second.Category)
	assert.Equal(t, "tea", second.Description)
}

func TestFinance_CurrencyNormalization(t *testing.T) {
	for _, input := range []string{"$25 for lunch", "25 dollars for lunch", "USD 25 for lunch"} {
		t.Run(input, func(t *testing.T) {
			result := Finance(input, today)
			require.Len(t, result.Transactions, 1)
			txn := result.Transactions[0]
			assert.Equal(t, "USD", txn.Currency)
			assert.True(t, decimal.NewFromInt(25).Equal(txn.Amount), "amount %s", txn.Amount)
			assert.Equal(t, "lunch", txn.Description)
			assert.Equal(t, "food", txn.Category)
		})
	}
}

func TestFinance_AmountDetection(t *testing.T) {
	tests := []struct {
		input    string
		amount   string
		currency string
	}{
		{input: "৳500 groceries", amount: "500", currency: "BDT"},
		{input: "paid 1,250.50 tk for medicine", amount: "1250.5", currency: "BDT"},
		{input: "tk 80 rickshaw", amount: "80", currency: "BDT"},
		{input: "uber 12.75 usd", amount: "12.75", currency: "USD"},
		{input: "book for €15", amount: "0", currency: "BDT"},
		{input: "bought 2 pounds of meat 300 taka", amount: "300", currency: "BDT"},
		{input: "2 kg rice 120 tk", amount: "120", currency: "BDT"},
		{input: "spent 40 on pizza", amount: "0", currency: "BDT"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Finance(tt.input, today)
			require.Len(t, result.Transactions, 1)
			txn := result.Transactions[0]
			assert.Equal(t, tt.amount, txn.Amount.String())
			assert.Equal(t, tt.currency, txn.Currency)
		})
	}
}

func TestFinance_AmountBound(t *testing.T) {
	inputs := []string{
		"bought something",
		"spent -50 taka on snacks",
		"went to the movies and had coffee",
		"received my salary",
	}
	for _, input := range inputs {
		result := Finance(input, today)
		require.NotEmpty(t, result.Transactions, input)
		for _, txn := range result.Transactions {
			assert.False(t, txn.Amount.IsNegative(), "%q gave a negative amount", input)
			if txn.Amount.IsZero() {
				assert.LessOrEqual(t, txn.Confidence, 0.3, input)
			}
		}
	}

	result := Finance("went to the movies and had coffee", today)
	require.Len(t, result.Transactions, 2, "zero amount clauses are kept")
	assert.True(t, result.RequiresConfirmation)
}

func TestFinance_Type(t *testing.T) {
	result := Finance("received 5000 taka salary and got 2000 tk tuition from student", today)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, model.TypeIncome, result.Transactions[0].Type)
	assert.Equal(t, "part_time_job", result.Transactions[0].Category)
	assert.Equal(t, model.TypeIncome, result.Transactions[1].Type)
	assert.Equal(t, "tuition", result.Transactions[1].Category)
	for _, txn := range result.Transactions {
		assert.True(t, model.IsValidCategory(txn.Type, txn.Category))
	}
}

func TestFinance_CategoryOrder(t *testing.T) {
	// burger (fast_food) is declared before coffee (coffee_snacks)
	result := Finance("coffee and burger combo 200 tk", today)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "coffee_snacks", result.Transactions[0].Category)
	assert.Equal(t, "fast_food", result.Transactions[1].Category)

	result = Finance("burger with coffee 200 tk", today)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "fast_food", result.Transactions[0].Category)

	result = Finance("teams meeting 50 tk", today)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, model.CategoryOther, result.Transactions[0].Category, "tea must not match inside teams")
}

func TestFinance_Confidence(t *testing.T) {
	result := Finance("spent 30 taka on burger", today)
	require.Len(t, result.Transactions, 1)
	assert.InDelta(t, ConfidenceWithAmount, result.Transactions[0].Confidence, 1e-9)
	assert.Equal(t, "burger", result.Transactions[0].Description)
	assert.False(t, result.RequiresConfirmation)

	empty := Finance("   ", today)
	assert.Empty(t, empty.Transactions)
	assert.True(t, empty.RequiresConfirmation)
}

func TestFinance_Description(t *testing.T) {
	tests := []struct {
		input       string
		description string
	}{
		{input: "spent 30 taka on burger", description: "burger"},
		{input: "bought 2 pounds of meat 300 taka", description: "meat"},
		{input: "500 taka", description: "500 taka"},
		{input: "paid 40 tk", description: "paid 40 tk"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Finance(tt.input, today)
			require.Len(t, result.Transactions, 1)
			assert.Equal(t, tt.description, result.Transactions[0].Description)
		})
	}
}

func TestSplitClauses(t *testing.T) {
	assert.Equal(t,
		[]string{"a 1 tk", "b 2 tk", "c", "d", "e"},
		SplitClauses("a 1 tk. b 2 tk! c\nd AND e"))
	assert.Equal(t, []string{"coffee 12.50 usd"}, SplitClauses("coffee 12.50 usd."))
	assert.Empty(t, SplitClauses(" . \n "))
}

func TestTask(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		title      string
		due        string
		priority   model.TaskPriority
		recurrence model.TaskRecurrence
	}{
		{
			name:       "plain",
			input:      "buy groceries",
			title:      "Buy groceries",
			priority:   model.PriorityMedium,
			recurrence: model.RecurrenceNone,
		},
		{
			name:       "prefix and tomorrow",
			input:      "remind me to call the dentist tomorrow, it's urgent",
			title:      "Call the dentist tomorrow, it's urgent",
			due:        "2024-03-16",
			priority:   model.PriorityUrgent,
			recurrence: model.RecurrenceNone,
		},
		{
			name:       "weekday",
			input:      "submit report by monday",
			title:      "Submit report by monday",
			due:        "2024-03-18",
			priority:   model.PriorityMedium,
			recurrence: model.RecurrenceNone,
		},
		{
			name:       "recurring",
			input:      "pay rent every month",
			title:      "Pay rent every month",
			priority:   model.PriorityMedium,
			recurrence: model.RecurrenceMonthly,
		},
		{
			name:       "explicit date",
			input:      "important: renew passport on 2024-05-01",
			title:      "Important: renew passport on 2024-05-01",
			due:        "2024-05-01",
			priority:   model.PriorityHigh,
			recurrence: model.RecurrenceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task(tt.input, today)
			assert.Equal(t, tt.title, task.Title)
			assert.Equal(t, tt.due, task.DueDate)
			assert.Equal(t, tt.priority, task.Priority)
			assert.Equal(t, tt.recurrence, task.Recurrence)
			assert.True(t, task.FallbackUsed)
			assert.Equal(t, model.SourceFallback, task.Source)
			assert.True(t, task.RequiresConfirmation)
		})
	}
}

func TestNextWeekday(t *testing.T) {
	assert.Equal(t, "2024-03-22", nextWeekday(today, "friday").Format(model.DateLayout))
	assert.Equal(t, "2024-03-16", nextWeekday(today, "Saturday").Format(model.DateLayout))
}

func TestReceipt(t *testing.T) {
	receipt := Receipt(today, "circuit_open")
	assert.True(t, receipt.Total.IsZero())
	assert.Equal(t, "2024-03-15", receipt.Date)
	assert.Equal(t, model.DefaultCurrency, receipt.Currency)
	assert.Equal(t, "circuit_open", receipt.ErrorNote)
	assert.True(t, receipt.FallbackUsed)
	assert.True(t, receipt.RequiresConfirmation)
	assert.NotNil(t, receipt.Items)
}
