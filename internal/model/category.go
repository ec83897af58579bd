package model

// TransactionType indicates whether money came in or went out.
type TransactionType string

const (
	// TypeIncome represents money received.
	TypeIncome TransactionType = "income"
	// TypeExpense represents money spent.
	TypeExpense TransactionType = "expense"
)

// CategoryOther is the catch-all slug shared by both vocabularies.
const CategoryOther = "other"

// IncomeCategories is the closed vocabulary of income category slugs.
var IncomeCategories = []string{
	"from_home",
	"tuition",
	"freelance",
	"part_time_job",
	"investment",
	"gift",
	CategoryOther,
}

// ExpenseCategories is the closed vocabulary of expense category slugs.
var ExpenseCategories = []string{
	"food",
	"fast_food",
	"groceries",
	"dining_out",
	"coffee_snacks",
	"clothing",
	"education",
	"books_supplies",
	"tuition_fees",
	"transport",
	"fuel",
	"public_transit",
	"ride_sharing",
	"entertainment",
	"health",
	CategoryOther,
}

// CategoriesFor returns the vocabulary for a transaction type.
func CategoriesFor(t TransactionType) []string {
	if t == TypeIncome {
		return IncomeCategories
	}
	return ExpenseCategories
}

// IsValidCategory reports whether slug belongs to the vocabulary of t.
func IsValidCategory(t TransactionType, slug string) bool {
	for _, c := range CategoriesFor(t) {
		if c == slug {
			return true
		}
	}
	return false
}

// NormalizeCategory maps a slug onto the vocabulary of t, falling back to "other".
func NormalizeCategory(t TransactionType, slug string) string {
	if IsValidCategory(t, slug) {
		return slug
	}
	return CategoryOther
}

// IncomeKeywords mark a phrase as money received.
var IncomeKeywords = []string{"received", "earned", "got", "income", "salary", "tuition"}
