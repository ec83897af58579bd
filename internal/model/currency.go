package model

import "strings"

// DefaultCurrency is used whenever no currency can be determined.
const DefaultCurrency = "BDT"

// SupportedCurrencies lists every ISO code a ParsedTransaction may carry.
var SupportedCurrencies = []string{"BDT", "USD", "EUR", "GBP", "INR"}

var currencyAliases = map[string]string{
	"$":       "USD",
	"usd":     "USD",
	"dollar":  "USD",
	"dollars": "USD",
	"৳":       "BDT",
	"bdt":     "BDT",
	"taka":    "BDT",
	"tk":      "BDT",
	"€":       "EUR",
	"eur":     "EUR",
	"£":       "GBP",
	"gbp":     "GBP",
	"₹":       "INR",
	"inr":     "INR",
}

// NormalizeCurrency maps codes, symbols and the dollar and taka names to a
// supported code.
// Anything unrecognised becomes DefaultCurrency.
func NormalizeCurrency(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return DefaultCurrency
	}
	if code, ok := currencyAliases[key]; ok {
		return code
	}
	return DefaultCurrency
}
