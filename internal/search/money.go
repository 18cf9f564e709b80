package search

import (
	"strconv"
	"strings"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"KRW": "₩",
	"AUD": "A$",
	"CAD": "C$",
}

// FormatMoney renders an upstream amount for display: ("EUR", "123.4")
// becomes "€123.40", unknown currencies keep their code ("CHF 80.00").
// Unparseable amounts are returned as given.
func FormatMoney(currency string, amount string) string {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return ""
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return amount
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	digits := 2
	if currency == "JPY" || currency == "KRW" {
		digits = 0
	}
	num := groupThousands(strconv.FormatFloat(v, 'f', digits, 64))

	if sym, ok := currencySymbols[currency]; ok {
		return sym + num
	}
	if currency == "" {
		return num
	}
	return currency + " " + num
}

// CurrencyPrefix is what goes in front of a bare amount in user-facing text:
// the symbol when known ("$" for USD or an empty code), otherwise the code
// and a space.
func CurrencyPrefix(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if sym, ok := currencySymbols[currency]; ok {
		return sym
	}
	return currency + " "
}

func groupThousands(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "." + frac
	}
	return out
}
