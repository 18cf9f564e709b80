package widget

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParsePrice extracts a numeric amount from a display price such as
// "$1,299.99", "€1.200", "1.200,50 EUR" or "$100 - $150".
//
// Policy:
//   - currency symbols and codes are ignored; the first number wins
//   - a space (also U+00A0, U+202F) followed by exactly three digits groups
//     thousands, any other whitespace ends the number
//   - with both '.' and ',' present, the right-most one is the decimal mark
//   - a lone separator kind whose every occurrence is followed by exactly
//     three digits groups thousands; otherwise its last occurrence is the
//     decimal mark
//   - anything unparseable is 0
func ParsePrice(s string) float64 {
	raw := firstNumber(s)
	if raw == "" {
		return 0
	}

	lastDot := strings.LastIndexByte(raw, '.')
	lastComma := strings.LastIndexByte(raw, ',')

	var normalized string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimal := byte('.')
		if lastComma > lastDot {
			decimal = ','
		}
		normalized = withDecimal(raw, decimal)
	case lastDot >= 0:
		normalized = singleSeparator(raw, '.')
	case lastComma >= 0:
		normalized = singleSeparator(raw, ',')
	default:
		normalized = raw
	}

	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// firstNumber returns the first run of digits and separators that starts
// with a digit, with trailing separators removed. A space, no-break space or
// narrow no-break space inside the run groups thousands ("1 200 €") when
// exactly three digits follow it; it is dropped from the result.
func firstNumber(s string) string {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return ""
	}

	var b strings.Builder
	rest := s[start:]
	for len(rest) > 0 {
		r, size := utf8.DecodeRuneInString(rest)
		switch {
		case isASCIIDigit(r) || r == '.' || r == ',':
			b.WriteRune(r)
		case isGroupSpace(r) && threeDigitGroup(rest[size:]):
			// thousands grouping, dropped
		default:
			return strings.TrimRight(b.String(), ".,")
		}
		rest = rest[size:]
	}
	return strings.TrimRight(b.String(), ".,")
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func isGroupSpace(r rune) bool {
	return r == ' ' || r == '\u00a0' || r == '\u202f'
}

// threeDigitGroup reports whether s starts with exactly three digits.
func threeDigitGroup(s string) bool {
	if len(s) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if !isASCIIDigit(rune(s[i])) {
			return false
		}
	}
	return len(s) == 3 || !isASCIIDigit(rune(s[3]))
}

func singleSeparator(raw string, sep byte) string {
	groups := strings.Split(raw, string(sep))
	thousands := true
	for _, g := range groups[1:] {
		if len(g) != 3 {
			thousands = false
			break
		}
	}
	if thousands {
		return strings.Join(groups, "")
	}
	return withDecimal(raw, sep)
}

// withDecimal keeps the last occurrence of decimal as the decimal point and
// drops every other separator.
func withDecimal(raw string, decimal byte) string {
	idx := strings.LastIndexByte(raw, decimal)
	intPart := stripSeparators(raw[:idx])
	frac := stripSeparators(raw[idx+1:])
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ',' {
			return -1
		}
		return r
	}, s)
}

// formatAmount renders a price limit for user-facing text: 150 -> "150",
// 99.5 -> "99.50".
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
