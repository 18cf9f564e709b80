package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$150", 150},
		{"$1,299.99", 1299.99},
		{"€1.200", 1200},
		{"1.200,50 €", 1200.50},
		{"£89", 89},
		{"USD 75.5", 75.5},
		{"$100 - $150", 100},
		{"¥12,000", 12000},
		{"$1,234,567", 1234567},
		{"12,5 €", 12.5},
		{"€ 1.234.567,89", 1234567.89},
		{"99.", 99},
		{"Price unavailable", 0},
		{"", 0},
		{"Free", 0},
		{"1 200 €", 1200},
		{"1\u202f200 €", 1200},
		{"1\u00a0200,50 €", 1200.50},
		{"$ 1 500", 1500},
		{"12 345 678", 12345678},
		{"3 nights", 3},
		{"1 20 €", 1},
		{"1 2000 €", 1},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, ParsePrice(tc.in), 0.0001, tc.in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150", formatAmount(150))
	assert.Equal(t, "99.50", formatAmount(99.5))
}
