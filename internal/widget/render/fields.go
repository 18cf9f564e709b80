package render

import (
	"fmt"
	"math"
	"strings"
)

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func num(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func integer(m map[string]any, key string) int {
	return int(math.Round(num(m, key)))
}

func flag(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func object(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	if o == nil {
		return map[string]any{}
	}
	return o
}

func objects(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if o, ok := item.(map[string]any); ok {
			out = append(out, o)
		}
	}
	return out
}

// link drops the "#" placeholder the formatter uses for missing links.
func link(m map[string]any, key string) string {
	v := str(m, key)
	if v == "#" {
		return ""
	}
	return v
}

func stops(n int) string {
	switch n {
	case 0:
		return "Nonstop"
	case 1:
		return "1 stop"
	default:
		return fmt.Sprintf("%d stops", n)
	}
}

func rating(m map[string]any) string {
	r := num(m, "rating")
	reviews := integer(m, "reviews")
	if reviews > 0 {
		return fmt.Sprintf("★%.1f (%s reviews)", r, groupThousands(reviews))
	}
	return fmt.Sprintf("★%.1f", r)
}

func groupThousands(n int) string {
	s := fmt.Sprint(n)
	if n < 1000 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func services(m map[string]any) string {
	var parts []string
	if flag(m, "dineIn") {
		parts = append(parts, "Dine-in")
	}
	if flag(m, "takeout") {
		parts = append(parts, "Takeout")
	}
	if flag(m, "delivery") {
		parts = append(parts, "Delivery")
	}
	return strings.Join(parts, ", ")
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
