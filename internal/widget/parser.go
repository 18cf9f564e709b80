package widget

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/harunnryd/tabi/internal/metrics"
)

// ParseResult is the parser output: the prose left after extraction and
// the widgets in textual order.
type ParseResult struct {
	RemainingText string  `json:"remainingText"`
	Widgets       []Block `json:"widgets"`
}

var blockPatterns = func() map[Kind]*regexp.Regexp {
	m := make(map[Kind]*regexp.Regexp, len(Kinds))
	for _, k := range Kinds {
		m[k] = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(k.OpenMarker()) + `(.*?)` + regexp.QuoteMeta(k.CloseMarker()))
	}
	return m
}()

type region struct {
	kind         Kind
	start, end   int
	payloadStart int
	payloadEnd   int
}

func (r region) overlaps(o region) bool {
	return r.start < o.end && o.start < r.end
}

// Parse extracts every well-formed widget block from text.
//
// A block whose payload is not a JSON object is skipped and its raw text
// is left in place. A block that overlaps a block of another kind is also
// left in place, which keeps Parse(Parse(t).RemainingText) widget-free.
func Parse(text string) ParseResult {
	var regions []region
	for _, k := range Kinds {
		for _, m := range blockPatterns[k].FindAllStringSubmatchIndex(text, -1) {
			regions = append(regions, region{kind: k, start: m[0], end: m[1], payloadStart: m[2], payloadEnd: m[3]})
		}
	}
	if len(regions) == 0 {
		return ParseResult{RemainingText: strings.TrimSpace(text), Widgets: []Block{}}
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })

	widgets := make([]Block, 0, len(regions))
	var cuts []region
	for i, r := range regions {
		if overlapsAny(regions, i) {
			slog.Warn("Leaving overlapping widget block in place", "kind", r.kind, "offset", r.start)
			continue
		}

		var data map[string]any
		payload := strings.TrimSpace(text[r.payloadStart:r.payloadEnd])
		if err := json.Unmarshal([]byte(payload), &data); err != nil || data == nil {
			slog.Warn("Skipping malformed widget block", "kind", r.kind, "offset", r.start, "error", err)
			metrics.WidgetParseFailures.WithLabelValues(string(r.kind)).Inc()
			continue
		}

		widgets = append(widgets, Block{Kind: r.kind, Data: data})
		metrics.WidgetsParsed.WithLabelValues(string(r.kind)).Inc()
		cuts = append(cuts, r)
	}

	return ParseResult{RemainingText: removeRegions(text, cuts), Widgets: widgets}
}

func overlapsAny(regions []region, i int) bool {
	for j := range regions {
		if j != i && regions[i].overlaps(regions[j]) {
			return true
		}
	}
	return false
}

// removeRegions cuts the given sorted, disjoint regions out of text
// together with the whitespace around them, and joins what is left with a
// single blank line.
func removeRegions(text string, cuts []region) string {
	if len(cuts) == 0 {
		return strings.TrimSpace(text)
	}

	var parts []string
	pos := 0
	for _, c := range cuts {
		start, end := c.start, c.end
		for start > pos && isSpace(text[start-1]) {
			start--
		}
		for end < len(text) && isSpace(text[end]) {
			end++
		}
		if start > pos {
			parts = append(parts, text[pos:start])
		}
		pos = max(pos, end)
	}
	if pos < len(text) {
		parts = append(parts, text[pos:])
	}

	return strings.TrimSpace(strings.Join(parts, BlockSeparator))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Text returns s with all widget blocks removed. Handy for logs and
// clients that cannot render widgets.
func Text(s string) string {
	return Parse(s).RemainingText
}

// Count returns the number of well-formed widget blocks of kind k in s.
func Count(s string, k Kind) int {
	n := 0
	for _, w := range Parse(s).Widgets {
		if w.Kind == k {
			n++
		}
	}
	return n
}
