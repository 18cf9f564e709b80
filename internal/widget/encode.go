package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// BlockSeparator sits between consecutive widget blocks.
const BlockSeparator = "\n\n"

// Encode serializes one widget block:
//
//	[KIND_WIDGET]
//	{ ...pretty JSON... }
//	[/KIND_WIDGET]
//
// data must satisfy the kind's schema.
func Encode(k Kind, data any) (string, error) {
	if err := Validate(k, data); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("encode %s widget: %w", k, err)
	}

	payload := escapeBrackets(bytes.TrimRight(buf.Bytes(), "\n"))
	return k.OpenMarker() + "\n" + payload + "\n" + k.CloseMarker(), nil
}

// Join concatenates encoded blocks with exactly one blank line between them.
func Join(blocks []string) string {
	return strings.Join(blocks, BlockSeparator)
}

// escapeBrackets rewrites '[' inside JSON strings as \u005b so that no
// string value can contain a widget marker. Structural brackets are kept.
func escapeBrackets(js []byte) string {
	var b strings.Builder
	b.Grow(len(js))
	inString, escaped := false, false
	for _, c := range js {
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c == '[':
			b.WriteString(`\u005b`)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
