package tool

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateInput checks input against the tool's JSON Schema.
func ValidateInput(schema map[string]interface{}, input json.RawMessage) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewBytesLoader(input))
	if err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// CoerceArgs converts scalar strings to the number, integer or boolean
// type a top-level property declares ("150" becomes 150). Models often
// quote numbers; anything that does not convert cleanly is left for
// ValidateInput to reject.
func CoerceArgs(schema map[string]interface{}, args map[string]interface{}) map[string]interface{} {
	properties, _ := schema["properties"].(map[string]interface{})
	if len(properties) == 0 {
		return args
	}

	for key, value := range args {
		prop, ok := properties[key].(map[string]interface{})
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)

		switch prop["type"] {
		case "number":
			if v, err := strconv.ParseFloat(strings.TrimLeft(s, "$€£"), 64); err == nil {
				args[key] = v
			}
		case "integer":
			if v, err := strconv.Atoi(s); err == nil {
				args[key] = v
			}
		case "boolean":
			if v, err := strconv.ParseBool(s); err == nil {
				args[key] = v
			}
		}
	}
	return args
}
