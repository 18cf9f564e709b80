package tool

import "strings"

// argumentAliases maps alternate argument names models tend to produce onto
// the canonical ones. A canonical key already present wins over its alias.
var argumentAliases = map[string]string{
	"city":           "location",
	"date":           "departureDate",
	"departure_date": "departureDate",
	"from":           "origin",
	"to":             "destination",
	"return_date":    "returnDate",
	"max_price":      "maxPrice",
	"price":          "maxPrice",
	"checkin":        "checkIn",
	"check_in":       "checkIn",
	"checkout":       "checkOut",
	"check_out":      "checkOut",
}

// NormalizeArgs returns a copy of args with aliases resolved. Only aliases
// whose canonical name is a declared property are rewritten, so a tool that
// genuinely takes "date" keeps it.
func NormalizeArgs(schema map[string]interface{}, args map[string]interface{}) map[string]interface{} {
	properties, _ := schema["properties"].(map[string]interface{})

	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		out[k] = v
	}

	for alias, canonical := range argumentAliases {
		v, ok := out[alias]
		if !ok {
			continue
		}
		if _, declared := properties[alias]; declared {
			continue
		}
		if _, declared := properties[canonical]; !declared {
			continue
		}
		delete(out, alias)
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}

	for k, v := range out {
		if s, ok := v.(string); ok {
			out[k] = strings.TrimSpace(s)
		}
	}
	return out
}
