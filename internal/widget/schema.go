package widget

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Kind]*gojsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = make(map[Kind]*gojsonschema.Schema, len(Kinds))
	for _, k := range Kinds {
		raw, err := schemaFS.ReadFile("schemas/" + strings.ToLower(string(k)) + ".json")
		if err != nil {
			schemasErr = fmt.Errorf("read %s schema: %w", k, err)
			return
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			schemasErr = fmt.Errorf("compile %s schema: %w", k, err)
			return
		}
		schemas[k] = s
	}
}

// SchemaJSON returns the raw JSON schema of a widget kind.
func SchemaJSON(k Kind) ([]byte, error) {
	return schemaFS.ReadFile("schemas/" + strings.ToLower(string(k)) + ".json")
}

// Validate checks data (a payload struct or a decoded map) against the
// mandatory-field schema of kind k.
func Validate(k Kind, data any) error {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[k]
	if !ok {
		return fmt.Errorf("unknown widget kind %q", k)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%s widget failed validation: %s", k, strings.Join(errs, "; "))
	}
	return nil
}
