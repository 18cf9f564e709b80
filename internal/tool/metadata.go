package tool

import (
	"sort"
	"strings"

	"github.com/harunnryd/tabi/internal/model/contract"
)

type ToolMetadata struct {
	Source       string   `json:"source"`
	Domain       string   `json:"domain,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	// WidgetKind is the widget block type the tool emits.
	WidgetKind string `json:"widget_kind,omitempty"`
}

type MetadataProvider interface {
	ToolMetadata() ToolMetadata
}

type ToolDescriptor struct {
	Definition contract.ToolDef `json:"definition"`
	Metadata   ToolMetadata     `json:"metadata"`
}

func normalizeToolMetadata(meta ToolMetadata) ToolMetadata {
	source := strings.TrimSpace(strings.ToLower(meta.Source))
	if source == "" {
		source = "runtime"
	}

	seen := make(map[string]struct{}, len(meta.Capabilities))
	capabilities := make([]string, 0, len(meta.Capabilities))
	for _, capability := range meta.Capabilities {
		normalized := normalizeCapability(capability)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		capabilities = append(capabilities, normalized)
	}
	sort.Strings(capabilities)

	return ToolMetadata{
		Source:       source,
		Domain:       strings.TrimSpace(meta.Domain),
		Capabilities: capabilities,
		WidgetKind:   strings.TrimSpace(meta.WidgetKind),
	}
}

func normalizeCapability(in string) string {
	return strings.TrimSpace(strings.ToLower(in))
}
