package gemini

import (
	"testing"

	"github.com/harunnryd/tabi/internal/model/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildRequest_SystemInstructionAndTools(t *testing.T) {
	contents, cfg := buildRequest(contract.CompletionRequest{
		Model:  "gemini-2.5-flash",
		System: "You are a travel assistant.",
		Messages: []contract.Message{
			{Role: "user", Content: "hotels in Paris"},
			{Role: "assistant", Content: "Sure"},
			{Role: "user", Content: "under $200"},
		},
		Tools: []contract.ToolDef{{
			Name:        "searchHotels",
			Description: "Search hotels",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"location": map[string]interface{}{"type": "string", "description": "City"},
					"maxPrice": map[string]interface{}{"type": "number", "minimum": 0},
				},
				"required": []string{"location"},
			},
		}},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)

	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	assert.Equal(t, "You are a travel assistant.", cfg.SystemInstruction.Parts[0].Text)

	require.Len(t, cfg.Tools, 1)
	decl := cfg.Tools[0].FunctionDeclarations[0]
	assert.Equal(t, "searchHotels", decl.Name)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"location"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeNumber, decl.Parameters.Properties["maxPrice"].Type)
	require.NotNil(t, decl.Parameters.Properties["maxPrice"].Minimum)
	assert.Equal(t, 0.0, *decl.Parameters.Properties["maxPrice"].Minimum)
}

func TestBuildRequest_NoSystemNoTools(t *testing.T) {
	_, cfg := buildRequest(contract.CompletionRequest{Messages: []contract.Message{{Role: "user", Content: "hi"}}})
	assert.Nil(t, cfg.SystemInstruction)
	assert.Empty(t, cfg.Tools)
}
