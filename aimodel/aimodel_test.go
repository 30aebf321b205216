package aimodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chefmayhem/carbonai-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func TestParseRangeValue(t *testing.T) {
	tests := []struct {
		name        string
		jsonInput   string
		expected    common.RangeValue
		expectError bool
	}{
		{
			name:      "Valid range object",
			jsonInput: `{"min": 10.5, "max": 20.5}`,
			expected:  common.RangeValue{Min: 10.5, Max: 20.5},
		},
		{
			name:      "Valid single float value",
			jsonInput: `15.0`,
			expected:  common.RangeValue{Min: 15.0, Max: 15.0},
		},
		{
			name:        "Invalid type (string)",
			jsonInput:   `"invalid"`,
			expectError: true,
		},
		{
			name:      "Range object missing min",
			jsonInput: `{"max": 20.5}`,
			expected:  common.RangeValue{Min: 20.5, Max: 20.5},
		},
		{
			name:      "Range object missing max",
			jsonInput: `{"min": 10.5}`,
			expected:  common.RangeValue{Min: 10.5, Max: 10.5},
		},
		{
			name:        "Empty range object",
			jsonInput:   `{}`,
			expectError: true,
		},
		{
			name:        "Range bound is not a number",
			jsonInput:   `{"min": "low", "max": 2}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p fastjson.Parser
			v, err := p.Parse(tt.jsonInput)
			assert.NoError(t, err)

			result, err := parseRangeValue(v)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseWarnings(t *testing.T) {
	tests := []struct {
		name      string
		jsonInput string
		expected  []Warning
	}{
		{
			name: "Valid warnings array",
			jsonInput: `[
				{"code": "warning-1", "message": "This is a warning"},
				{"code": "warning-2", "message": "Another warning"}
			]`,
			expected: []Warning{
				{Code: "warning-1", Message: "This is a warning"},
				{Code: "warning-2", Message: "Another warning"},
			},
		},
		{
			name:      "Empty warnings array",
			jsonInput: `[]`,
			expected:  []Warning{},
		},
		{
			name:      "Null warnings array",
			jsonInput: `null`,
			expected:  []Warning{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p fastjson.Parser
			v, err := p.Parse(tt.jsonInput)
			assert.NoError(t, err)

			assert.Equal(t, tt.expected, parseWarnings(v.GetArray()))
		})
	}
}

func TestParseStringArray(t *testing.T) {
	var p fastjson.Parser
	v, err := p.Parse(`["string1", "string2"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"string1", "string2"}, parseStringArray(v.GetArray()))

	v, err = p.Parse(`null`)
	require.NoError(t, err)
	assert.Equal(t, []string{}, parseStringArray(v.GetArray()))
}

func TestParseRegistry(t *testing.T) {
	tests := []struct {
		name          string
		jsonContent   string
		expectError   bool
		expectedCount int
		lookup        string
		expectedModel *AIModel
	}{
		{
			name: "returns parsed moe model reachable through its alias",
			jsonContent: `{
				"aliases": [{"provider": "openai", "name": "gpt-4", "alias": "gpt-4-0613"}],
				"models": [
					{
						"type": "model",
						"provider": "openai",
						"name": "gpt-4",
						"architecture": {
							"type": "moe",
							"parameters": {
								"total": 1760.8,
								"active": {"min": 220.000007, "max": 880.534}
							}
						},
						"warnings": null,
						"sources": ["https://example.com"]
					}
				]
			}`,
			expectedCount: 1,
			lookup:        "gpt-4-0613",
			expectedModel: &AIModel{
				name:     "gpt-4",
				provider: OpenAI,
				architecture: Architecture{
					Type: MOE,
					Parameters: Parameters{
						Total:  common.RangeValue{Min: 1760.8, Max: 1760.8},
						Active: common.RangeValue{Min: 220.000007, Max: 880.534},
					},
				},
			},
		},
		{
			name: "returns dense model with active equal to total",
			jsonContent: `{
				"models": [
					{
						"provider": "mistralai",
						"name": "open-mistral-7b",
						"architecture": {"type": "dense", "parameters": 7.3}
					}
				]
			}`,
			expectedCount: 1,
			lookup:        "open-mistral-7b",
			expectedModel: &AIModel{
				name:     "open-mistral-7b",
				provider: Mistralai,
				architecture: Architecture{
					Type: DENSE,
					Parameters: Parameters{
						Total:  common.RangeValue{Min: 7.3, Max: 7.3},
						Active: common.RangeValue{Min: 7.3, Max: 7.3},
					},
				},
			},
		},
		{
			name:          "returns empty registry for empty input",
			jsonContent:   `{}`,
			expectedCount: 0,
		},
		{
			name: "returns error for malformed JSON",
			jsonContent: `{
				"models": [
					{"name": "gpt-4", "provider": "openai"
				`,
			expectError: true,
		},
		{
			name:        "returns error for empty content",
			jsonContent: "",
			expectError: true,
		},
		{
			name: "returns unexpected type error when parameter.total value is unsupported",
			jsonContent: `{
				"models": [
					{
						"provider": "openai",
						"name": "gpt-4",
						"architecture": {
							"type": "moe",
							"parameters": {
								"total": "not-a-number-or-a-range",
								"active": {"min": 220.000007, "max": 880.534}
							}
						}
					}
				]
			}`,
			expectError: true,
		},
		{
			name: "returns error when alias has no target",
			jsonContent: `{
				"aliases": [{"provider": "openai", "alias": "gpt-4-0613"}]
			}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "models.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.jsonContent), 0o600))

			registry, err := ReadRegistry(path)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCount, registry.Len())

			if tt.expectedModel != nil {
				model, err := registry.Lookup(tt.lookup)
				require.NoError(t, err)
				assert.Equal(t, tt.expectedModel.Name(), model.Name())
				assert.Equal(t, tt.expectedModel.Provider(), model.Provider())
				assert.Equal(t, tt.expectedModel.Architecture(), model.Architecture())
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	registry, err := DefaultRegistry()
	require.NoError(t, err)

	for _, name := range []string{"gpt-4o-mini", "gpt-4o-mini-2024-07-18", "gpt-4o", "gpt-3.5-turbo"} {
		model, err := registry.Lookup(name)
		if assert.NoError(t, err, name) {
			assert.Equal(t, OpenAI, model.Provider())
			assert.NotEmpty(t, model.Warnings())
			assert.NotEmpty(t, model.Sources())
		}
	}

	_, err = registry.Lookup("not-a-model")
	assert.Error(t, err)
	_, err = registry.Lookup("")
	assert.EqualError(t, err, "name cannot be empty")
}

func TestAIModel_RequiredMemoryGB(t *testing.T) {
	model := &AIModel{
		architecture: Architecture{
			Parameters: Parameters{Total: common.RangeValue{Min: 40, Max: 80}},
		},
	}
	// 1.2 * 80 * 16 / 8
	assert.InDelta(t, 192.0, model.RequiredMemoryGB(DefaultQuantizationBits), 1e-9)
}
