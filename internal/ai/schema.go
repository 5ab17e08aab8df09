package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// classificationSchema is the JSON schema providers must answer with. It is
// sent to OpenAI as the structured output format and checked locally for
// every provider.
var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"documents": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page_numbers": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    map[string]any{"type": "integer", "minimum": 1},
					},
					"suggested_filename": map[string]any{"type": "string"},
					"document_type":      map[string]any{"type": "string"},
					"confidence":         map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
				"required":             []string{"page_numbers", "suggested_filename", "document_type", "confidence"},
				"additionalProperties": false,
			},
		},
		"analysis_confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	},
	"required":             []string{"documents", "analysis_confidence"},
	"additionalProperties": false,
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(classificationSchema)
		if err != nil {
			compileErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("classification.json", bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("failed to load classification schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("classification.json")
	})
	return compiledSchema, compileErr
}

// ParseClassification extracts the JSON object from a provider answer,
// validates it against the classification schema and decodes it.
func ParseClassification(text string) (Classification, error) {
	candidate := extractJSONObject(text)
	if candidate == "" {
		return Classification{}, &ValidationError{Message: "no JSON object in response"}
	}
	s, err := schema()
	if err != nil {
		return Classification{}, err
	}
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return Classification{}, &ValidationError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	if err := s.Validate(doc); err != nil {
		return Classification{}, &ValidationError{Message: fmt.Sprintf("response does not match schema: %v", err)}
	}
	var out Classification
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return Classification{}, &ValidationError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	return out, nil
}

// extractJSONObject strips code fences and prose around the first JSON object.
func extractJSONObject(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return ""
	}
	return trimmed[start : end+1]
}
