package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aawaaz/incident-server/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const generatedPostSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title", "category", "location", "content"],
  "properties": {
    "title":    {"type": "string", "minLength": 1},
    "category": {"type": "string", "minLength": 1},
    "location": {"type": "string", "minLength": 1},
    "content":  {"type": "string", "minLength": 1}
  }
}`

var generatedPostSchema = mustCompileSchema("generated-post", generatedPostSchemaJSON)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://incident-server.local/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("load %s schema: %v", name, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}
	return compiled
}

// StripFences removes markdown code fences (```json and ```) and surrounding
// whitespace from a model response.
func StripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// ParseGeneratedPost decodes a model response into a GeneratedPost. The JSON
// must carry all four fields as non-empty strings; nothing is repaired.
func ParseGeneratedPost(raw string) (*models.GeneratedPost, error) {
	cleaned := StripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	if err := generatedPostSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("model output schema: %w", err)
	}

	var post models.GeneratedPost
	if err := json.Unmarshal([]byte(cleaned), &post); err != nil {
		return nil, fmt.Errorf("decode generated post: %w", err)
	}
	return &post, nil
}

// ParseRelevance decodes {"isRelevant": "yes"|"no"}. Any other value,
// including a JSON boolean, is an error.
func ParseRelevance(raw string) (*models.Relevance, error) {
	cleaned := StripFences(raw)

	var doc struct {
		IsRelevant json.RawMessage `json:"isRelevant"`
	}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	if len(doc.IsRelevant) == 0 {
		return nil, fmt.Errorf("model output missing isRelevant")
	}

	var answer string
	if err := json.Unmarshal(doc.IsRelevant, &answer); err != nil {
		return nil, fmt.Errorf("isRelevant has unexpected type: %s", doc.IsRelevant)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes":
		return &models.Relevance{IsRelevant: true}, nil
	case "no":
		return &models.Relevance{IsRelevant: false}, nil
	default:
		return nil, fmt.Errorf("isRelevant has unexpected value %q", answer)
	}
}
