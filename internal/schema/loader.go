package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrSchemaInvalid reports a schema document that does not match the
	// widget manifest format.
	ErrSchemaInvalid = errors.New("schema: document invalid")
)

const manifestSchemaURL = "pagekit://schema/widget-manifest.json"

const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "settings": {"$ref": "#/$defs/settings"},
    "blocks": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {"settings": {"$ref": "#/$defs/settings"}}
      }
    },
    "assets": {
      "type": "object",
      "properties": {
        "styles": {"type": "array", "items": {"type": "string"}},
        "scripts": {"type": "array", "items": {"type": "string"}}
      }
    }
  },
  "$defs": {
    "settings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "label": {"type": "string"}
        },
        "if": {"properties": {"type": {"pattern": "^\\s*[Hh][Ee][Aa][Dd][Ee][Rr]\\s*$"}}},
        "else": {"required": ["id"]}
      }
    }
  }
}`

var (
	compiledOnce     sync.Once
	compiledManifest *jsonschema.Schema
	compileErr       error
)

func manifestValidator() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(manifestSchemaURL, strings.NewReader(manifestSchema)); err != nil {
			compileErr = err
			return
		}
		compiledManifest, compileErr = compiler.Compile(manifestSchemaURL)
	})
	return compiledManifest, compileErr
}

type rawDocument struct {
	Name     string `json:"name"`
	Settings Schema `json:"settings"`
	Blocks   map[string]struct {
		Settings Schema `json:"settings"`
	} `json:"blocks"`
	Assets Assets `json:"assets"`
}

// ParseDocument decodes and validates a JSON widget manifest.
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Document{}, nil
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	validator, err := manifestValidator()
	if err != nil {
		return nil, fmt.Errorf("schema: compile manifest schema: %w", err)
	}
	if err := validator.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}

	var raw rawDocument
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}

	doc := &Document{
		Name:     raw.Name,
		Settings: raw.Settings.normalized(),
		Assets:   raw.Assets,
	}
	if len(raw.Blocks) > 0 {
		doc.Blocks = make(map[string]Schema, len(raw.Blocks))
		for blockType, block := range raw.Blocks {
			doc.Blocks[blockType] = block.Settings.normalized()
		}
	}
	return doc, nil
}

// DocumentFromMap validates a manifest decoded from another format, such as
// YAML front matter.
func DocumentFromMap(meta map[string]any) (*Document, error) {
	if len(meta) == 0 {
		return &Document{}, nil
	}
	data, err := json.Marshal(NormalizeMap(meta))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return ParseDocument(data)
}

// NormalizeMap converts YAML style map[any]any nodes into map[string]any so
// the tree can be encoded as JSON.
func NormalizeMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return NormalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
