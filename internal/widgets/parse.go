package widgets

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-pagekit/internal/schema"
)

// ParseDefinition builds a definition from a template file and an optional
// schema.json sidecar. The template may carry its manifest as YAML front
// matter; a sidecar manifest takes precedence when both are present.
func ParseDefinition(widgetType string, template []byte, sidecar []byte) (*Definition, error) {
	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(template), &meta)
	if err != nil {
		return nil, &InvalidDefinitionError{Type: widgetType, Cause: err}
	}

	var manifest *schema.Document
	switch {
	case len(bytes.TrimSpace(sidecar)) > 0:
		manifest, err = schema.ParseDocument(sidecar)
	default:
		manifest, err = schema.DocumentFromMap(meta)
	}
	if err != nil {
		return nil, &InvalidDefinitionError{Type: widgetType, Cause: err}
	}

	return &Definition{
		Type:     canonicalKey(widgetType),
		Template: strings.TrimSpace(string(body)),
		Manifest: manifest,
	}, nil
}
