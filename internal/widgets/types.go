package widgets

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-pagekit/internal/schema"
)

var (
	// ErrDefinitionNotFound reports that no tier knows the widget type.
	ErrDefinitionNotFound = errors.New("widgets: definition not found")
	// ErrDefinitionInvalid reports a definition whose template or manifest
	// could not be parsed.
	ErrDefinitionInvalid = errors.New("widgets: definition invalid")
)

// Tier identifies where a definition was found.
type Tier string

const (
	TierCore  Tier = "core"
	TierTheme Tier = "theme"
)

// Definition pairs a widget template with its schema manifest.
type Definition struct {
	Type     string
	Tier     Tier
	Template string
	Manifest *schema.Document
}

// Schema returns the widget's own setting schema.
func (d *Definition) Schema() schema.Schema {
	if d == nil || d.Manifest == nil {
		return nil
	}
	return d.Manifest.Settings
}

// Assets returns the assets the widget enqueues.
func (d *Definition) Assets() schema.Assets {
	if d == nil || d.Manifest == nil {
		return schema.Assets{}
	}
	return d.Manifest.Assets
}

// LookupResult is the outcome of a registry lookup. Found is false when
// neither tier knows the type; Definition is nil in that case.
type LookupResult struct {
	Found      bool
	Definition *Definition
}

// NotFound builds a miss result.
func NotFound() LookupResult { return LookupResult{} }

// Found builds a hit result.
func Found(def *Definition) LookupResult {
	return LookupResult{Found: def != nil, Definition: def}
}

// InvalidDefinitionError carries the widget type of a broken definition.
type InvalidDefinitionError struct {
	Type  string
	Cause error
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrDefinitionInvalid.Error(), e.Type, e.Cause)
}

func (e *InvalidDefinitionError) Unwrap() error {
	return ErrDefinitionInvalid
}
