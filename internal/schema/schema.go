package schema

import "strings"

// SettingType classifies a setting definition.
type SettingType string

const (
	TypeText     SettingType = "text"
	TypeTextarea SettingType = "textarea"
	TypeRichText SettingType = "richtext"
	TypeMarkdown SettingType = "markdown"
	TypeNumber   SettingType = "number"
	TypeRange    SettingType = "range"
	TypeColor    SettingType = "color"
	TypeCheckbox SettingType = "checkbox"
	TypeSelect   SettingType = "select"
	TypeRadio    SettingType = "radio"
	TypeLink     SettingType = "link"
	TypeMenu     SettingType = "menu"
	TypeImage    SettingType = "image"
	TypeVideo    SettingType = "video"
	TypeAudio    SettingType = "audio"
	TypeHeader   SettingType = "header"
)

// Normalize returns the canonical lower-case form of t.
func (t SettingType) Normalize() SettingType {
	return SettingType(strings.ToLower(strings.TrimSpace(string(t))))
}

// IsStructural reports whether the type is a non-data divider.
func (t SettingType) IsStructural() bool {
	return t.Normalize() == TypeHeader
}

// IsMedia reports whether the type references an uploaded media file.
func (t SettingType) IsMedia() bool {
	switch t.Normalize() {
	case TypeImage, TypeVideo, TypeAudio:
		return true
	}
	return false
}

// SettingDefinition declares a single setting of a widget or block type.
type SettingDefinition struct {
	ID      string      `json:"id"`
	Type    SettingType `json:"type"`
	Label   string      `json:"label,omitempty"`
	Default any         `json:"default,omitempty"`
}

// Schema is the ordered list of setting definitions of a type.
type Schema []SettingDefinition

// Lookup returns the definition registered for id.
func (s Schema) Lookup(id string) (SettingDefinition, bool) {
	for _, def := range s {
		if def.ID == id {
			return def, true
		}
	}
	return SettingDefinition{}, false
}

func (s Schema) normalized() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for i, def := range s {
		def.Type = def.Type.Normalize()
		out[i] = def
	}
	return out
}

// Types maps every declared data setting id to its type.
func (s Schema) Types() map[string]SettingType {
	out := make(map[string]SettingType, len(s))
	for _, def := range s {
		if def.ID == "" || def.Type.IsStructural() {
			continue
		}
		out[def.ID] = def.Type.Normalize()
	}
	return out
}

// Assets lists the stylesheets and scripts a widget type needs on the page.
type Assets struct {
	Styles  []string `json:"styles,omitempty"`
	Scripts []string `json:"scripts,omitempty"`
}

// Document is the parsed schema manifest of a widget type: its own settings,
// the schemas of its block types and the assets it enqueues.
type Document struct {
	Name     string            `json:"name,omitempty"`
	Settings Schema            `json:"settings"`
	Blocks   map[string]Schema `json:"-"`
	Assets   Assets            `json:"assets,omitempty"`
}

// BlockSchema returns the schema of the given block type, if declared.
func (d *Document) BlockSchema(blockType string) (Schema, bool) {
	if d == nil || d.Blocks == nil {
		return nil, false
	}
	s, ok := d.Blocks[blockType]
	return s, ok
}
