package schema

import "github.com/goliatone/go-pagekit/internal/domain"

// Resolve merges settings with the schema defaults. Every data setting the
// schema declares is present in the result: the provided value when it is set,
// the schema default otherwise. Ids unknown to the schema pass through as is.
func Resolve(s Schema, settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings)+len(s))
	for key, value := range settings {
		out[key] = value
	}
	for _, def := range s {
		if def.ID == "" || def.Type.IsStructural() {
			continue
		}
		if value, ok := settings[def.ID]; ok && value != nil {
			continue
		}
		out[def.ID] = cloneValue(def.Default)
	}
	return out
}

// ResolvedBlock is a block whose settings were merged with its schema.
type ResolvedBlock struct {
	ID       string
	Type     string
	Settings map[string]any
}

// ResolvedWidget is a widget whose settings, and every block's settings, were
// merged with their schemas.
type ResolvedWidget struct {
	ID          string
	Type        string
	Settings    map[string]any
	Blocks      map[string]ResolvedBlock
	BlocksOrder []string
}

// ResolveWidget applies Resolve to the widget and recurses into its blocks
// using each block type's own schema. Blocks of undeclared types keep their
// settings unchanged.
func ResolveWidget(doc *Document, widget domain.WidgetInstance) ResolvedWidget {
	var own Schema
	if doc != nil {
		own = doc.Settings
	}
	resolved := ResolvedWidget{
		ID:          widget.ID,
		Type:        widget.Type,
		Settings:    Resolve(own, widget.Settings),
		Blocks:      make(map[string]ResolvedBlock, len(widget.Blocks)),
		BlocksOrder: widget.OrderedBlockIDs(),
	}
	for id, block := range widget.Blocks {
		blockSchema, _ := doc.BlockSchema(block.Type)
		blockID := block.ID
		if blockID == "" {
			blockID = id
		}
		resolved.Blocks[id] = ResolvedBlock{
			ID:       blockID,
			Type:     block.Type,
			Settings: Resolve(blockSchema, block.Settings),
		}
	}
	return resolved
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
