package widgets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed core/*.html
var coreTemplates embed.FS

// RegisterCoreWidgets loads the built-in widget set into the registry.
func RegisterCoreWidgets(registry *Registry) error {
	entries, err := fs.ReadDir(coreTemplates, "core")
	if err != nil {
		return fmt.Errorf("widgets: read core templates: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".html" {
			continue
		}
		data, err := coreTemplates.ReadFile(path.Join("core", entry.Name()))
		if err != nil {
			return fmt.Errorf("widgets: read %s: %w", entry.Name(), err)
		}
		widgetType := strings.TrimSuffix(entry.Name(), ".html")
		def, err := ParseDefinition(widgetType, data, nil)
		if err != nil {
			return err
		}
		registry.RegisterCore(def)
	}
	return nil
}

// NewCoreRegistry returns a registry seeded with the built-in widgets.
func NewCoreRegistry(themes Source) (*Registry, error) {
	registry := NewRegistry(themes)
	if err := RegisterCoreWidgets(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
