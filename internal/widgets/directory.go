package widgets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

const (
	templateFileName = "widget.html"
	schemaFileName   = "schema.json"
)

var widgetTypePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// DirectorySource loads theme widgets from
// <root>/<project>/widgets/<type>/{widget.html,schema.json}.
// Parsed definitions are cached until Invalidate is called for the project.
type DirectorySource struct {
	root  string
	mu    sync.RWMutex
	cache map[string]map[string]*Definition
}

// NewDirectorySource constructs a source rooted at the projects directory.
func NewDirectorySource(root string) *DirectorySource {
	return &DirectorySource{
		root:  root,
		cache: make(map[string]map[string]*Definition),
	}
}

// Definition implements Source.
func (s *DirectorySource) Definition(_ context.Context, projectID, widgetType string) (*Definition, error) {
	if !widgetTypePattern.MatchString(widgetType) || projectID == "" || filepath.Base(projectID) != projectID {
		return nil, ErrDefinitionNotFound
	}

	s.mu.RLock()
	def, ok := s.cache[projectID][widgetType]
	s.mu.RUnlock()
	if ok {
		return def, nil
	}

	dir := filepath.Join(s.root, projectID, "widgets", widgetType)
	template, err := os.ReadFile(filepath.Join(dir, templateFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("widgets: read template %s: %w", widgetType, err)
	}
	sidecar, err := os.ReadFile(filepath.Join(dir, schemaFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("widgets: read schema %s: %w", widgetType, err)
	}

	def, err = ParseDefinition(widgetType, template, sidecar)
	if err != nil {
		return nil, err
	}
	def.Tier = TierTheme

	s.mu.Lock()
	if s.cache[projectID] == nil {
		s.cache[projectID] = make(map[string]*Definition)
	}
	s.cache[projectID][widgetType] = def
	s.mu.Unlock()
	return def, nil
}

// Invalidate drops cached definitions of a project.
func (s *DirectorySource) Invalidate(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, projectID)
}
