package mediausage

import (
	"errors"
	"fmt"
)

// ErrMediaNotFound is matched by the error GetMediaUsage returns for an
// unknown file id.
var ErrMediaNotFound = errors.New("mediausage: media file not found")

// NotFoundError names the file id that could not be found.
type NotFoundError struct {
	ProjectID string
	FileID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("mediausage: media file %q not found in project %q", e.FileID, e.ProjectID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrMediaNotFound
}

// Result reports the outcome of an index update. Zero references found is a
// successful update.
type Result struct {
	Success    bool     `json:"success"`
	MediaPaths []string `json:"mediaPaths,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Usage describes which entities reference a media file.
type Usage struct {
	FileID   string   `json:"fileId"`
	Filename string   `json:"filename"`
	UsedIn   []string `json:"usedIn"`
	IsInUse  bool     `json:"isInUse"`
}
