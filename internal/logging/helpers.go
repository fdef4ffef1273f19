package logging

import (
	"maps"

	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// WithFields attaches structured fields to a logger when the implementation
// supports FieldsLogger. Nil loggers and empty maps are returned unchanged.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		maps.Copy(copied, fields)
		return fieldsLogger.WithFields(copied)
	}

	return logger
}

// Fallback returns logger, or a no-op logger when it is nil.
func Fallback(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return NoOp()
	}
	return logger
}
