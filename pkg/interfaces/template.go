package interfaces

import "context"

// HTML marks a value as trusted markup. Executors must emit it verbatim and
// escape every other scalar they interpolate.
type HTML string

// String returns the raw markup.
func (h HTML) String() string { return string(h) }

// TemplateExecutor runs a template source against a data context.
type TemplateExecutor interface {
	Execute(ctx context.Context, source string, data map[string]any) (string, error)
}

// TemplateExecutorFunc adapts a plain function to TemplateExecutor.
type TemplateExecutorFunc func(ctx context.Context, source string, data map[string]any) (string, error)

// Execute calls fn.
func (fn TemplateExecutorFunc) Execute(ctx context.Context, source string, data map[string]any) (string, error) {
	return fn(ctx, source, data)
}
