package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	validationFailedCode = "COMMAND_VALIDATION_FAILED"
	contextCanceledCode  = "COMMAND_CONTEXT_CANCELED"
	contextTimeoutCode   = "COMMAND_CONTEXT_TIMEOUT"
	contextErrorCode     = "COMMAND_CONTEXT_ERROR"
	executeFailedCode    = "COMMAND_EXECUTION_FAILED"
)

// WrapValidationError tags message validation failures. Errors already
// wrapped by go-errors keep their category.
func WrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(validationFailedCode)
}

// WrapContextError tags cancellation and deadline failures.
func WrapContextError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution cancelled").
			WithTextCode(contextCanceledCode)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded").
			WithTextCode(contextTimeoutCode)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
			WithTextCode(contextErrorCode)
	}
}

// WrapExecuteError tags failures returned by the wrapped function.
func WrapExecuteError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
		WithTextCode(executeFailedCode)
}
