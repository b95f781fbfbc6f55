package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/usestring/chunkgrep/pkg/types"
)

// Error codes for MCP tool responses.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeSearchError  = "SEARCH_ERROR"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapSearchError converts an engine error to a coded error.
// Argument errors become INVALID_INPUT so callers can fix the request.
func WrapSearchError(err error) error {
	if err == nil {
		return nil
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}

	var argErr *types.ArgumentError
	switch {
	case errors.As(err, &argErr):
		coded = &CodedError{Code: ErrCodeInvalidInput, Message: argErr.Error(), Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		coded = &CodedError{Code: ErrCodeTimeout, Message: "search timed out", Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeSearchError, Message: err.Error(), Cause: err}
	}

	slog.Warn("search failed",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
