package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrCountMismatch     = errors.New("chunk and embedding counts differ")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyQuery        = errors.New("text cannot be empty")
	ErrEmptyDocument     = errors.New("no text could be chunked from document")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtraction        = errors.New("text extraction failed")
	ErrEmbedding         = errors.New("embedding request failed")
	ErrCompletion        = errors.New("completion request failed")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("service unavailable")
)

// OpError annotates an error with the operation and document it concerns.
type OpError struct {
	Op       string
	Document string
	Err      error
	Context  map[string]any
}

func (e *OpError) Error() string {
	if e.Document != "" {
		return fmt.Sprintf("%s [document=%s]: %v", e.Op, e.Document, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func NewOpError(op, document string, err error) *OpError {
	return &OpError{Op: op, Document: document, Err: err}
}

func WithContext(err *OpError, key string, val any) *OpError {
	if err.Context == nil {
		err.Context = make(map[string]any)
	}
	err.Context[key] = val
	return err
}

// IsValidation reports whether err was rejected before any state changed.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrCountMismatch) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrEmptyQuery) ||
		errors.Is(err, ErrEmptyDocument) ||
		errors.Is(err, ErrUnsupportedFormat)
}
