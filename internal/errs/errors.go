// Package errs defines the error kinds surfaced by the analyzer. Callers
// match them with errors.Is against the sentinels or errors.As against the
// typed errors.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedLanguage means no model or recognizer serves the language.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrInvalidInput means the request was rejected before any analysis ran.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRecognizerFailure means a recognizer failed to load or analyze.
	ErrRecognizerFailure = errors.New("recognizer failure")
)

// UnsupportedLanguageError carries the language that could not be served.
type UnsupportedLanguageError struct {
	Language string
	Err      error // Underlying error, if any
}

func (e *UnsupportedLanguageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported language %q: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("unsupported language %q", e.Language)
}

func (e *UnsupportedLanguageError) Unwrap() error { return ErrUnsupportedLanguage }

// ValidationError represents a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// RecognizerError wraps a failure raised by a recognizer's Load or Analyze.
type RecognizerError struct {
	Recognizer string
	Op         string // "load" or "analyze"
	Err        error
}

func (e *RecognizerError) Error() string {
	return fmt.Sprintf("recognizer %s: %s: %v", e.Recognizer, e.Op, e.Err)
}

// Unwrap exposes both the sentinel kind and the recognizer's own error.
func (e *RecognizerError) Unwrap() []error {
	return []error{ErrRecognizerFailure, e.Err}
}

// Unsupported builds an UnsupportedLanguageError.
func Unsupported(lang string) error {
	return &UnsupportedLanguageError{Language: lang}
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
