package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsupportedLanguageError(t *testing.T) {
	err := fmt.Errorf("analyze: %w", Unsupported("xx"))
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
	assert.False(t, errors.Is(err, ErrInvalidInput))

	var ule *UnsupportedLanguageError
	require.True(t, errors.As(err, &ule))
	assert.Equal(t, "xx", ule.Language)
	assert.Equal(t, `analyze: unsupported language "xx"`, err.Error())
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{"with field", &ValidationError{Field: "text", Message: "must not be empty"}, "invalid input: text: must not be empty"},
		{"without field", &ValidationError{Message: "bad request"}, "invalid input: bad request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrInvalidInput)
		})
	}
}

func TestRecognizerErrorMatchesBoth(t *testing.T) {
	cause := errors.New("regex compile failed")
	err := error(&RecognizerError{Recognizer: "UsSsnRecognizer", Op: "load", Err: cause})
	assert.ErrorIs(t, err, ErrRecognizerFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "UsSsnRecognizer")
	assert.Contains(t, err.Error(), "load")
}

func TestInvalidFormatsMessage(t *testing.T) {
	err := Invalid("score_threshold", "must be within [0,1], got %v", 1.5)
	assert.EqualError(t, err, "invalid input: score_threshold: must be within [0,1], got 1.5")
}
