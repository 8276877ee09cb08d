package search

import (
	"fmt"

	"github.com/young1lin/civicsource/internal/models"
)

// ValidationError reports malformed or missing caller input. It is the only
// error kind that reaches the caller of a search.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError describes why a provider produced nothing. It never leaves
// the adapter that owns the provider.
type UpstreamError struct {
	Provider   models.Source
	StatusCode int    // zero for transport and decoding failures
	Body       string // truncated response body, if any
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
