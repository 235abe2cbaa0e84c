// internal/coordinator/errors.go
package coordinator

import (
	"errors"
	"fmt"

	"github.com/wordforest/dingbot/internal/browser"
)

// Sentinel errors for the scrape pipeline.
var (
	ErrReplyTimeout = errors.New("timed out waiting for scrape reply")
	ErrShutdown     = errors.New("coordinator is shut down")

	// ErrLoginTimeout aliases the browser package's sentinel so callers
	// can match it without importing internal/browser.
	ErrLoginTimeout = browser.ErrLoginTimeout
)

// ErrorCode classifies a scrape failure so the executor can pattern-match
// on the recovery action: user-input errors surface immediately, resource
// errors trigger a browser restart before the next queued request.
type ErrorCode string

const (
	CodeResourceInit ErrorCode = "RESOURCE_INIT"
	CodeLoginTimeout ErrorCode = "LOGIN_TIMEOUT"
	CodeExtraction   ErrorCode = "EXTRACTION"
	CodeTimeout      ErrorCode = "TIMEOUT"
)

// ScrapeError wraps a pipeline failure with its classification.
type ScrapeError struct {
	Code       ErrorCode
	Message    string
	Underlying error
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ScrapeError) Unwrap() error {
	return e.Underlying
}

// Is matches either another ScrapeError by code or the underlying error.
func (e *ScrapeError) Is(target error) bool {
	if t, ok := target.(*ScrapeError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewScrapeError creates a classified scrape error.
func NewScrapeError(code ErrorCode, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Underlying: err}
}
