package copilot

import (
	"errors"
	"fmt"
)

var (
	ErrNoProvider = errors.New("copilot: provider is required")
	ErrNoInvoker  = errors.New("copilot: tool invoker is required")
)

// ProviderError reports a failed provider call: transport fault, non-success
// HTTP status, or a malformed response body. It is fatal to the run.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
