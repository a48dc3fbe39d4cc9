// Package llm defines the chat completion boundary and its error type.
package llm

import (
	"fmt"

	"admissionsbot/internal/domain"
)

// Completer sends a single-turn prompt to a chat model.
type Completer = domain.Completer

// ProviderError is returned when the completion provider rejects or fails a
// request. StatusCode is 0 for transport failures.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
