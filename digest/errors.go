package digest

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when the llm classifier has no API key
	ErrMissingAPIKey = errors.New("digest: api key is required for the llm classifier")
	// ErrDisabled is returned by the summarizer built without an API key
	ErrDisabled = errors.New("digest: summarizer disabled")
	// ErrEmptyResponse is returned when a completion has no choices
	ErrEmptyResponse = errors.New("digest: empty completion response")
)

// ErrInvalidClassifier returns an error for an unknown classifier kind
func ErrInvalidClassifier(kind string) error {
	return fmt.Errorf("digest: invalid classifier %q, must be 'keyword' or 'llm'", kind)
}

// ErrInvalidField returns an error for an out-of-range config value
func ErrInvalidField(name string, v any) error {
	return fmt.Errorf("digest: invalid %s: %v", name, v)
}

// ErrCompletion wraps a failed completion request
func ErrCompletion(err error) error {
	return fmt.Errorf("digest: completion failed: %w", err)
}

// ErrUnexpectedLabel is returned when the model answers with an unknown class
func ErrUnexpectedLabel(answer string) error {
	return fmt.Errorf("digest: unexpected label %q", answer)
}
