package tools

import "strings"

// ProviderError pairs a provider name with the error it returned, so
// callers and tests can inspect causes programmatically instead of parsing
// formatted text.
type ProviderError struct {
	Provider string
	Err      error
}

func (e ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// AggregateError collects per-provider failures from a fan-out or an
// ordered lookup. Order matches provider registration order.
type AggregateError []ProviderError

func (a AggregateError) Error() string {
	parts := make([]string, 0, len(a))
	for _, e := range a {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, ", ")
}
