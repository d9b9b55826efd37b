package core

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a provider API failure carrying the HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.Status, e.Message)
}

// IsAuthError reports whether err is an authentication/authorization
// failure (401 or 403).
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err is a 404 from the provider API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}

// ErrInvalidKey is returned when an entity key does not belong to the
// provider's namespace (wrong prefix or non-numeric remainder).
var ErrInvalidKey = errors.New("invalid entity key")

// InvalidKeyError wraps ErrInvalidKey with the offending key.
func InvalidKeyError(key string) error {
	return fmt.Errorf("%w: %q", ErrInvalidKey, key)
}
