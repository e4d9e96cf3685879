package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when no API key is configured for the selected provider.
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnknownProvider is returned for a provider outside the supported set.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnauthorized is returned when the provider rejects the configured credential.
	ErrUnauthorized = errors.New("credential rejected by provider")
	// ErrNotFound is returned when the provider cannot resolve the requested location.
	ErrNotFound = errors.New("location not found")
	// ErrTransient covers connectivity failures, server errors, rate limiting and open circuits.
	ErrTransient = errors.New("provider unavailable")
	// ErrNotImplemented is returned by capabilities a provider does not support.
	ErrNotImplemented = errors.New("not implemented")
	// ErrEnrichment marks a tolerated air quality or alerts failure. It is only logged.
	ErrEnrichment = errors.New("enrichment fetch failed")
	// ErrInvalidLocation is returned when a query names neither a city nor valid coordinates.
	ErrInvalidLocation = errors.New("invalid location")
)

// IsConfigurationError reports whether err stems from provider selection or credentials.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrUnknownProvider) ||
		errors.Is(err, ErrUnauthorized)
}

// APIError represents a failed provider call. Message holds the provider-supplied
// explanation when the response carried one.
type APIError struct {
	Provider   ProviderID
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Provider, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError classifies an HTTP status into one of the package sentinels.
func NewAPIError(provider ProviderID, status int, message string) *APIError {
	var kind error
	switch {
	case status == 401 || status == 403:
		kind = ErrUnauthorized
	case status == 404:
		kind = ErrNotFound
	case status == 429 || status >= 500:
		kind = ErrTransient
	case status == 400:
		// OpenWeather answers 400 "Nothing to geocode" for unresolvable names.
		kind = ErrNotFound
	default:
		kind = fmt.Errorf("unexpected status code %d", status)
	}
	return &APIError{
		Provider:   provider,
		StatusCode: status,
		Message:    message,
		Err:        kind,
	}
}

// NotImplemented builds the error placeholder adapters return for cap.
func NotImplemented(provider ProviderID, cap Capability, reason string) error {
	return fmt.Errorf("%s %s: %w (%s)", provider, cap, ErrNotImplemented, reason)
}

// ProviderMessage extracts the provider-supplied message from err, if any.
func ProviderMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
