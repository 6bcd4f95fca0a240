package geoip

import (
	"errors"
	"fmt"
)

var (
	ErrLookupFailed     = errors.New("lookup failed")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrMissingAPIKey    = errors.New("missing api key")
)

// LookupError is returned when the provider answered but rejected the
// query, e.g. for a malformed or reserved address.
type LookupError struct {
	Provider string
	Message  string
}

func (e *LookupError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Provider, ErrLookupFailed)
	}

	return fmt.Sprintf("%s: %s: %s", e.Provider, ErrLookupFailed, e.Message)
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailed
}
