package geoip

import "fmt"

var Names = []string{NameIPify, NameIPApi, NameIPWhoIs}

// NewFinder builds a finder by provider name. apiKey is ignored by
// providers that do not need one.
func NewFinder(name, apiKey string, opts ...Option) (Find, error) {
	switch name {
	case NameIPify:
		if apiKey == "" {
			return nil, fmt.Errorf("%w: provider %s requires PROVIDER_API_KEY", ErrMissingAPIKey, name)
		}

		return NewIPifyFinder(apiKey, opts...), nil
	case NameIPApi:
		return NewIPApiFinder(opts...), nil
	case NameIPWhoIs:
		return NewIPWhoIsFinder(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}
