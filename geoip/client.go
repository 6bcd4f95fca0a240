package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 1 << 20

type decodeFunc func(status int, body []byte) (*Location, error)

type options struct {
	client  *http.Client
	baseURL string
}

type Option func(*options)

// WithHTTPClient replaces the client used to reach the provider.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.client = client
		}
	}
}

// WithBaseURL points a finder at another endpoint, e.g. a self-hosted
// mirror or a test server.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = url
		}
	}
}

func newOptions(baseURL string, opts []Option) *options {
	o := &options{
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: baseURL,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func fetch(ctx context.Context, client *http.Client, source, url string, decode decodeFunc) (*Location, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build a request: %w", err)
	}

	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("cannot send a request: %w", err)
	}
	defer response.Body.Close()

	buf, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("cannot read a response: %w", err)
	}

	loc, err := decode(response.StatusCode, buf)
	if err != nil {
		log.Debug().
			Str("source", source).
			Int("status", response.StatusCode).
			Str("body", string(buf)).
			Err(err).
			Msg("Failed to parse response")

		return nil, err
	}

	return loc, nil
}

func statusOK(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
