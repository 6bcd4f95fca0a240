package device

import (
	"context"
	"time"
)

const DefaultTimeout = 10 * time.Second

// Position is a single fix reported by a positioning capability.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	// Timezone is the named zone the device is configured with, if known.
	Timezone string `json:"timezone,omitempty"`
}

// Options mirror the knobs of a browser geolocation request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is how old a cached fix may be. Zero forces a fresh fix.
	MaximumAge time.Duration
}

func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      DefaultTimeout,
	}
}

type Positioner interface {
	Available() bool
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}
