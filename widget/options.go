package widget

import (
	"time"

	"github.com/AwareRO/ipmap/device"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ResultObserver is notified about every settled lookup, current or not.
type ResultObserver func(result LocationResult, elapsed time.Duration)

type options struct {
	clockInterval time.Duration
	deviceOptions device.Options
	now           func() time.Time
	observer      ResultObserver
	logger        zerolog.Logger
}

type Option func(*options)

func WithClockInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.clockInterval = interval
		}
	}
}

func WithDeviceTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.deviceOptions.Timeout = timeout
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithObserver(observer ResultObserver) Option {
	return func(o *options) {
		o.observer = observer
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		clockInterval: DefaultClockInterval,
		deviceOptions: device.DefaultOptions(),
		now:           time.Now,
		logger:        log.Logger,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
