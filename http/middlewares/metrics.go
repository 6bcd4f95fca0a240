package middlewares

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/AwareRO/ipmap/metrics"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type MetricsConfig struct {
	App string `toml:"app" yaml:"app" env:"METRICS_APP_VALUE" env-default:"ipmap"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets websocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}

	r.status = http.StatusSwitchingProtocols

	return hijacker.Hijack()
}

type durationMetricWrapper struct {
	Collector metrics.Collector
	durations *prometheus.HistogramVec
	requests  *prometheus.CounterVec
	app       string
}

func NewDurationMetricWrapper(collector metrics.Collector, conf MetricsConfig) *durationMetricWrapper {
	return (&durationMetricWrapper{}).init(collector, conf)
}

// Wrap records the handler duration. endpoint is the route pattern, so
// label cardinality stays bounded.
func (wrapper *durationMetricWrapper) Wrap(nextHandler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		recorder := &statusRecorder{w, http.StatusOK}
		start := time.Now()

		nextHandler(recorder, r, params)

		elapsed := time.Since(start)
		endpoint := routePattern(r, params)
		status := strconv.Itoa(recorder.status)
		crawler := strconv.FormatBool(IsCrawler(r))

		wrapper.durations.
			WithLabelValues(wrapper.app, endpoint, r.Method, status).Observe(float64(elapsed.Milliseconds()))
		wrapper.requests.
			WithLabelValues(wrapper.app, endpoint, r.Method, status, crawler).Inc()
	}
}

func routePattern(r *http.Request, params httprouter.Params) string {
	if pattern := params.MatchedRoutePath(); pattern != "" {
		return pattern
	}

	return r.URL.Path
}

func (wrapper *durationMetricWrapper) init(collector metrics.Collector, conf MetricsConfig) *durationMetricWrapper {
	wrapper.app = conf.App
	wrapper.initializeMetrics()
	wrapper.Collector = collector
	wrapper.registerMetrics()

	return wrapper
}

func (wrapper *durationMetricWrapper) initializeMetrics() {
	wrapper.durations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "http_server",
			Name:      "request_duration_milliseconds",
			Help:      "Histogram of response time for handler in milliseconds",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"app", "endpoint", "method", "status"},
	)
	wrapper.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "http_server",
			Name:      "request_count",
			Help:      "Counts http requests",
		},
		[]string{"app", "endpoint", "method", "status", "crawler"},
	)
}

func (wrapper *durationMetricWrapper) registerMetrics() {
	wrapper.Collector.RegisterMetric(wrapper.durations)
	log.Info().Str("name", "http_server_request_duration_milliseconds").
		Str("type", "histogram_vec").
		Msg("registered new metric")
	wrapper.Collector.RegisterMetric(wrapper.requests)
	log.Info().Str("name", "http_server_request_count").
		Str("type", "counter_vec").
		Msg("registered new metric")
}
