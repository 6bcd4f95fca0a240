package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AwareRO/ipmap/device"
	"github.com/AwareRO/ipmap/geoip"
	"github.com/rs/zerolog"
)

// Controller runs the lookup workflow for one widget instance. It owns the
// current result, the single live map marker and the single live clock.
//
// Every trigger starts a new generation and cancels the lookup in flight.
// Results of older generations are dropped without touching the sinks, so
// the most recently triggered lookup always wins.
type Controller struct {
	find       geoip.Find
	positioner device.Positioner
	mapView    MapView
	panel      DetailsPanel
	opts       options

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	current    *LocationResult
	clock      *clock
	closed     bool

	wg sync.WaitGroup
}

func New(find geoip.Find, positioner device.Positioner, mapView MapView, panel DetailsPanel, opts ...Option) *Controller {
	if positioner == nil {
		positioner = device.Unsupported
	}

	return &Controller{
		find:       find,
		positioner: positioner,
		mapView:    mapView,
		panel:      panel,
		opts:       newOptions(opts),
	}
}

// Start centers the map on the world view and resolves the caller's own
// address so the widget is never left empty.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.mapView.SetView(WorldCenter, WorldZoom)
	c.mu.Unlock()

	c.MyIP(ctx)
}

// Search looks up the address typed by the user. Empty input is rejected
// without a request.
func (c *Controller) Search(ctx context.Context, input string) {
	ip := strings.TrimSpace(input)
	if ip == "" {
		c.showError(MessageEmptyInput)

		return
	}

	c.spawn(ctx, func(ctx context.Context, gen uint64) { c.lookupIP(ctx, gen, ip) })
}

func (c *Controller) MyIP(ctx context.Context) {
	c.spawn(ctx, func(ctx context.Context, gen uint64) { c.lookupIP(ctx, gen, "") })
}

// Accurate uses device positioning unless an address was typed, in which
// case it behaves like Search.
func (c *Controller) Accurate(ctx context.Context, input string) {
	if ip := strings.TrimSpace(input); ip != "" {
		c.spawn(ctx, func(ctx context.Context, gen uint64) { c.lookupIP(ctx, gen, ip) })

		return
	}

	if !c.positioner.Available() {
		c.unsupported()

		return
	}

	c.spawn(ctx, func(ctx context.Context, gen uint64) { c.lookupDevice(ctx, gen) })
}

// Wait blocks until all lookups started by triggers have settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the lookup in flight and the live clock. Triggers after
// Close are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.stopClock()
	c.mu.Unlock()

	c.wg.Wait()
}

// Current returns the result the sinks are showing, if any.
func (c *Controller) Current() (LocationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return LocationResult{}, false
	}

	return *c.current, true
}

// LookupByIP resolves ip, or the caller's own address if ip is empty, and
// renders the outcome. It blocks until the lookup settles.
func (c *Controller) LookupByIP(ctx context.Context, ip string) LocationResult {
	gen, ctx, ok := c.begin(ctx)
	if !ok {
		return LocationResult{Source: SourceIPLookup, Status: StatusNetworkError, Message: MessageNetworkError}
	}

	return c.lookupIP(ctx, gen, ip)
}

// LookupByDevice asks the positioner for one fresh high accuracy fix and
// blocks until it settles.
func (c *Controller) LookupByDevice(ctx context.Context) LocationResult {
	if !c.positioner.Available() {
		return c.unsupported()
	}

	gen, ctx, ok := c.begin(ctx)
	if !ok {
		return LocationResult{Source: SourceDeviceGeolocation, Status: StatusNetworkError, Message: MessagePositionUnavailable}
	}

	return c.lookupDevice(ctx, gen)
}

func (c *Controller) lookupIP(ctx context.Context, gen uint64, ip string) LocationResult {
	started := c.opts.now()
	defer c.settle(gen)

	loc, err := c.find(ctx, ip)
	if err != nil {
		c.logLookupError(ip, err)
	}

	result := resultFromLookup(ip, loc, err)
	c.apply(gen, result)
	c.observe(result, started)

	return result
}

func (c *Controller) lookupDevice(ctx context.Context, gen uint64) LocationResult {
	started := c.opts.now()
	defer c.settle(gen)

	ctx, cancel := context.WithTimeout(ctx, c.opts.deviceOptions.Timeout)
	defer cancel()

	pos, err := c.positioner.CurrentPosition(ctx, c.opts.deviceOptions)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", device.ErrTimeout, err)
	}

	if err != nil {
		c.opts.logger.Warn().Err(err).Str("source", string(SourceDeviceGeolocation)).Msg("Device positioning failed")
	}

	result := resultFromPosition(pos, err)
	c.apply(gen, result)
	c.observe(result, started)

	return result
}

// unsupported reports a device lookup that cannot start. Nothing is in
// flight, so no generation is opened and loading is left alone.
func (c *Controller) unsupported() LocationResult {
	result := resultFromPosition(device.Position{}, device.ErrUnsupported)
	c.showError(result.Message)
	c.observe(result, c.opts.now())

	return result
}

// spawn opens the generation before the goroutine starts, so generations
// follow trigger order rather than scheduling order.
func (c *Controller) spawn(parent context.Context, fn func(ctx context.Context, gen uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	gen, ctx := c.open(parent)

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		fn(ctx, gen)
	}()
}

func (c *Controller) begin(parent context.Context) (uint64, context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, parent, false
	}

	gen, ctx := c.open(parent)

	return gen, ctx, true
}

// open starts a new generation: the previous lookup is canceled, the error
// region cleared and the loading indicator shown. mu must be held.
func (c *Controller) open(parent context.Context) (uint64, context.Context) {
	if c.cancel != nil {
		c.cancel()
	}

	ctx, cancel := context.WithCancel(parent)

	c.generation++
	c.cancel = cancel

	c.panel.ShowError("")
	c.panel.ShowLoading(true)

	return c.generation, ctx
}

// settle hides the loading indicator if gen is still the newest lookup.
// Older generations leave it to their successor.
func (c *Controller) settle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.panel.ShowLoading(false)
}

// apply renders result to both sinks under the lock, so the marker and the
// details panel never disagree.
func (c *Controller) apply(gen uint64, result LocationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.closed {
		c.opts.logger.Debug().
			Uint64("generation", gen).
			Str("status", string(result.Status)).
			Msg("Dropping superseded result")

		return
	}

	if result.OK() && result.Coordinates != nil {
		popup := result.DisplayID
		if result.Source == SourceDeviceGeolocation {
			popup = DevicePopup
		} else if popup == "" {
			popup = DefaultPopup
		}

		c.mapView.SetView(*result.Coordinates, StreetZoom)
		c.mapView.ReplaceMarker(*result.Coordinates, popup)
	}

	if result.overwritesPanel() {
		c.stopClock()
		c.current = &result
		c.panel.ShowDetails(c.details(result))
		c.startClock(result.TimezoneLabel)
	}

	if result.Message != "" {
		c.panel.ShowError(result.Message)
	}
}

func (c *Controller) details(result LocationResult) Details {
	if result.hardFailure() {
		return Details{
			IP:       Placeholder,
			Location: Placeholder,
			ISP:      Placeholder,
			Timezone: Placeholder,
		}
	}

	location := result.JoinedLocation()
	if result.Source == SourceDeviceGeolocation && result.Coordinates != nil {
		location = fmt.Sprintf("Lat: %.5f, Lng: %.5f",
			result.Coordinates.Latitude, result.Coordinates.Longitude)
	}

	return Details{
		IP:       orPlaceholder(result.DisplayID),
		Location: orPlaceholder(location),
		ISP:      orPlaceholder(result.ISP),
		Timezone: TimezoneText(result.TimezoneLabel, c.opts.now()),
	}
}

// startClock must be called with mu held.
func (c *Controller) startClock(label string) {
	if _, ok := Zone(label); !ok {
		return
	}

	clk := newClock(label)
	c.clock = clk

	go clk.run(c.opts.clockInterval, c.tick)
}

// stopClock must be called with mu held.
func (c *Controller) stopClock() {
	if c.clock != nil {
		c.clock.Stop()
		c.clock = nil
	}
}

func (c *Controller) tick(clk *clock) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clock != clk {
		return
	}

	c.panel.ShowTimezone(TimezoneText(clk.label, c.opts.now()))
}

func (c *Controller) showError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.panel.ShowError(message)
}

func (c *Controller) observe(result LocationResult, started time.Time) {
	if c.opts.observer != nil {
		c.opts.observer(result, c.opts.now().Sub(started))
	}
}

func (c *Controller) logLookupError(ip string, err error) {
	level := zerolog.ErrorLevel

	switch {
	case errors.Is(err, context.Canceled):
		level = zerolog.DebugLevel
	case errors.Is(err, geoip.ErrLookupFailed):
		level = zerolog.InfoLevel
	}

	c.opts.logger.WithLevel(level).Err(err).Str("ip", ip).Str("source", string(SourceIPLookup)).Msg("Lookup failed")
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}

	return s
}
