package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AwareRO/ipmap/device"
	"github.com/AwareRO/ipmap/geoip"
)

type fakeMap struct {
	mu      sync.Mutex
	views   []view
	markers []Coordinates
	popups  []string
	replace int
}

type view struct {
	center Coordinates
	zoom   int
}

func (m *fakeMap) SetView(center Coordinates, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.views = append(m.views, view{center, zoom})
}

func (m *fakeMap) ReplaceMarker(at Coordinates, popup string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markers = []Coordinates{at}
	m.popups = append(m.popups, popup)
	m.replace++
}

func (m *fakeMap) lastView() view {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.views[len(m.views)-1]
}

func (m *fakeMap) markerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.markers)
}

func (m *fakeMap) replaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.replace
}

type fakePanel struct {
	mu        sync.Mutex
	details   []Details
	timezones []string
	errors    []string
	loading   []bool
}

func (p *fakePanel) ShowDetails(details Details) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.details = append(p.details, details)
}

func (p *fakePanel) ShowTimezone(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timezones = append(p.timezones, text)
}

func (p *fakePanel) ShowError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors = append(p.errors, message)
}

func (p *fakePanel) ShowLoading(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loading = append(p.loading, visible)
}

func (p *fakePanel) lastDetails() (Details, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.details) == 0 {
		return Details{}, false
	}

	return p.details[len(p.details)-1], true
}

func (p *fakePanel) detailsCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.details)
}

func (p *fakePanel) lastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.errors) == 0 {
		return ""
	}

	return p.errors[len(p.errors)-1]
}

func (p *fakePanel) loadingVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.loading) > 0 && p.loading[len(p.loading)-1]
}

func (p *fakePanel) tickCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.timezones)
}

type fakeFinder struct {
	mu    sync.Mutex
	calls []string
	reply func(ctx context.Context, ip string) (*geoip.Location, error)
}

func (f *fakeFinder) find(ctx context.Context, ip string) (*geoip.Location, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ip)
	f.mu.Unlock()

	return f.reply(ctx, ip)
}

func (f *fakeFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func (f *fakeFinder) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[len(f.calls)-1]
}

func fixed(loc *geoip.Location, err error) *fakeFinder {
	return &fakeFinder{
		reply: func(context.Context, string) (*geoip.Location, error) {
			return loc, err
		},
	}
}

type fakePositioner struct {
	available bool
	calls     int
	opts      device.Options
	reply     func(ctx context.Context) (device.Position, error)
}

func (p *fakePositioner) Available() bool { return p.available }

func (p *fakePositioner) CurrentPosition(ctx context.Context, opts device.Options) (device.Position, error) {
	p.calls++
	p.opts = opts

	return p.reply(ctx)
}

func float(v float64) *float64 { return &v }

func googleDNS() *geoip.Location {
	return &geoip.Location{
		IP:        "8.8.8.8",
		Latitude:  float(37.40599),
		Longitude: float(-122.078514),
		City:      "Mountain View",
		Region:    "California",
		Country:   "US",
		ISP:       "Google LLC",
		Timezone:  "-07:00",
	}
}

var (
	errTransport = errors.New("dial tcp: connection refused")
	fixedNow     = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestController(find geoip.Find, pos device.Positioner, opts ...Option) (*Controller, *fakeMap, *fakePanel) {
	m := &fakeMap{}
	p := &fakePanel{}
	opts = append([]Option{WithNow(func() time.Time { return fixedNow })}, opts...)

	return New(find, pos, m, p, opts...), m, p
}
