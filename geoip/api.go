package geoip

import "context"

// Location is a provider response normalized to the fields the widget
// renders. Coordinates are pointers because providers may omit them.
type Location struct {
	IP        string
	Latitude  *float64
	Longitude *float64
	City      string
	Region    string
	Country   string
	ISP       string
	Timezone  string
}

func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// Find resolves ip to a location. An empty ip asks the provider for the
// caller's own public address.
type Find func(ctx context.Context, ip string) (*Location, error)
