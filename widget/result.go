package widget

import (
	"errors"
	"math"
	"strings"

	"github.com/AwareRO/ipmap/device"
	"github.com/AwareRO/ipmap/geoip"
)

type Source string

const (
	SourceIPLookup          Source = "ip-lookup"
	SourceDeviceGeolocation Source = "device-geolocation"
)

type Status string

const (
	StatusOK                 Status = "ok"
	StatusLookupFailed       Status = "lookup-failed"
	StatusPermissionDenied   Status = "permission-denied"
	StatusUnsupported        Status = "unsupported"
	StatusNetworkError       Status = "network-error"
	StatusCoordinatesMissing Status = "coordinates-missing"
)

// DeviceDisplayID stands in for an IP address on device sourced results.
const DeviceDisplayID = "Device GPS"

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// LocationResult is built for every lookup and replaces the previous one
// in both display sinks. Only StatusOK results carry coordinates.
type LocationResult struct {
	Source            Source
	DisplayID         string
	Coordinates       *Coordinates
	CityRegionCountry []string
	ISP               string
	TimezoneLabel     string
	Status            Status
	Message           string
}

func (r LocationResult) OK() bool {
	return r.Status == StatusOK
}

// JoinedLocation joins the non-empty city, region and country parts.
func (r LocationResult) JoinedLocation() string {
	parts := make([]string, 0, len(r.CityRegionCountry))

	for _, v := range r.CityRegionCountry {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, ", ")
}

// hardFailure results wipe the details panel so it never shows an
// unrelated previous location.
func (r LocationResult) hardFailure() bool {
	return r.Source == SourceIPLookup &&
		(r.Status == StatusLookupFailed || r.Status == StatusNetworkError)
}

// overwritesPanel reports whether rendering r replaces the details panel.
func (r LocationResult) overwritesPanel() bool {
	return r.Status == StatusOK || r.Status == StatusCoordinatesMissing || r.hardFailure()
}

func resultFromLookup(ip string, loc *geoip.Location, err error) LocationResult {
	result := LocationResult{
		Source:    SourceIPLookup,
		DisplayID: ip,
	}

	lookupErr := &geoip.LookupError{}

	switch {
	case err == nil:
	case errors.As(err, &lookupErr):
		result.Status = StatusLookupFailed
		result.Message = lookupErr.Message

		if result.Message == "" {
			result.Message = MessageLookupFailed
		}

		return result
	default:
		result.Status = StatusNetworkError
		result.Message = MessageNetworkError

		return result
	}

	if loc.IP != "" {
		result.DisplayID = loc.IP
	}

	result.CityRegionCountry = []string{loc.City, loc.Region, loc.Country}
	result.ISP = loc.ISP
	result.TimezoneLabel = loc.Timezone

	if !loc.HasCoordinates() {
		result.Status = StatusCoordinatesMissing
		result.Message = MessageCoordinatesMissing

		return result
	}

	result.Status = StatusOK
	result.Coordinates = &Coordinates{
		Latitude:  *loc.Latitude,
		Longitude: *loc.Longitude,
	}

	return result
}

func resultFromPosition(pos device.Position, err error) LocationResult {
	result := LocationResult{
		Source:    SourceDeviceGeolocation,
		DisplayID: DeviceDisplayID,
	}

	switch {
	case err == nil:
	case errors.Is(err, device.ErrUnsupported):
		result.Status = StatusUnsupported
		result.Message = MessageUnsupported

		return result
	case errors.Is(err, device.ErrPermissionDenied):
		result.Status = StatusPermissionDenied
		result.Message = MessagePermissionDenied

		return result
	default:
		// timeouts, unavailable fixes and dropped sessions look the same
		// to the user
		result.Status = StatusNetworkError
		result.Message = MessagePositionUnavailable

		return result
	}

	result.Status = StatusOK
	result.TimezoneLabel = pos.Timezone
	result.Coordinates = &Coordinates{
		Latitude:  round5(pos.Latitude),
		Longitude: round5(pos.Longitude),
	}

	return result
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
