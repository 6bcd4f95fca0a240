package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	NameIPify   = "ipify"
	ipifySource = "https://geo.ipify.org/api/v1"
)

type ipifyResponse struct {
	IP       string         `json:"ip"`
	ISP      string         `json:"isp"`
	Location *ipifyLocation `json:"location"`
}

type ipifyLocation struct {
	Country  string   `json:"country"`
	Region   string   `json:"region"`
	City     string   `json:"city"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Timezone string   `json:"timezone"`
}

type ipifyErrorResponse struct {
	Code     int    `json:"code"`
	Messages string `json:"messages"`
}

// NewIPifyFinder queries the geo.ipify.org country+city API. The timezone
// it reports is a fixed UTC offset such as "-07:00".
func NewIPifyFinder(apiKey string, opts ...Option) Find {
	o := newOptions(ipifySource, opts)

	return func(ctx context.Context, ip string) (*Location, error) {
		query := url.Values{}
		query.Set("apiKey", apiKey)

		if ip != "" {
			query.Set("ipAddress", ip)
		}

		return fetch(ctx, o.client, NameIPify, o.baseURL+"?"+query.Encode(), decodeIPify)
	}
}

func decodeIPify(status int, body []byte) (*Location, error) {
	if !statusOK(status) {
		errResp := ipifyErrorResponse{}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Messages != "" && status < 500 {
			return nil, &LookupError{Provider: NameIPify, Message: errResp.Messages}
		}

		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}

	resp := ipifyResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cannot parse a response: %w", err)
	}

	if resp.Location == nil {
		return nil, &LookupError{Provider: NameIPify}
	}

	return &Location{
		IP:        resp.IP,
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		City:      resp.Location.City,
		Region:    resp.Location.Region,
		Country:   resp.Location.Country,
		ISP:       resp.ISP,
		Timezone:  resp.Location.Timezone,
	}, nil
}
