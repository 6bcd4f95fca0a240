package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	NameIPWhoIs   = "ipwhois"
	ipWhoIsSource = "https://ipwho.is"
)

type ipWhoIsResponse struct {
	IP         string   `json:"ip"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Country    string   `json:"country"`
	Region     string   `json:"region"`
	City       string   `json:"city"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Connection struct {
		ASN int    `json:"asn"`
		Org string `json:"org"`
		ISP string `json:"isp"`
	} `json:"connection"`
	Timezone struct {
		ID  string `json:"id"`
		UTC string `json:"utc"`
	} `json:"timezone"`
}

// NewIPWhoIsFinder queries ipwho.is. Its timezone is an object; the UTC
// offset is preferred over the zone identifier so the widget can run a
// clock for it.
func NewIPWhoIsFinder(opts ...Option) Find {
	o := newOptions(ipWhoIsSource, opts)

	return func(ctx context.Context, ip string) (*Location, error) {
		target := o.baseURL + "/"
		if ip != "" {
			target += url.PathEscape(ip)
		}

		return fetch(ctx, o.client, NameIPWhoIs, target, decodeIPWhoIs)
	}
}

func decodeIPWhoIs(status int, body []byte) (*Location, error) {
	if !statusOK(status) {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}

	resp := ipWhoIsResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cannot parse a response: %w", err)
	}

	if !resp.Success {
		return nil, &LookupError{Provider: NameIPWhoIs, Message: resp.Message}
	}

	isp := resp.Connection.ISP
	if isp == "" {
		isp = resp.Connection.Org
	}

	timezone := resp.Timezone.UTC
	if timezone == "" {
		timezone = resp.Timezone.ID
	}

	return &Location{
		IP:        resp.IP,
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
		City:      resp.City,
		Region:    resp.Region,
		Country:   resp.Country,
		ISP:       isp,
		Timezone:  timezone,
	}, nil
}
