package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const (
	NameIPApi    = "ip-api"
	ipAPISuccess = "success"
	ipAPISource  = "http://ip-api.com/json"
)

type ipAPIResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Query       string   `json:"query"`
	Latitude    *float64 `json:"lat"`
	Longitude   *float64 `json:"lon"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	RegionName  string   `json:"regionName"`
	City        string   `json:"city"`
	Zip         string   `json:"zip"`
	Timezone    string   `json:"timezone"`
	Isp         string   `json:"isp"`
	Org         string   `json:"org"`
	As          string   `json:"as"`
}

func NewIPApiFinder(opts ...Option) Find {
	o := newOptions(ipAPISource, opts)

	return func(ctx context.Context, ip string) (*Location, error) {
		target := o.baseURL
		if ip != "" {
			target += "/" + url.PathEscape(ip)
		}

		return fetch(ctx, o.client, NameIPApi, target, decodeIPApi)
	}
}

func decodeIPApi(status int, body []byte) (*Location, error) {
	if !statusOK(status) {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}

	resp := ipAPIResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cannot parse a response: %w", err)
	}

	if resp.Status != ipAPISuccess {
		return nil, &LookupError{Provider: NameIPApi, Message: resp.Message}
	}

	isp := resp.Isp
	if isp == "" {
		isp = resp.Org
	}

	return &Location{
		IP:        resp.Query,
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
		City:      resp.City,
		Region:    resp.RegionName,
		Country:   resp.Country,
		ISP:       isp,
		Timezone:  resp.Timezone,
	}, nil
}
