package handlers

import (
	"encoding/json"

	"github.com/AwareRO/ipmap/device"
)

// Messages sent from the page.
const (
	MsgHello         = "hello"
	MsgSearch        = "search"
	MsgMyIP          = "my_ip"
	MsgAccurate      = "accurate"
	MsgPosition      = "position"
	MsgPositionError = "position_error"
)

// Messages sent to the page.
const (
	MsgMapView         = "map.view"
	MsgMapMarker       = "map.marker"
	MsgDetails         = "details"
	MsgTimezone        = "timezone"
	MsgError           = "error"
	MsgLoading         = "loading"
	MsgPositionRequest = "position_request"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type helloPayload struct {
	Geolocation bool `json:"geolocation"`
}

type ipPayload struct {
	IP string `json:"ip"`
}

type positionErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type mapViewPayload struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

type markerPayload struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Popup string  `json:"popup"`
}

type textPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type loadingPayload struct {
	Visible bool `json:"visible"`
}

type positionRequestPayload struct {
	HighAccuracy bool  `json:"high_accuracy"`
	TimeoutMs    int64 `json:"timeout_ms"`
	MaximumAgeMs int64 `json:"maximum_age_ms"`
}

type positionReply struct {
	position device.Position
	err      error
}
