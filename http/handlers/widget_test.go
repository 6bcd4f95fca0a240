package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/AwareRO/ipmap/device"
	"github.com/AwareRO/ipmap/geoip"
	"github.com/AwareRO/ipmap/metrics"
	"github.com/AwareRO/ipmap/widget"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0"

type received struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type WidgetTestSuite struct {
	suite.Suite

	server  *httptest.Server
	calls   chan string
	options []WidgetOption
}

func (suite *WidgetTestSuite) SetupTest() {
	suite.calls = make(chan string, 16)
	suite.options = nil
}

func (suite *WidgetTestSuite) TearDownTest() {
	if suite.server != nil {
		suite.server.Close()
		suite.server = nil
	}
}

func (suite *WidgetTestSuite) find(_ context.Context, ip string) (*geoip.Location, error) {
	suite.calls <- ip

	lat, lng := 37.40599, -122.078514
	if ip == "" {
		ip = "203.0.113.7"
	}

	return &geoip.Location{
		IP:        ip,
		Latitude:  &lat,
		Longitude: &lng,
		City:      "Mountain View",
		Region:    "California",
		Country:   "US",
		ISP:       "Google LLC",
		Timezone:  "America/Los_Angeles",
	}, nil
}

func (suite *WidgetTestSuite) dial(userAgent string) *websocket.Conn {
	if suite.server == nil {
		router := httprouter.New()
		router.GET("/ws", NewWidget(suite.find, suite.options...).ServeWS)
		suite.server = httptest.NewServer(router)
	}

	if userAgent == "" {
		userAgent = browserUA
	}

	header := http.Header{}
	header.Set("User-Agent", userAgent)

	url := "ws" + strings.TrimPrefix(suite.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	suite.Require().NoError(err)

	return conn
}

func (suite *WidgetTestSuite) send(conn *websocket.Conn, kind string, payload interface{}) {
	suite.Require().NoError(conn.WriteJSON(map[string]interface{}{"type": kind, "payload": payload}))
}

// readUntil reads messages until one of the given type arrives and returns
// everything read so far.
func (suite *WidgetTestSuite) readUntil(conn *websocket.Conn, kind string, match func(json.RawMessage) bool) []received {
	msgs := []received{}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second)) // nolint: errcheck

	for {
		msg := received{}
		suite.Require().NoError(conn.ReadJSON(&msg))
		msgs = append(msgs, msg)

		if msg.Type == kind && (match == nil || match(msg.Payload)) {
			return msgs
		}
	}
}

func loadingOff(raw json.RawMessage) bool {
	payload := loadingPayload{}
	json.Unmarshal(raw, &payload) // nolint: errcheck

	return !payload.Visible
}

func lastOf(msgs []received, kind string) (json.RawMessage, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == kind {
			return msgs[i].Payload, true
		}
	}

	return nil, false
}

func (suite *WidgetTestSuite) TestHelloLooksUpOwnAddress() {
	suite.options = []WidgetOption{WithControllerOptions(widget.WithNow(func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}))}

	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{Geolocation: false})

	msgs := suite.readUntil(conn, MsgLoading, loadingOff)
	suite.Equal(MsgMapView, msgs[0].Type)
	suite.JSONEq(`{"lat":20,"lng":0,"zoom":2}`, string(msgs[0].Payload))
	suite.Equal("", <-suite.calls)

	details, ok := lastOf(msgs, MsgDetails)
	suite.Require().True(ok)
	suite.JSONEq(`{
		"ip": "203.0.113.7",
		"location": "Mountain View, California, US",
		"isp": "Google LLC",
		"timezone": "America/Los_Angeles (04:00)"
	}`, string(details))

	marker, ok := lastOf(msgs, MsgMapMarker)
	suite.Require().True(ok)
	suite.JSONEq(`{"lat":37.40599,"lng":-122.078514,"popup":"203.0.113.7"}`, string(marker))

	view, _ := lastOf(msgs, MsgMapView)
	suite.JSONEq(`{"lat":37.40599,"lng":-122.078514,"zoom":13}`, string(view))
}

func (suite *WidgetTestSuite) TestSearch() {
	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgSearch, ipPayload{IP: " 8.8.8.8 "})
	msgs := suite.readUntil(conn, MsgLoading, loadingOff)
	suite.Equal("8.8.8.8", <-suite.calls)

	marker, ok := lastOf(msgs, MsgMapMarker)
	suite.Require().True(ok)
	suite.Contains(string(marker), `"popup":"8.8.8.8"`)
}

func (suite *WidgetTestSuite) TestSearchEmptyInput() {
	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgSearch, ipPayload{IP: ""})
	msgs := suite.readUntil(conn, MsgError, func(raw json.RawMessage) bool {
		return strings.Contains(string(raw), widget.MessageEmptyInput)
	})

	suite.Len(msgs, 1)
	suite.Len(suite.calls, 0)
}

func (suite *WidgetTestSuite) TestAccurateUsesBrowserPosition() {
	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{Geolocation: true})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgAccurate, ipPayload{})
	msgs := suite.readUntil(conn, MsgPositionRequest, nil)

	request, _ := lastOf(msgs, MsgPositionRequest)
	suite.JSONEq(`{"high_accuracy":true,"timeout_ms":10000,"maximum_age_ms":0}`, string(request))

	suite.send(conn, MsgPosition, device.Position{Latitude: 44.4267674, Longitude: 26.1025384, Timezone: "Europe/Bucharest"})
	msgs = suite.readUntil(conn, MsgLoading, loadingOff)

	marker, ok := lastOf(msgs, MsgMapMarker)
	suite.Require().True(ok)
	suite.JSONEq(`{"lat":44.42677,"lng":26.10254,"popup":"Your Device (GPS)"}`, string(marker))

	details, _ := lastOf(msgs, MsgDetails)
	suite.Contains(string(details), `"ip":"Device GPS"`)
	suite.Len(suite.calls, 0)
}

func (suite *WidgetTestSuite) TestAccuratePermissionDenied() {
	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{Geolocation: true})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgAccurate, ipPayload{})
	suite.readUntil(conn, MsgPositionRequest, nil)

	suite.send(conn, MsgPositionError, positionErrorPayload{Code: device.CodePermissionDenied, Message: "User denied Geolocation"})
	msgs := suite.readUntil(conn, MsgLoading, loadingOff)

	errMsg, ok := lastOf(msgs, MsgError)
	suite.Require().True(ok)
	suite.JSONEq(`{"message":"Permission denied."}`, string(errMsg))

	_, ok = lastOf(msgs, MsgDetails)
	suite.False(ok)
	_, ok = lastOf(msgs, MsgMapMarker)
	suite.False(ok)
}

func (suite *WidgetTestSuite) TestAccurateTwiceAppliesOnePosition() {
	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{Geolocation: true})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgAccurate, ipPayload{})
	suite.readUntil(conn, MsgPositionRequest, nil)

	suite.send(conn, MsgAccurate, ipPayload{})
	suite.readUntil(conn, MsgPositionRequest, nil)

	suite.send(conn, MsgPosition, device.Position{Latitude: 44.4267674, Longitude: 26.1025384})
	msgs := suite.readUntil(conn, MsgLoading, loadingOff)

	markers := 0
	for _, msg := range msgs {
		switch msg.Type {
		case MsgMapMarker:
			markers++
		case MsgError:
			suite.JSONEq(`{"message":""}`, string(msg.Payload))
		}
	}

	suite.Equal(1, markers)

	marker, _ := lastOf(msgs, MsgMapMarker)
	suite.JSONEq(`{"lat":44.42677,"lng":26.10254,"popup":"Your Device (GPS)"}`, string(marker))
	suite.Len(suite.calls, 0)
}

func (suite *WidgetTestSuite) TestLatePositionIsDropped() {
	suite.options = []WidgetOption{WithControllerOptions(widget.WithDeviceTimeout(50 * time.Millisecond))}

	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{Geolocation: true})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgAccurate, ipPayload{})
	msgs := suite.readUntil(conn, MsgLoading, loadingOff)

	errMsg, ok := lastOf(msgs, MsgError)
	suite.Require().True(ok)
	suite.JSONEq(`{"message":"Position unavailable or timed out."}`, string(errMsg))

	suite.send(conn, MsgPosition, device.Position{Latitude: 1, Longitude: 1})
	suite.send(conn, MsgSearch, ipPayload{IP: "8.8.8.8"})
	msgs = suite.readUntil(conn, MsgLoading, loadingOff)
	suite.Equal("8.8.8.8", <-suite.calls)

	for _, msg := range msgs {
		if msg.Type == MsgMapMarker {
			suite.Contains(string(msg.Payload), `"popup":"8.8.8.8"`)
		}
	}
}

func (suite *WidgetTestSuite) TestAccurateWithoutGeolocation() {
	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{Geolocation: false})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgAccurate, ipPayload{})
	msgs := suite.readUntil(conn, MsgError, nil)

	suite.Len(msgs, 1)
	suite.JSONEq(`{"message":"Geolocation not supported by your browser."}`, string(msgs[0].Payload))
}

func (suite *WidgetTestSuite) TestStaticPositioner() {
	suite.options = []WidgetOption{WithPositioner(device.NewStatic(1.5, 2.5, ""))}

	conn := suite.dial("")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{Geolocation: false})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	suite.send(conn, MsgAccurate, ipPayload{})
	msgs := suite.readUntil(conn, MsgLoading, loadingOff)

	marker, ok := lastOf(msgs, MsgMapMarker)
	suite.Require().True(ok)
	suite.JSONEq(`{"lat":1.5,"lng":2.5,"popup":"Your Device (GPS)"}`, string(marker))

	_, ok = lastOf(msgs, MsgPositionRequest)
	suite.False(ok)
}

func (suite *WidgetTestSuite) TestCrawlerGetsNoLookup() {
	conn := suite.dial("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	defer conn.Close()

	suite.send(conn, MsgHello, helloPayload{})
	msgs := suite.readUntil(conn, MsgMapView, nil)

	suite.JSONEq(`{"lat":20,"lng":0,"zoom":2}`, string(msgs[0].Payload))

	time.Sleep(50 * time.Millisecond)
	suite.Len(suite.calls, 0)
}

func (suite *WidgetTestSuite) TestLookupsAreCounted() {
	collector := metrics.NewDefaultCollector()
	suite.options = []WidgetOption{WithLookups(metrics.NewLookups(collector))}

	conn := suite.dial("")
	suite.send(conn, MsgHello, helloPayload{})
	suite.readUntil(conn, MsgLoading, loadingOff)
	<-suite.calls

	rec := httptest.NewRecorder()
	collector.GetHttpHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	suite.Contains(rec.Body.String(), `lookup_total{source="ip-lookup",status="ok"} 1`)
	suite.Contains(rec.Body.String(), `widget_sessions 1`)
	conn.Close()
}

func TestWidget(t *testing.T) {
	suite.Run(t, &WidgetTestSuite{})
}

func TestAllowedOrigins(t *testing.T) {
	w := NewWidget(nil, WithAllowedOrigins([]string{"https://map.example.com"}))
	require.NotNil(t, w.upgrader.CheckOrigin)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, w.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://map.example.com")
	assert.True(t, w.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, w.upgrader.CheckOrigin(req))
}

func TestDefaultOriginCheck(t *testing.T) {
	assert.Nil(t, NewWidget(nil).upgrader.CheckOrigin)
}
