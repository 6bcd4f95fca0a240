package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/AwareRO/ipmap/device"
	"github.com/AwareRO/ipmap/widget"
)

const writeTimeout = 10 * time.Second

// Session is one connected page. It renders the map and the details panel
// by pushing messages to the page, and asks the page's browser for device
// positions.
type Session struct {
	ID     string
	conn   *websocket.Conn
	logger zerolog.Logger

	writeMu sync.Mutex

	mu          sync.Mutex
	geolocation bool
	pending     chan positionReply

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, conn *websocket.Conn, logger zerolog.Logger) *Session {
	return &Session{
		ID:     id,
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *Session) send(kind string, payload interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) // nolint: errcheck

	if err := s.conn.WriteJSON(outbound{Type: kind, Payload: payload}); err != nil {
		s.logger.Debug().Err(err).Str("type", kind).Msg("Failed to write message")
	}
}

func (s *Session) SetView(center widget.Coordinates, zoom int) {
	s.send(MsgMapView, mapViewPayload{Lat: center.Latitude, Lng: center.Longitude, Zoom: zoom})
}

func (s *Session) ReplaceMarker(at widget.Coordinates, popup string) {
	s.send(MsgMapMarker, markerPayload{Lat: at.Latitude, Lng: at.Longitude, Popup: popup})
}

func (s *Session) ShowDetails(details widget.Details) {
	s.send(MsgDetails, details)
}

func (s *Session) ShowTimezone(text string) {
	s.send(MsgTimezone, textPayload{Text: text})
}

func (s *Session) ShowError(message string) {
	s.send(MsgError, errorPayload{Message: message})
}

func (s *Session) ShowLoading(visible bool) {
	s.send(MsgLoading, loadingPayload{Visible: visible})
}

func (s *Session) setGeolocation(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.geolocation = available
}

// Available reports what the page said about navigator.geolocation.
func (s *Session) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.geolocation
}

// CurrentPosition asks the page for a fix and waits for the answer. Only
// one request is outstanding at a time; a newer one fails the older.
func (s *Session) CurrentPosition(ctx context.Context, opts device.Options) (device.Position, error) {
	reply := make(chan positionReply, 1)

	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()

		return device.Position{}, fmt.Errorf("%w: %w", device.ErrTimeout, err)
	}

	if s.pending != nil {
		s.pending <- positionReply{err: device.ErrPositionUnavailable}
	}
	s.pending = reply
	s.mu.Unlock()

	s.send(MsgPositionRequest, positionRequestPayload{
		HighAccuracy: opts.HighAccuracy,
		TimeoutMs:    opts.Timeout.Milliseconds(),
		MaximumAgeMs: opts.MaximumAge.Milliseconds(),
	})

	select {
	case r := <-reply:
		return r.position, r.err
	case <-ctx.Done():
		s.mu.Lock()
		if s.pending == reply {
			s.pending = nil
		}
		s.mu.Unlock()

		return device.Position{}, fmt.Errorf("%w: %w", device.ErrTimeout, ctx.Err())
	case <-s.done:
		return device.Position{}, device.ErrPositionUnavailable
	}
}

func (s *Session) deliver(reply positionReply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		s.logger.Debug().Msg("Dropping unsolicited position")

		return
	}

	s.pending <- reply
	s.pending = nil
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
