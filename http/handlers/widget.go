package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/AwareRO/ipmap/device"
	"github.com/AwareRO/ipmap/geoip"
	"github.com/AwareRO/ipmap/http/identity"
	"github.com/AwareRO/ipmap/http/middlewares"
	"github.com/AwareRO/ipmap/metrics"
	"github.com/AwareRO/ipmap/widget"
)

// Widget upgrades page connections to websocket sessions and runs one
// lookup controller per session.
type Widget struct {
	find       geoip.Find
	positioner device.Positioner
	lookups    *metrics.Lookups
	options    []widget.Option
	isCrawler  identity.IsCrawler
	upgrader   websocket.Upgrader
}

type WidgetOption func(*Widget)

// WithPositioner replaces the browser's geolocation with a fixed
// positioner for every session.
func WithPositioner(positioner device.Positioner) WidgetOption {
	return func(w *Widget) {
		w.positioner = positioner
	}
}

func WithLookups(lookups *metrics.Lookups) WidgetOption {
	return func(w *Widget) {
		w.lookups = lookups
	}
}

func WithControllerOptions(opts ...widget.Option) WidgetOption {
	return func(w *Widget) {
		w.options = append(w.options, opts...)
	}
}

// WithAllowedOrigins restricts websocket origins. Without it only same
// origin pages may connect.
func WithAllowedOrigins(origins []string) WidgetOption {
	return func(w *Widget) {
		if len(origins) == 0 {
			return
		}

		allowed := make(map[string]struct{}, len(origins))
		for _, v := range origins {
			allowed[v] = struct{}{}
		}

		w.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			_, ok := allowed[origin]
			if !ok {
				log.Warn().Str("origin", origin).Msg("Rejected websocket origin")
			}

			return ok
		}
	}
}

func NewWidget(find geoip.Find, opts ...WidgetOption) *Widget {
	w := &Widget{
		find:      find,
		isCrawler: identity.NewMileusna(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (h *Widget) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Websocket upgrade failed")

		return
	}

	id := uuid.NewString()
	logger := log.With().
		Str("session", id).
		Str("ip", middlewares.ClientIP(r)).
		Logger()
	session := newSession(id, conn, logger)

	positioner := h.positioner
	if positioner == nil {
		positioner = session
	}

	opts := append([]widget.Option{widget.WithLogger(logger)}, h.options...)
	if h.lookups != nil {
		opts = append(opts, widget.WithObserver(func(result widget.LocationResult, elapsed time.Duration) {
			h.lookups.Observe(string(result.Source), string(result.Status), elapsed)
		}))
		h.lookups.SessionOpened()
		defer h.lookups.SessionClosed()
	}

	controller := widget.New(h.find, positioner, session, session, opts...)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		<-ctx.Done()
		session.close()
	}()

	logger.Info().Msg("Session opened")
	h.serveSession(ctx, session, controller, h.isCrawler(r.UserAgent()))
	controller.Close()
	logger.Info().Msg("Session closed")
}

func (h *Widget) serveSession(ctx context.Context, session *Session, controller *widget.Controller, crawler bool) {
	started := false

	for {
		_, data, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.logger.Debug().Err(err).Msg("Session read failed")
			}

			return
		}

		msg := inbound{}
		if err := json.Unmarshal(data, &msg); err != nil {
			session.logger.Warn().Err(err).Msg("Malformed message")

			continue
		}

		switch msg.Type {
		case MsgHello:
			hello := helloPayload{}
			json.Unmarshal(msg.Payload, &hello) // nolint: errcheck
			session.setGeolocation(hello.Geolocation)

			if started {
				continue
			}

			started = true

			if crawler {
				session.SetView(widget.WorldCenter, widget.WorldZoom)

				continue
			}

			controller.Start(ctx)
		case MsgSearch:
			payload := ipPayload{}
			json.Unmarshal(msg.Payload, &payload) // nolint: errcheck
			controller.Search(ctx, payload.IP)
		case MsgMyIP:
			controller.MyIP(ctx)
		case MsgAccurate:
			payload := ipPayload{}
			json.Unmarshal(msg.Payload, &payload) // nolint: errcheck
			controller.Accurate(ctx, payload.IP)
		case MsgPosition:
			pos := device.Position{}
			if err := json.Unmarshal(msg.Payload, &pos); err != nil {
				session.deliver(positionReply{err: device.ErrPositionUnavailable})

				continue
			}

			session.deliver(positionReply{position: pos})
		case MsgPositionError:
			payload := positionErrorPayload{}
			json.Unmarshal(msg.Payload, &payload) // nolint: errcheck
			session.logger.Info().Int("code", payload.Code).Str("message", payload.Message).Msg("Device position error")
			session.deliver(positionReply{err: device.FromCode(payload.Code)})
		default:
			session.logger.Warn().Str("type", msg.Type).Msg("Unknown message type")
		}
	}
}
