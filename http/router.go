package http

import (
	"github.com/julienschmidt/httprouter"

	"github.com/AwareRO/ipmap/http/handlers"
	"github.com/AwareRO/ipmap/http/middlewares"
	"github.com/AwareRO/ipmap/metrics"
)

// NewRouter mounts the widget page, its assets and the session endpoint.
// Every route is logged. Sessions are long lived, so /ws is counted by the
// sessions gauge instead of the request timer.
func NewRouter(widget *handlers.Widget, collector metrics.Collector, conf middlewares.MetricsConfig) *httprouter.Router {
	router := httprouter.New()
	router.SaveMatchedRoutePath = true

	logging := middlewares.WrapperFunc(func(next httprouter.Handle) httprouter.Handle {
		return middlewares.LogRequest(next)
	})
	wrappers := []middlewares.Wrapper{
		logging,
		middlewares.NewDurationMetricWrapper(collector, conf),
	}

	router.GET("/", middlewares.Chain(handlers.Index, wrappers...))
	router.GET("/static/*filepath", middlewares.Chain(handlers.Static(), wrappers...))
	router.GET("/ws", middlewares.Chain(widget.ServeWS, logging))
	router.GET("/healthz", handlers.Health)

	return router
}
