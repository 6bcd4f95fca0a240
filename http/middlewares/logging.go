package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/AwareRO/ipmap/http/identity"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

type ExtraField func(r *http.Request, params httprouter.Params) (string, string)

var isCrawlerUA = identity.NewMileusna()

// ClientIP returns the first X-Forwarded-For hop, or the remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func IsCrawler(r *http.Request) bool {
	return isCrawlerUA(r.UserAgent())
}

func LogRequest(nextHandler httprouter.Handle, extras ...ExtraField) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		logger := log.Info().
			Str("endpoint", r.URL.Path).
			Str("method", r.Method).
			Str("ip", ClientIP(r)).
			Str("crawler", fmt.Sprintf("%v", IsCrawler(r)))
		for _, extra := range extras {
			logger = logger.Str(extra(r, params))
		}
		logger.Msg("Got request")
		nextHandler(w, r, params)
	}
}
