package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bank-auth/pkg/utilities"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// statusRecorder remembers the first status written and counts body bytes.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// LoggingMiddleware logs one line per request tagged with its request id.
// Matched requests are logged by route pattern so tokens carried in the
// path (activation, password reset) stay out of the logs. Server errors log
// at error level, client errors at info and the rest at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r)
			if sr.status == 0 {
				sr.status = http.StatusOK
			}

			route := r.Pattern
			if route == "" {
				route = r.Method + " (unmatched)"
			}
			kv := []any{
				"request_id", r.Header.Get(RequestIDHeader),
				"route", route,
				"status", sr.status,
				"bytes", sr.bytes,
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			}
			switch {
			case sr.status >= http.StatusInternalServerError:
				logger.Errorw("http request failed", kv...)
			case sr.status >= http.StatusBadRequest:
				logger.Infow("http request rejected", kv...)
			default:
				logger.Debugw("http request", kv...)
			}
		})
	}
}

// apiHeaders are sent on every response. Bodies are JSON that may carry
// account data and cookies carry tokens, so nothing is cached or framed.
var apiHeaders = map[string]string{
	"Cache-Control":           "no-store",
	"Pragma":                  "no-cache",
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Permissions-Policy":      "camera=(), microphone=(), geolocation=()",
}

// SecurityHeadersMiddleware sets apiHeaders, plus HSTS on TLS connections.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range apiHeaders {
				h.Set(k, v)
			}
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a snowflake id.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = utilities.NewSnowflakeID()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// Mounter registers its routes under an API prefix.
type Mounter interface {
	Routes(mux *http.ServeMux, prefix string)
}

// RegisterRoutes mounts the health check and every feature handler on a
// standard library http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, prefix string, handlers ...Mounter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, h := range handlers {
		h.Routes(mux, prefix)
	}

	// request id first so the logging middleware can see it
	return RequestIDMiddleware()(LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux)))
}
