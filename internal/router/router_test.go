package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type pingHandler struct{ prefix string }

func (p *pingHandler) Routes(mux *http.ServeMux, prefix string) {
	p.prefix = prefix
	mux.HandleFunc("GET "+prefix+"/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func TestRegisterRoutesMountsHandlers(t *testing.T) {
	ph := &pingHandler{}
	h := RegisterRoutes(zap.NewNop().Sugar(), "/api/v1", ph)
	if ph.prefix != "/api/v1" {
		t.Fatalf("prefix = %q", ph.prefix)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	for k, v := range apiHeaders {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("request id missing")
	}
}

func TestHealth(t *testing.T) {
	h := RegisterRoutes(zap.NewNop().Sugar(), "/api/v1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequestIDIsKept(t *testing.T) {
	h := RegisterRoutes(zap.NewNop().Sugar(), "/api/v1")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

type tokenHandler struct{}

func (tokenHandler) Routes(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+prefix+"/auth/activate/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
}

func TestLoggingMiddlewareTagsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := RegisterRoutes(zap.New(core).Sugar(), "/api/v1", tokenHandler{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/activate/secret.jwt.value", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http request rejected").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" {
		t.Errorf("request_id = %v", fields["request_id"])
	}
	if fields["route"] != "GET /api/v1/auth/activate/{token}" {
		t.Errorf("route = %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusBadRequest) {
		t.Errorf("status = %v (%T)", fields["status"], fields["status"])
	}
	for k, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(s, "secret.jwt.value") {
			t.Errorf("field %s leaks the path token: %q", k, s)
		}
	}
}

func TestLoggingMiddlewareGeneratedID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := RegisterRoutes(zap.New(core).Sugar(), "/api/v1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != rec.Header().Get(RequestIDHeader) || got == "" {
		t.Fatalf("request_id = %v, header = %q", got, rec.Header().Get(RequestIDHeader))
	}
}
