package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billingengine/pkg/trace"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeConn bool

func (c fakeConn) IsConnected() bool { return bool(c) }

func serve(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		db   Pinger
		mq   ConnChecker
		want int
	}{
		{"ready", fakePinger{}, fakeConn(true), http.StatusOK},
		{"db down", fakePinger{err: errors.New("refused")}, fakeConn(true), http.StatusServiceUnavailable},
		{"mq down", fakePinger{}, fakeConn(false), http.StatusServiceUnavailable},
		{"no mq", fakePinger{}, nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewHealthRouter(tc.db, tc.mq, zap.NewNop())
			if w := serve(r, http.MethodGet, "/readyz", nil); w.Code != tc.want {
				t.Fatalf("code = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewHealthRouter(fakePinger{}, nil, zap.NewNop())

	if w := serve(r, http.MethodHead, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("HEAD /healthz = %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_request_duration_seconds") {
		t.Fatalf("metrics code = %d", w.Code)
	}
}

func TestTraceHeaderIsEchoedOrGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewHealthRouter(fakePinger{}, nil, zap.NewNop())

	w := serve(r, http.MethodGet, "/healthz", http.Header{trace.HeaderName: {"abc123"}})
	if got := w.Header().Get(trace.HeaderName); got != "abc123" {
		t.Fatalf("trace header = %q", got)
	}
	// header names are case-insensitive on the wire
	w = serve(r, http.MethodGet, "/healthz", http.Header{"x-trace-id": {"lower456"}})
	if got := w.Header().Get(trace.HeaderName); got != "lower456" {
		t.Fatalf("lower-case trace header = %q", got)
	}
	w = serve(r, http.MethodGet, "/healthz", nil)
	if got := w.Header().Get(trace.HeaderName); len(got) != 32 {
		t.Fatalf("generated trace id = %q", got)
	}
}
