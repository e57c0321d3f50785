package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMetricsMiddleware_PassesThrough(t *testing.T) {
	handler := HTTPMetricsMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/commands", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHTTPMetricsMiddleware_ImplicitOK(t *testing.T) {
	// A handler that writes the body without calling WriteHeader is a 200.
	handler := HTTPMetricsMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestStatusRecorder_CapturesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	sr.WriteHeader(http.StatusNotFound)

	if sr.status != http.StatusNotFound {
		t.Errorf("expected recorded status 404, got %d", sr.status)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected forwarded status 404, got %d", rec.Code)
	}
}
