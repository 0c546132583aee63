package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

type nopSession struct{}

func (nopSession) Offerings(context.Context) ([]model.Offering, error) { return nil, nil }
func (nopSession) Offering(context.Context, string) (model.Offering, error) {
	return model.Offering{}, storage.ErrOfferingNotFound
}
func (nopSession) ObservedProperties(context.Context) ([]string, error) { return nil, nil }
func (nopSession) Observations(context.Context, storage.Query) ([]model.Observation, error) {
	return nil, nil
}
func (nopSession) Release() {}

type nopStore struct{}

func (nopStore) Acquire(context.Context) (storage.Session, error) { return nopSession{}, nil }
func (nopStore) Ping(context.Context) error                       { return nil }
func (nopStore) Close()                                           {}

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(_ context.Context, w http.ResponseWriter, _ storage.Session, req model.Request) error {
	_, _ = io.WriteString(w, req.Operation)
	return nil
}

func TestNewHandler_Routes(t *testing.T) {
	cfg := config.Defaults()
	h := NewHandler(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nopStore{}, echoDispatcher{}, nil)

	cases := []struct {
		method, target, body string
		code                 int
		contains             string
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK, "ok"},
		{http.MethodGet, "/readyz", "", http.StatusOK, "ready"},
		{http.MethodGet, "/sos?request=GetCapabilities", "", http.StatusOK, "GetCapabilities"},
		{http.MethodPost, "/sos", `<GetCapabilities service="SOS"/>`, http.StatusOK, "GetCapabilities"},
		{http.MethodOptions, "/sos", "", http.StatusNoContent, ""},
		{http.MethodGet, "/metrics", "", http.StatusOK, "http_requests_total"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tc.code {
			t.Fatalf("%s %s: status=%d want %d", tc.method, tc.target, rr.Code, tc.code)
		}
		if !strings.Contains(rr.Body.String(), tc.contains) {
			t.Fatalf("%s %s: body missing %q", tc.method, tc.target, tc.contains)
		}
	}
}
