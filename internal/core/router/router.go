// Package router turns HTTP requests on the SOS resource into normalized
// requests, runs them through the dispatcher and renders the reply or the
// exception report.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/observability"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/sos-gateway/internal/logger"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

// Dispatcher serves a normalized, version-stamped request. Implementations
// must not write to w before they know the reply succeeds; a returned error
// is rendered as an exception report.
type Dispatcher interface {
	Dispatch(ctx context.Context, w http.ResponseWriter, sess storage.Session, req model.Request) error
}

// HandleSOS serves GET and POST requests on the SOS resource.
func HandleSOS(log *slog.Logger, cfg config.Config, store storage.Store, d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, cfg.Resource, sw.code, time.Since(start).Seconds())
		}()

		req, perr := Normalize(r)

		if cfg.Debug && debugRequested(r) {
			writeDebug(sw, cfg, req, perr, r)
			return
		}

		ctx := r.Context()
		sess, err := store.Acquire(ctx)
		if err != nil {
			log.ErrorContext(ctx, "storage acquire failed", "err", err)
			fail(ctx, log, sw, req, ogc.NewNoApplicableCode("storage unavailable"))
			return
		}
		defer sess.Release()

		if perr != nil {
			fail(ctx, log, sw, req, perr)
			return
		}

		req.Version = ogc.Negotiate(req.AcceptVersions, req.Version, cfg.Version, cfg.AcceptVersions)
		ctx = logger.WithOperation(ctx, req.Operation)
		ctx = logger.WithVersion(ctx, req.Version)

		if err := d.Dispatch(ctx, sw, sess, req); err != nil {
			fail(ctx, log, sw, req, err)
			return
		}
		observability.ObserveOperation(req.Operation, req.Version, "ok")
		log.DebugContext(ctx, "sos request served", "status", sw.code, "took", time.Since(start))
	}
}

func fail(ctx context.Context, log *slog.Logger, sw *statusWriter, req model.Request, err error) {
	ex := ogc.AsException(err)
	observability.ObserveOperation(req.Operation, req.Version, string(ex.Code))
	if sw.wrote {
		// headers are gone; the client sees a truncated body
		log.ErrorContext(ctx, "error after response started", "err", err)
		return
	}
	if ex.Code == ogc.NoApplicableCode {
		log.ErrorContext(ctx, "sos request failed", "err", err)
	} else {
		log.InfoContext(ctx, "sos exception", "code", string(ex.Code), "locator", ex.Locator)
	}
	WriteException(sw, ex)
}

// WriteException renders ex as an ows:ExceptionReport with its HTTP status.
func WriteException(w http.ResponseWriter, ex *ogc.Exception) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(ex.HTTPStatus())
	_ = ogc.WriteExceptionReport(w, ex)
}

func debugRequested(r *http.Request) bool {
	for k, vs := range r.URL.Query() {
		if !strings.EqualFold(k, "debug") {
			continue
		}
		for _, v := range vs {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "", "0", "f", "false", "n", "no", "off":
			default:
				return true
			}
		}
	}
	return false
}

type debugEcho struct {
	Config  config.Config  `json:"config"`
	Request *model.Request `json:"request,omitempty"`
	Error   *ogc.Exception `json:"error,omitempty"`
	Env     debugEnv       `json:"env"`
}

type debugEnv struct {
	Method     string              `json:"method"`
	URL        string              `json:"url"`
	Proto      string              `json:"proto"`
	RemoteAddr string              `json:"remote_addr"`
	Host       string              `json:"host"`
	Headers    map[string][]string `json:"headers"`
}

func writeDebug(w http.ResponseWriter, cfg config.Config, req model.Request, perr error, r *http.Request) {
	out := debugEcho{
		Config: cfg.Redacted(),
		Env: debugEnv{
			Method:     r.Method,
			URL:        r.URL.String(),
			Proto:      r.Proto,
			RemoteAddr: r.RemoteAddr,
			Host:       r.Host,
			Headers:    r.Header.Clone(),
		},
	}
	if perr != nil {
		out.Error = ogc.AsException(perr)
	} else {
		out.Request = &req
	}
	delete(out.Env.Headers, "Authorization")
	delete(out.Env.Headers, "Cookie")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

type statusWriter struct {
	http.ResponseWriter
	code  int
	wrote bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.code = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
