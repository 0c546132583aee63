// Package sos routes normalized requests to the SOS operation handlers.
package sos

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

// Handler serves one operation. It must not write to w unless it succeeds.
type Handler interface {
	Serve(ctx context.Context, w http.ResponseWriter, sess storage.Session, req model.Request) error
}

type HandlerFunc func(ctx context.Context, w http.ResponseWriter, sess storage.Session, req model.Request) error

func (f HandlerFunc) Serve(ctx context.Context, w http.ResponseWriter, sess storage.Session, req model.Request) error {
	return f(ctx, w, sess, req)
}

type route struct {
	operation string
	handler   Handler // nil: recognized but not implemented
}

type Dispatcher struct {
	routes []route
	logger *slog.Logger
}

// NewDispatcher builds the route table. Longer names that share a prefix
// with GetObservation come before it.
func NewDispatcher(capabilities, observation Handler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		routes: []route{
			{"GetCapabilities", capabilities},
			{"DescribeSensor", nil},
			{"GetObservationById", nil},
			{"GetFeatureOfInterest", nil},
			{"GetObservation", observation},
			{"InsertSensor", nil},
			{"DeleteSensor", nil},
			{"UpdateSensorDescription", nil},
			{"InsertObservation", nil},
			{"InsertResultTemplate", nil},
			{"InsertResult", nil},
			{"GetResultTemplate", nil},
			{"GetResult", nil},
			{"DescribeFeatureType", nil},
		},
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, w http.ResponseWriter, sess storage.Session, req model.Request) error {
	op := strings.TrimSpace(req.Operation)
	if op == "" {
		return ogc.NewMissingParameterValue("request")
	}
	if req.Service != "" && !strings.EqualFold(req.Service, ogc.ServiceSOS) {
		return ogc.NewInvalidParameterValue("service", req.Service)
	}

	rt, ok := d.match(op)
	if !ok {
		return ogc.NewInvalidParameterValue("request", op)
	}
	if rt.handler == nil {
		d.logger.DebugContext(ctx, "stub operation requested", "operation", rt.operation)
		return ogc.NewNotImplemented(rt.operation)
	}
	req.Operation = rt.operation
	return rt.handler.Serve(ctx, w, sess, req)
}

// match compares the whole token, ignoring case, in table order.
func (d *Dispatcher) match(op string) (route, bool) {
	for _, rt := range d.routes {
		if strings.EqualFold(op, rt.operation) {
			return rt, true
		}
	}
	return route{}, false
}
