// Package observation serves GetObservation: it turns a normalized request
// into a bound query over the observations table and renders the rows as
// JSON.
package observation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

// Plan is a resolved GetObservation query. Windows holds one canonical
// text per time disjunct, after latest resolution.
type Plan struct {
	Offering   string
	Properties []string
	Windows    []string
	Query      storage.Query
}

type Translator struct {
	table string
}

// NewTranslator takes the observations table name as configured; it is
// identifier-quoted here.
func NewTranslator(table string) Translator {
	return Translator{table: storage.QuoteTable(table)}
}

// Translate validates req and resolves it into a Plan. Storage is only
// consulted to resolve latest, and only once all required fields are set.
func (t Translator) Translate(ctx context.Context, sess storage.Session, req model.Request) (Plan, error) {
	switch {
	case strings.TrimSpace(req.Offering) == "":
		return Plan{}, ogc.NewMissingParameter("offering")
	case len(req.ObservedProperties) == 0:
		return Plan{}, ogc.NewMissingParameter("observedProperty")
	case len(req.EventTime) == 0:
		return Plan{}, ogc.NewMissingParameter("eventTime")
	}

	var latest *time.Time
	resolveLatest := func() (time.Time, error) {
		if latest != nil {
			return *latest, nil
		}
		off, err := sess.Offering(ctx, req.Offering)
		if err != nil {
			if storage.IsNotFound(err) {
				return time.Time{}, ogc.NewInvalidParameterValue("offering", req.Offering)
			}
			return time.Time{}, fmt.Errorf("resolve latest: %w", err)
		}
		ts, err := ParseTime(off.End)
		if err != nil {
			return time.Time{}, ogc.NewInvalidParameterValue("eventTime", "latest")
		}
		latest = &ts
		return ts, nil
	}

	args := []any{req.Offering}
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	props := make([]string, 0, len(req.ObservedProperties))
	for _, p := range req.ObservedProperties {
		props = append(props, "property = "+bind(p))
	}

	var windows, preds []string
	for _, te := range req.EventTime {
		switch te.Kind {
		case model.TimeLatest:
			ts, err := resolveLatest()
			if err != nil {
				return Plan{}, err
			}
			windows = append(windows, ts.Format(time.RFC3339Nano))
			preds = append(preds, "time = "+bind(ts))
		case model.TimeInstant:
			ts, err := parseEventTime(te.Value)
			if err != nil {
				return Plan{}, err
			}
			windows = append(windows, ts.Format(time.RFC3339Nano))
			preds = append(preds, "time = "+bind(ts))
		case model.TimePeriod:
			start, err := parseEventTime(te.Start)
			if err != nil {
				return Plan{}, err
			}
			end, err := parseEventTime(te.End)
			if err != nil {
				return Plan{}, err
			}
			if end.Before(start) {
				return Plan{}, ogc.NewInvalidParameterValue("eventTime", te.Start+"/"+te.End)
			}
			windows = append(windows, start.Format(time.RFC3339Nano)+"/"+end.Format(time.RFC3339Nano))
			preds = append(preds, "time BETWEEN "+bind(start)+" AND "+bind(end))
		default:
			return Plan{}, ogc.NewInvalidParameterValue("eventTime", te.Kind.String())
		}
	}

	sql := "SELECT time, value, property FROM " + t.table +
		" WHERE offering = $1" +
		" AND (" + strings.Join(props, " OR ") + ")" +
		" AND (" + strings.Join(preds, " OR ") + ")" +
		" ORDER BY time ASC"

	return Plan{
		Offering:   req.Offering,
		Properties: append([]string(nil), req.ObservedProperties...),
		Windows:    windows,
		Query:      storage.Query{SQL: sql, Args: args},
	}, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 and the common date-only and zone-less
// forms. Zone-less values are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func parseEventTime(s string) (time.Time, error) {
	ts, err := ParseTime(s)
	if err != nil {
		return time.Time{}, ogc.NewInvalidParameterValue("eventTime", s)
	}
	return ts, nil
}
