package observation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mohammed-shakir/sos-gateway/internal/cache/admission"
	"github.com/mohammed-shakir/sos-gateway/internal/cache/memory"
	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
	"github.com/mohammed-shakir/sos-gateway/internal/events"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

// spySession records every storage call.
type spySession struct {
	offering      model.Offering
	offeringErr   error
	rows          []model.Observation
	offeringCalls int
	queries       []storage.Query
}

func (s *spySession) Offerings(context.Context) ([]model.Offering, error) {
	return []model.Offering{s.offering}, nil
}

func (s *spySession) Offering(_ context.Context, id string) (model.Offering, error) {
	s.offeringCalls++
	if s.offeringErr != nil {
		return model.Offering{}, s.offeringErr
	}
	if id != s.offering.ID {
		return model.Offering{}, storage.ErrOfferingNotFound
	}
	return s.offering, nil
}

func (s *spySession) ObservedProperties(context.Context) ([]string, error) { return nil, nil }

func (s *spySession) Observations(_ context.Context, q storage.Query) ([]model.Observation, error) {
	s.queries = append(s.queries, q)
	return s.rows, nil
}

func (s *spySession) Release() {}

type recordingSink struct{ events []events.Event }

func (r *recordingSink) Publish(ev events.Event) { r.events = append(r.events, ev) }

func river() model.Offering {
	return model.Offering{ID: "river", Begin: "2020-01-01T00:00:00Z", End: "2020-06-01T12:00:00Z"}
}

func TestTranslate_MissingFieldsNeverTouchStorage(t *testing.T) {
	cases := []struct {
		req     model.Request
		locator string
	}{
		{model.Request{ObservedProperties: []string{"temp"}, EventTime: []model.TimeExpr{model.Latest()}}, "offering"},
		{model.Request{Offering: "river", EventTime: []model.TimeExpr{model.Latest()}}, "observedProperty"},
		{model.Request{Offering: "river", ObservedProperties: []string{"temp"}}, "eventTime"},
	}
	for _, tc := range cases {
		sess := &spySession{offering: river()}
		_, err := NewTranslator("observations").Translate(context.Background(), sess, tc.req)
		var ex *ogc.Exception
		if !errors.As(err, &ex) || ex.Code != ogc.MissingParameter || ex.Locator != tc.locator {
			t.Fatalf("%s: got %v", tc.locator, err)
		}
		if sess.offeringCalls != 0 || len(sess.queries) != 0 {
			t.Fatalf("%s: storage was queried", tc.locator)
		}
	}
}

func TestTranslate_BoundQuery(t *testing.T) {
	sess := &spySession{offering: river()}
	req := model.Request{
		Offering:           "river",
		ObservedProperties: []string{"temp", "level"},
		EventTime: []model.TimeExpr{
			model.Period("2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z"),
			model.Instant("2020-03-01"),
		},
	}
	plan, err := NewTranslator("public.observations").Translate(context.Background(), sess, req)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	wantSQL := `SELECT time, value, property FROM "public"."observations"` +
		` WHERE offering = $1 AND (property = $2 OR property = $3)` +
		` AND (time BETWEEN $4 AND $5 OR time = $6) ORDER BY time ASC`
	if plan.Query.SQL != wantSQL {
		t.Fatalf("sql:\n got %s\nwant %s", plan.Query.SQL, wantSQL)
	}
	wantArgs := []any{
		"river", "temp", "level",
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(wantArgs, plan.Query.Args); diff != "" {
		t.Fatalf("args (-want +got):\n%s", diff)
	}
	if sess.offeringCalls != 0 {
		t.Fatal("offering looked up without latest")
	}
}

func TestTranslate_ClientValuesNeverInSQL(t *testing.T) {
	sess := &spySession{offering: model.Offering{ID: "x' OR 1=1 --"}}
	req := model.Request{
		Offering:           "x' OR 1=1 --",
		ObservedProperties: []string{"temp'; DROP TABLE observations; --"},
		EventTime:          []model.TimeExpr{model.Instant("2020-01-01T00:00:00Z")},
	}
	plan, err := NewTranslator("observations").Translate(context.Background(), sess, req)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if strings.Contains(plan.Query.SQL, "'") || strings.Contains(plan.Query.SQL, "DROP") {
		t.Fatalf("client value leaked into sql: %s", plan.Query.SQL)
	}
}

func TestTranslate_LatestResolvesToOfferingEnd(t *testing.T) {
	sess := &spySession{offering: river()}
	req := model.Request{
		Offering:           "river",
		ObservedProperties: []string{"temp"},
		EventTime:          []model.TimeExpr{model.Latest(), model.Latest()},
	}
	plan, err := NewTranslator("observations").Translate(context.Background(), sess, req)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	end := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	if diff := cmp.Diff([]any{"river", "temp", end, end}, plan.Query.Args); diff != "" {
		t.Fatalf("args (-want +got):\n%s", diff)
	}
	if !strings.Contains(plan.Query.SQL, "(time = $3 OR time = $4)") {
		t.Fatalf("latest not treated as instant: %s", plan.Query.SQL)
	}
	if sess.offeringCalls != 1 {
		t.Fatalf("offering lookups=%d want 1", sess.offeringCalls)
	}
	if plan.Windows[0] != "2020-06-01T12:00:00Z" {
		t.Fatalf("window=%q", plan.Windows[0])
	}
}

func TestTranslate_LatestKeepsSubSecondEnd(t *testing.T) {
	end := time.Date(2020, 6, 1, 12, 0, 0, 250_000_000, time.UTC)
	off := storage.OfferingFromColumns(map[string]any{"id": "river", "time_end": end})
	sess := &spySession{offering: off}
	req := model.Request{
		Offering:           "river",
		ObservedProperties: []string{"temp"},
		EventTime:          []model.TimeExpr{model.Latest()},
	}
	plan, err := NewTranslator("observations").Translate(context.Background(), sess, req)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got, ok := plan.Query.Args[2].(time.Time); !ok || !got.Equal(end) {
		t.Fatalf("latest bound to %v want %v", plan.Query.Args[2], end)
	}
}

func TestTranslate_LatestUnknownOffering(t *testing.T) {
	sess := &spySession{offering: river()}
	req := model.Request{
		Offering:           "lake",
		ObservedProperties: []string{"temp"},
		EventTime:          []model.TimeExpr{model.Latest()},
	}
	_, err := NewTranslator("observations").Translate(context.Background(), sess, req)
	ex := ogc.AsException(err)
	if ex.Code != ogc.InvalidParameterValue || ex.Locator != "offering" {
		t.Fatalf("got %v", err)
	}
}

func TestTranslate_InvalidTimes(t *testing.T) {
	for _, te := range []model.TimeExpr{
		model.Instant("yesterday"),
		model.Period("2020-01-02T00:00:00Z", "2020-01-01T00:00:00Z"),
	} {
		req := model.Request{Offering: "river", ObservedProperties: []string{"temp"}, EventTime: []model.TimeExpr{te}}
		_, err := NewTranslator("observations").Translate(context.Background(), &spySession{}, req)
		ex := ogc.AsException(err)
		if ex.Code != ogc.InvalidParameterValue || ex.Locator != "eventTime" {
			t.Fatalf("%+v: got %v", te, err)
		}
	}
}

func TestParseTime_Forms(t *testing.T) {
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2020-01-01", "2020-01-01T00:00:00Z", "2020-01-01T01:00:00+01:00", "2020-01-01 00:00:00", "2020-01-01 00:00:00+00"} {
		got, err := ParseTime(s)
		if err != nil {
			t.Fatalf("%q: %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %v", s, got)
		}
	}
}

func serviceFor(sink events.Sink) *Service {
	return NewService(Options{
		Table:       "observations",
		Cache:       memory.New(16, time.Minute),
		CacheDriver: "memory",
		CacheTTL:    time.Minute,
		Events:      sink,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestServe_WritesJSONAndCaches(t *testing.T) {
	v := 12.5
	sess := &spySession{
		offering: river(),
		rows: []model.Observation{
			{Time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: &v, Property: "temp"},
			{Time: time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC), Property: "temp"},
		},
	}
	sink := &recordingSink{}
	svc := serviceFor(sink)
	req := model.Request{
		Offering:           "river",
		ObservedProperties: []string{"temp"},
		EventTime:          []model.TimeExpr{model.Period("2020-01-01", "2020-01-02")},
		Version:            "2.0.0",
	}

	rr := httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rr, sess, req); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type=%q", ct)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}

	var got []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0]["value"] != 12.5 || got[1]["value"] != nil || got[0]["property"] != "temp" {
		t.Fatalf("unexpected rows: %v", got)
	}

	rr2 := httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rr2, sess, req); err != nil {
		t.Fatalf("second serve: %v", err)
	}
	if len(sess.queries) != 1 {
		t.Fatalf("storage queries=%d want 1 (second served from cache)", len(sess.queries))
	}
	if rr2.Body.String() != rr.Body.String() {
		t.Fatal("cached body differs")
	}

	if len(sink.events) != 2 || sink.events[0].Cached || !sink.events[1].Cached || sink.events[0].Rows != 2 {
		t.Fatalf("unexpected events: %+v", sink.events)
	}
}

func TestServe_AdmissionDefersCaching(t *testing.T) {
	sess := &spySession{offering: river()}
	mc := memory.New(16, time.Minute)
	svc := NewService(Options{
		Table:       "observations",
		Cache:       mc,
		CacheDriver: "memory",
		Admission:   admission.New(2, time.Hour, 64),
	})
	req := model.Request{
		Offering:           "river",
		ObservedProperties: []string{"temp"},
		EventTime:          []model.TimeExpr{model.Instant("2020-01-01T00:00:00Z")},
	}
	for range 3 {
		if err := svc.Serve(context.Background(), httptest.NewRecorder(), sess, req); err != nil {
			t.Fatalf("serve: %v", err)
		}
	}
	if len(sess.queries) != 2 || mc.Len() != 1 {
		t.Fatalf("queries=%d cached=%d want 2 and 1", len(sess.queries), mc.Len())
	}
}

func TestServe_EmptyResultIsArray(t *testing.T) {
	sess := &spySession{offering: river()}
	svc := NewService(Options{Table: "observations"})
	req := model.Request{
		Offering:           "river",
		ObservedProperties: []string{"temp"},
		EventTime:          []model.TimeExpr{model.Instant("2020-01-01T00:00:00Z")},
	}
	rr := httptest.NewRecorder()
	if err := svc.Serve(context.Background(), rr, sess, req); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("body=%q want []", rr.Body.String())
	}
}

func TestServe_MissingEventTimeWritesNothing(t *testing.T) {
	sess := &spySession{offering: river()}
	svc := NewService(Options{Table: "observations"})
	rr := httptest.NewRecorder()
	err := svc.Serve(context.Background(), rr, sess, model.Request{Offering: "river", ObservedProperties: []string{"temp"}})
	if ogc.AsException(err).Code != ogc.MissingParameter {
		t.Fatalf("got %v", err)
	}
	if len(sess.queries) != 0 || rr.Body.Len() != 0 {
		t.Fatal("storage queried or body written")
	}
}
