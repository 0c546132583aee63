package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewSlog_CarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Service: "sos", Component: "test"}, &buf)
	log := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithOperation(ctx, "GetObservation")
	ctx = WithVersion(ctx, "2.0.0")
	log.InfoContext(ctx, "served", "rows", 3, "err", errors.New("boom"))

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log line is not json: %v\n%s", err, buf.String())
	}
	want := map[string]any{
		"msg":         "served",
		"request_id":  "req-1",
		"operation":   "GetObservation",
		"sos_version": "2.0.0",
		"service":     "sos",
		"component":   "test",
		"err":         "boom",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("field %q=%v want %v (line: %s)", k, rec[k], v, buf.String())
		}
	}
	if rec["rows"] != float64(3) {
		t.Fatalf("rows=%v want 3", rec["rows"])
	}
}

func TestBuild_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	log := NewSlog(&zl)
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %s", out)
	}
	Build(Config{Level: "info"}, &buf)
}

func TestWithRequestID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if v, _ := ctx.Value(ctxReqIDKey).(string); len(v) != 16 {
		t.Fatalf("expected generated 16-char id, got %q", v)
	}
}
