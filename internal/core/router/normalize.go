package router

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/ogc"
)

const maxBodyBytes = 1 << 20

// Normalize reduces an HTTP request to the canonical model. GET and
// form-encoded POST requests are read as KVP; any other POST body is read
// as an XML request document.
func Normalize(r *http.Request) (model.Request, error) {
	if r.Method != http.MethodPost {
		return ParseKVP(r.URL.Query())
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return model.Request{}, ogc.NewInvalidParameterValue("request", "malformed form body")
		}
		return ParseKVP(r.Form)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return model.Request{}, fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ParseKVP(r.URL.Query())
	}
	return ParseXML(bytes.NewReader(body))
}

// lowerKeys merges parameters case-insensitively, keeping value order.
func lowerKeys(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, vs := range values {
		lk := strings.ToLower(k)
		out[lk] = append(out[lk], vs...)
	}
	return out
}

// ParseKVP normalizes key-value-pair parameters. Keys match
// case-insensitively; values are copied verbatim.
func ParseKVP(values url.Values) (model.Request, error) {
	kv := lowerKeys(values)
	get := func(k string) string {
		if vs := kv[k]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	req := model.Request{
		Operation:         strings.TrimSpace(get("request")),
		Service:           get("service"),
		Version:           get("version"),
		AcceptVersions:    get("acceptversions"),
		Offering:          get("offering"),
		FeatureOfInterest: get("featureofinterest"),
		ResponseFormat:    get("responseformat"),
		OutputFormat:      get("outputformat"),
		Unit:              get("unit"),
		Result:            get("result"),
		ResultModel:       get("resultmodel"),
		ResponseMode:      get("responsemode"),
	}
	req.ObservedProperties = splitList(kv["observedproperty"])
	req.Procedure = splitList(kv["procedure"])

	for _, raw := range kv["eventtime"] {
		te, err := parseEventTime(raw)
		if err != nil {
			return model.Request{}, err
		}
		req.EventTime = append(req.EventTime, te)
	}
	return req, nil
}

// splitList flattens repeated and comma separated values.
func splitList(vs []string) []string {
	var out []string
	for _, v := range vs {
		for p := range strings.SplitSeq(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func parseEventTime(raw string) (model.TimeExpr, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return model.TimeExpr{}, invalidEventTime(raw)
	}
	if strings.EqualFold(v, "latest") {
		return model.Latest(), nil
	}
	parts := strings.Split(v, "/")
	switch len(parts) {
	case 1:
		return model.Instant(v), nil
	case 2:
		start, end := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if start == "" || end == "" {
			return model.TimeExpr{}, invalidEventTime(raw)
		}
		return model.Period(start, end), nil
	default:
		return model.TimeExpr{}, invalidEventTime(raw)
	}
}

func invalidEventTime(raw string) error {
	return ogc.NewInvalidParameterValue("eventTime", raw)
}
