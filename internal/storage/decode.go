package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
)

// OfferingFromColumns maps one offerings-query row, keyed by lower-cased
// column name, onto an Offering.
func OfferingFromColumns(cols map[string]any) model.Offering {
	return model.Offering{
		ID:                 scalar(cols["id"]),
		Description:        scalar(cols["description"]),
		Name:               scalar(cols["name"]),
		Envelope:           ParseEnvelope(scalar(cols["envelope"])),
		Begin:              timeText(cols["time_begin"]),
		End:                timeText(cols["time_end"]),
		Procedure:          scalar(cols["procedure"]),
		Properties:         DecodeList(cols["properties"]),
		FeaturesOfInterest: DecodeList(cols["features_of_interest"]),
		ResponseFormats:    DecodeList(cols["response_formats"]),
		ResultModel:        scalar(cols["result_model"]),
		ResponseMode:       scalar(cols["response_mode"]),
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// timeText keeps sub-second precision; latest is matched by equality
// against the stored end.
func timeText(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return scalar(v)
}

// DecodeList accepts a native array value or its text encoding.
func DecodeList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			out = append(out, scalar(e))
		}
		return out
	case string:
		return DecodeTextArray(t)
	case []byte:
		return DecodeTextArray(string(t))
	default:
		return []string{scalar(t)}
	}
}

// DecodeTextArray decodes the array literal form {"a","b",c}. Quoted
// elements may contain commas and backslash escapes; unquoted NULL is
// dropped. Input without braces is returned as a single element.
func DecodeTextArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return []string{s}
	}
	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return nil
	}

	var (
		out    []string
		cur    strings.Builder
		quoted bool
		inQ    bool
		esc    bool
	)
	flush := func() {
		v := cur.String()
		if !quoted {
			v = strings.TrimSpace(v)
		}
		if quoted || !strings.EqualFold(v, "NULL") {
			out = append(out, v)
		}
		cur.Reset()
		quoted = false
	}
	for _, r := range body {
		switch {
		case esc:
			cur.WriteRune(r)
			esc = false
		case r == '\\':
			esc = true
		case r == '"':
			inQ = !inQ
			quoted = true
		case r == ',' && !inQ:
			flush()
		default:
			if !inQ && unicode.IsSpace(r) && (quoted || cur.Len() == 0) {
				continue
			}
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

var boxPattern = regexp.MustCompile(`^(?i)(?:SRID=(\d+);)?BOX(?:3D)?\(\s*([^,]+?)\s*,\s*([^)]+?)\s*\)$`)

// ParseEnvelope splits a BOX(x y,x y) literal into corners; anything else
// is kept verbatim.
func ParseEnvelope(s string) model.Envelope {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Envelope{}
	}
	m := boxPattern.FindStringSubmatch(s)
	if m == nil {
		return model.Envelope{Raw: s}
	}
	env := model.Envelope{LowerCorner: m[2], UpperCorner: m[3]}
	if m[1] != "" {
		env.SRSName = "urn:ogc:def:crs:EPSG::" + m[1]
	}
	return env
}
