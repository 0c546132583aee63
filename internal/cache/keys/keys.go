// Package keys derives stable cache keys for resolved observation queries.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// ObservationKey identifies one resolved GetObservation query. Property
// and window order are part of the key.
func ObservationKey(offering string, properties, windows []string) string {

	d := xxhash.New()
	_, _ = d.WriteString(strings.TrimSpace(offering))
	_, _ = d.WriteString("\x00p")
	for _, p := range properties {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(strings.TrimSpace(p))
	}
	_, _ = d.WriteString("\x00t")
	for _, w := range windows {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(w)
	}

	return fmt.Sprintf("%sn=%d:t=%d:h=%016x", OfferingPrefix(offering), len(properties), len(windows), d.Sum64())
}

// OfferingPrefix is the prefix shared by every key of one offering. Ids
// that sanitize to the same text share a prefix.
func OfferingPrefix(offering string) string {
	off := sanitize(strings.TrimSpace(offering))
	const maxOfferingLen = 96
	if len(off) > maxOfferingLen {
		off = off[:maxOfferingLen]
	}
	return "obs:" + off + ":"
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
