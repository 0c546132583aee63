// Package invalidation decodes ingest notifications: a writer announces
// that observations of an offering changed, and cached results for that
// offering must go.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

// Event is one ingest notification. Properties is informational; the
// whole offering is invalidated.
type Event struct {
	Version    int       `json:"version"`
	Op         string    `json:"op"`
	Offering   string    `json:"offering"`
	Properties []string  `json:"properties,omitempty"`
	TS         time.Time `json:"ts"`
	Source     string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "insert", "update", "delete":
	default:
		return fmt.Errorf("op must be insert|update|delete")
	}
	if strings.TrimSpace(e.Offering) == "" {
		return fmt.Errorf("offering is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
