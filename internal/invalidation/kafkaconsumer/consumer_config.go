package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

// FromConfig derives consumer settings; brokers are shared with the
// event publisher.
func FromConfig(cfg config.Config) Config {
	return Config{
		Brokers:          splitCSV(cfg.Events.Brokers),
		Topic:            cfg.Invalidation.Topic,
		GroupID:          cfg.Invalidation.GroupID,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
	}
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
