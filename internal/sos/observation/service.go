package observation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammed-shakir/sos-gateway/internal/cache"
	"github.com/mohammed-shakir/sos-gateway/internal/cache/admission"
	"github.com/mohammed-shakir/sos-gateway/internal/cache/keys"
	"github.com/mohammed-shakir/sos-gateway/internal/core/model"
	"github.com/mohammed-shakir/sos-gateway/internal/core/observability"
	"github.com/mohammed-shakir/sos-gateway/internal/events"
	"github.com/mohammed-shakir/sos-gateway/internal/logger"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

type Options struct {
	Table       string
	Cache       cache.Interface
	CacheDriver string
	CacheTTL    time.Duration
	Admission   admission.Policy
	Events      events.Sink
	Logger      *slog.Logger
}

type Service struct {
	tr     Translator
	cache  cache.Interface
	driver string
	ttl    time.Duration
	admit  admission.Policy
	events events.Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewService(o Options) *Service {
	s := &Service{
		tr:     NewTranslator(o.Table),
		cache:  o.Cache,
		driver: o.CacheDriver,
		ttl:    o.CacheTTL,
		admit:  o.Admission,
		events: o.Events,
		logger: o.Logger,
		now:    time.Now,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.driver == "" {
		s.driver = "none"
	}
	if s.admit == nil {
		s.admit = admission.Always{}
	}
	if s.events == nil {
		s.events = events.Discard{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Serve answers GetObservation with a JSON array of {time, value, property}.
func (s *Service) Serve(ctx context.Context, w http.ResponseWriter, sess storage.Session, req model.Request) error {
	plan, err := s.tr.Translate(ctx, sess, req)
	if err != nil {
		return err
	}

	key := keys.ObservationKey(plan.Offering, plan.Properties, plan.Windows)
	body, hit := s.lookup(ctx, key)
	rows := 0
	if !hit {
		obs, err := sess.Observations(ctx, plan.Query)
		if err != nil {
			return fmt.Errorf("get observations: %w", err)
		}
		if obs == nil {
			obs = []model.Observation{}
		}
		body, err = json.Marshal(obs)
		if err != nil {
			return fmt.Errorf("encode observations: %w", err)
		}
		rows = len(obs)
		s.store(ctx, plan.Offering, key, body)
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write observations: %w", err)
	}

	s.events.Publish(events.Event{
		Offering:   plan.Offering,
		Properties: plan.Properties,
		Windows:    len(plan.Windows),
		Rows:       rows,
		Cached:     hit,
		Version:    req.Version,
		RequestID:  logger.RequestID(ctx),
		TS:         s.now().UTC(),
	})
	s.logger.DebugContext(ctx, "observations served",
		"offering", plan.Offering, "rows", rows, "cached", hit)
	return nil
}

// lookup treats cache errors as misses.
func (s *Service) lookup(ctx context.Context, key string) ([]byte, bool) {
	if _, off := s.cache.(cache.Nop); off {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "observation cache get failed", "key", key, "err", err)
		observability.ObserveObservationCache(s.driver, "error")
		return nil, false
	case !ok:
		observability.ObserveObservationCache(s.driver, "miss")
		return nil, false
	default:
		observability.ObserveObservationCache(s.driver, "hit")
		return b, true
	}
}

func (s *Service) store(ctx context.Context, offering, key string, body []byte) {
	if _, off := s.cache.(cache.Nop); off {
		return
	}
	if !s.admit.Admit(offering) {
		observability.ObserveObservationCache(s.driver, "skipped")
		return
	}
	if err := s.cache.Set(ctx, key, body, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "observation cache set failed", "key", key, "err", err)
	}
}
