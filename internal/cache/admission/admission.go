// Package admission decides which observation responses are worth caching.
// Each offering carries an exponentially decaying request score; a response
// is admitted once its offering's score reaches the configured threshold.
package admission

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	numShards = 64

	// slack lets a burst of n requests reach a threshold of n even though
	// the earlier ones decayed slightly in between.
	slack = 0.01

	// Scores idle for this many half-lives are below 2^-16 and dropped.
	idleHalfLives = 16
)

// Policy is consulted on every cache miss.
type Policy interface {
	Admit(offering string) bool
}

// Always admits every response.
type Always struct{}

func (Always) Admit(string) bool { return true }

// Hot admits offerings whose decayed request rate reaches Threshold. At
// most a bounded number of offerings is tracked; the least recently
// requested are forgotten first.
type Hot struct {
	Threshold float64
	halfLife  float64
	now       func() time.Time
	shards    [numShards]shard
}

type shard struct {
	mu     sync.Mutex
	scores *expirable.LRU[string, score]
}

type score struct {
	value float64
	last  time.Time
}

// New returns Always when threshold is not positive. track bounds the
// number of offerings scored at once.
func New(threshold float64, halfLife time.Duration, track int) Policy {
	if threshold <= 0 {
		return Always{}
	}
	return newHot(threshold, halfLife, track)
}

func newHot(threshold float64, halfLife time.Duration, track int) *Hot {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	perShard := max(track/numShards, 1)
	h := &Hot{Threshold: threshold, halfLife: halfLife.Seconds(), now: time.Now}
	for i := range h.shards {
		h.shards[i].scores = expirable.NewLRU[string, score](perShard, nil, idleHalfLives*halfLife)
	}
	return h
}

// Admit records one request for offering and reports whether its score,
// including this request, reaches the threshold.
func (h *Hot) Admit(offering string) bool {
	return h.touch(offering) >= h.Threshold*(1-slack)
}

func (h *Hot) touch(offering string) float64 {
	s := h.pick(offering)
	now := h.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scores.Get(offering)
	if !ok {
		s.scores.Add(offering, score{value: 1, last: now})
		return 1
	}
	sc.value = decay(sc.value, now.Sub(sc.last).Seconds(), h.halfLife) + 1
	sc.last = now
	s.scores.Add(offering, sc)
	return sc.value
}

func (h *Hot) current(offering string) float64 {
	s := h.pick(offering)
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scores.Peek(offering)
	if !ok {
		return 0
	}
	return decay(sc.value, h.now().Sub(sc.last).Seconds(), h.halfLife)
}

func (h *Hot) tracked() int {
	n := 0
	for i := range h.shards {
		n += h.shards[i].scores.Len()
	}
	return n
}

func decay(v, dt, halfLife float64) float64 {
	if v == 0 || dt <= 0 || halfLife <= 0 {
		return v
	}
	return v * math.Exp(-math.Ln2/halfLife*dt)
}

func (h *Hot) pick(offering string) *shard {
	return &h.shards[xxhash.Sum64String(offering)&(numShards-1)]
}
