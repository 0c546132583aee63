package admission

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newHotForTest(threshold float64, hl time.Duration) (*Hot, *fakeClock) {
	fc := &fakeClock{now: time.Unix(0, 0).UTC()}
	h := newHot(threshold, hl, 1024)
	h.now = fc.Now
	return h, fc
}

func almostEq(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got=%g want=%g", got, want)
	}
}

func TestNew_NonPositiveThresholdAlwaysAdmits(t *testing.T) {
	p := New(0, time.Minute, 16)
	if _, ok := p.(Always); !ok {
		t.Fatalf("want Always, got %T", p)
	}
	if !p.Admit("river") {
		t.Fatalf("Always must admit")
	}
}

func TestHot_AdmitsOnceThresholdReached(t *testing.T) {
	h, _ := newHotForTest(3, time.Minute)
	for i := range 2 {
		if h.Admit("river") {
			t.Fatalf("request %d admitted below threshold", i+1)
		}
	}
	if !h.Admit("river") {
		t.Fatalf("third request should reach threshold")
	}
	if h.Admit("lake") {
		t.Fatalf("scores must be per offering")
	}
}

func TestHot_BurstReachesThresholdDespiteDecay(t *testing.T) {
	h, fc := newHotForTest(2, time.Minute)
	h.Admit("river")
	fc.Add(100 * time.Millisecond)
	if !h.Admit("river") {
		t.Fatalf("two requests 100ms apart should reach threshold 2, score=%g", h.current("river"))
	}

	h.Admit("lake")
	fc.Add(30 * time.Second)
	if h.Admit("lake") {
		t.Fatalf("requests half a half-life apart must not reach threshold 2")
	}
}

func TestHot_RealClockBurst(t *testing.T) {
	p := New(2, time.Hour, 16)
	p.Admit("river")
	if !p.Admit("river") {
		t.Fatalf("back to back requests should reach threshold 2")
	}
}

func TestHot_ScoreHalvesAfterHalfLife(t *testing.T) {
	h, fc := newHotForTest(10, time.Minute)
	h.Admit("river")
	h.Admit("river")
	almostEq(t, h.current("river"), 2)

	fc.Add(time.Minute)
	almostEq(t, h.current("river"), 1)

	h.Admit("river")
	almostEq(t, h.current("river"), 2)
}

func TestHot_TrackedOfferingsAreBounded(t *testing.T) {
	h, _ := newHotForTest(5, time.Minute)
	for i := range 100_000 {
		h.Admit(fmt.Sprintf("bogus-%d", i))
	}
	if n := h.tracked(); n > 1024 {
		t.Fatalf("tracked offerings=%d want <= 1024", n)
	}
}

func TestHot_ConcurrentAdmit(t *testing.T) {
	h, _ := newHotForTest(1000, time.Hour)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.Admit("river")
			}
		}()
	}
	wg.Wait()
	almostEq(t, h.current("river"), 800)
}
