package redisstore

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/sos-gateway/internal/cache/keys"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestSetGetDel_HappyPath(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "k1", []byte("v1"), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := rc.Get(ctx, "k1")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get got=%q ok=%v err=%v", got, ok, err)
	}

	_, ok, err = rc.Get(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("missing key must report ok=false without error; ok=%v err=%v", ok, err)
	}

	if err := rc.Del(ctx, "k1"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := rc.Get(ctx, "k1"); ok {
		t.Fatal("k1 should be gone after Del")
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected error on Set with canceled context")
	}
	if _, _, err := rc.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error on Get with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}

func TestNew_RequiresAddress(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestInvalidateOffering_DeletesOnlyThatOffering(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	for i := range 300 {
		k := keys.ObservationKey("river", []string{"temp"}, []string{strconv.Itoa(i)})
		if err := rc.Set(ctx, k, []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	lake := keys.ObservationKey("lake", []string{"temp"}, []string{"0"})
	_ = rc.Set(ctx, lake, []byte("y"), time.Minute)

	n, err := rc.InvalidateOffering(ctx, "river")
	if err != nil {
		t.Fatalf("InvalidateOffering: %v", err)
	}
	if n != 300 {
		t.Fatalf("deleted=%d want 300", n)
	}
	if got := len(mr.Keys()); got != 1 {
		t.Fatalf("remaining keys=%d want 1", got)
	}
	if !mr.Exists(lake) {
		t.Fatal("other offering's key was deleted")
	}
}

func TestInvalidateOffering_LargeOfferingThenEmpty(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	for i := range 1000 {
		k := keys.ObservationKey("river", []string{"temp"}, []string{strconv.Itoa(i)})
		if err := rc.Set(ctx, k, []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if n, err := rc.InvalidateOffering(ctx, "river"); err != nil || n != 1000 {
		t.Fatalf("first pass deleted=%d err=%v want 1000", n, err)
	}
	if got := len(mr.Keys()); got != 0 {
		t.Fatalf("remaining keys=%d want 0", got)
	}
	if n, err := rc.InvalidateOffering(ctx, "river"); err != nil || n != 0 {
		t.Fatalf("second pass deleted=%d err=%v want 0", n, err)
	}
}

func TestNew_OptionsApplied(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rc, err := New(context.Background(), mr.Addr(),
		WithPoolSize(7),
		WithDialTimeout(3*time.Second),
		WithReadTimeout(400*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	o := rc.rdb.Options()
	if o.PoolSize != 7 || o.DialTimeout != 3*time.Second || o.ReadTimeout != 400*time.Millisecond {
		t.Fatalf("options not applied: pool=%d dial=%v read=%v", o.PoolSize, o.DialTimeout, o.ReadTimeout)
	}
}
