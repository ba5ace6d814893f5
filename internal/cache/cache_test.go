package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[int](5 * time.Second)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	now = now.Add(5 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry should expire at ttl")
	}
	if c.Size() != 1 {
		t.Fatalf("expired entry is dropped by CleanExpired, not Get")
	}

	c.Set("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Fatalf("Set should refresh expiry, got %v, %v", v, ok)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted entry still present")
	}
}

func TestTTLCacheCleanExpired(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewTTLCache[int](time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Second)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}

func TestManagerCleanup(t *testing.T) {
	c := NewTTLCache[int](time.Millisecond)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)

	cleaned := make(chan int, 1)
	m.StartCleanup(5*time.Millisecond, func(n int) {
		select {
		case cleaned <- n:
		default:
		}
	})
	defer m.Stop()

	select {
	case n := <-cleaned:
		if n != 1 {
			t.Fatalf("cleaned %d entries, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("cleanup never ran")
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	NewManager().Stop()
}

func TestLoaderCachesAndCollapses(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](time.Minute))

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := l.Get(context.Background(), "k", load)
			if err != nil || v != 42 {
				t.Errorf("Get = %v, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("load called %d times, want 1", n)
	}

	v, hit, err := l.Get(context.Background(), "k", load)
	if err != nil || v != 42 || !hit {
		t.Fatalf("expected cache hit, got %v %v %v", v, hit, err)
	}
}

func TestLoaderInvalidateFencesInflightLoad(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](time.Minute))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Get(context.Background(), "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()

	<-started
	l.Invalidate("k")
	close(release)
	<-done

	v, hit, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 2, nil })
	if err != nil || hit || v != 2 {
		t.Fatalf("stale value leaked into cache: v=%v hit=%v err=%v", v, hit, err)
	}
}

func TestLoaderErrorsAreNotCached(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](time.Minute))
	boom := errors.New("boom")

	if _, _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, hit, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || hit || v != 7 {
		t.Fatalf("unexpected %v %v %v", v, hit, err)
	}
}

func TestLoaderWithoutCache(t *testing.T) {
	l := NewLoader[int](nil)
	var calls int
	load := func(context.Context) (int, error) { calls++; return calls, nil }

	l.Get(context.Background(), "k", load)
	v, hit, _ := l.Get(context.Background(), "k", load)
	if hit || v != 2 {
		t.Fatalf("nil cache should always load, got %v hit=%v", v, hit)
	}
}

func TestLoaderLoadOutlivesCancelledCaller(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](time.Minute))

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		close(started)
		select {
		case <-release:
			return 5, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := l.Get(ctx, "k", load)
		done <- err
	}()
	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for the cancelled caller, got %v", err)
	}

	close(release)
	v, _, err := l.Get(context.Background(), "k", load)
	if err != nil || v != 5 {
		t.Fatalf("shared load should finish and fill the cache, got %v, %v", v, err)
	}
}
