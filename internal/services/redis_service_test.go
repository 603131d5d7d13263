package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dytto/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func newTestRedis(t *testing.T, lockTimeout time.Duration) (*RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewRedisServiceFromClient(client, lockTimeout)
	t.Cleanup(func() { svc.Close() })
	return svc, mr
}

func TestRedisService_AcquireAndRelease(t *testing.T) {
	svc, mr := newTestRedis(t, time.Second)
	ctx := context.Background()

	ok, err := svc.AcquireLock(ctx, "lock:a", "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Expected lock acquired, got %v (err: %v)", ok, err)
	}
	ok, _ = svc.AcquireLock(ctx, "lock:a", "owner-2", time.Minute)
	if ok {
		t.Error("Expected second owner to be refused")
	}

	released, err := svc.ReleaseLock(ctx, "lock:a", "owner-2")
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if released {
		t.Error("Expected release by a non-owner to be ignored")
	}

	released, _ = svc.ReleaseLock(ctx, "lock:a", "owner-1")
	if !released {
		t.Error("Expected owner release to succeed")
	}
	if mr.Exists("lock:a") {
		t.Error("Expected lock key to be deleted")
	}
}

func TestRedisService_WithLock(t *testing.T) {
	svc, mr := newTestRedis(t, time.Second)

	ran := false
	err := svc.WithLock(context.Background(), "lock:b", func() error {
		ran = true
		if !mr.Exists("lock:b") {
			t.Error("Expected lock to be held while fn runs")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}
	if !ran {
		t.Error("Expected fn to run")
	}
	if mr.Exists("lock:b") {
		t.Error("Expected lock released after fn")
	}

	fnErr := errors.New("boom")
	if err := svc.WithLock(context.Background(), "lock:b", func() error { return fnErr }); !errors.Is(err, fnErr) {
		t.Errorf("Expected fn error to be returned, got %v", err)
	}
}

func TestRedisService_WithLockBusy(t *testing.T) {
	svc, mr := newTestRedis(t, 150*time.Millisecond)
	mr.Set("lock:c", "someone-else")

	start := time.Now()
	err := svc.WithLock(context.Background(), "lock:c", func() error {
		t.Error("fn must not run while the lock is taken")
		return nil
	})
	if !errors.Is(err, models.ErrConflict) {
		t.Errorf("Expected conflict, got %v", err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Error("Expected WithLock to wait for the lock timeout")
	}
	if got, _ := mr.Get("lock:c"); got != "someone-else" {
		t.Errorf("Expected foreign lock untouched, got %q", got)
	}
}

func TestRedisService_WithLockSerializes(t *testing.T) {
	svc, _ := newTestRedis(t, 2*time.Second)

	var inside, maxInside int32
	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			return svc.WithLock(context.Background(), "lock:d", func() error {
				n := atomic.AddInt32(&inside, 1)
				if n > atomic.LoadInt32(&maxInside) {
					atomic.StoreInt32(&maxInside, n)
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}
	if maxInside != 1 {
		t.Errorf("Expected at most one holder at a time, got %d", maxInside)
	}
}
