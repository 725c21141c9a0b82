package aggregates

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
)

func TestKeyedLockerSerializesSameKey(t *testing.T) {
	l := NewKeyedLocker(0)
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "request:a")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxInside)
	}
	if n := len(l.(*keyedLocker).slots); n != 0 {
		t.Fatalf("slots should be released, got %d", n)
	}
}

func TestKeyedLockerDistinctKeysDoNotBlock(t *testing.T) {
	l := NewKeyedLocker(50 * time.Millisecond)
	relA, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer relA()
	relB, err := l.Acquire(context.Background(), "b")
	if err != nil {
		t.Fatalf("Acquire b should not wait on a: %v", err)
	}
	relB()
}

func TestKeyedLockerWaitBudget(t *testing.T) {
	l := NewKeyedLocker(20 * time.Millisecond)
	release, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_, err = l.Acquire(context.Background(), "k")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict after wait budget, got %v", err)
	}
	if !domainagg.IsCode(MapError("op", err), domainagg.CodeConflict) {
		t.Fatalf("lock timeout should map to conflict")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Acquire(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	release()
	release() // idempotent
	again, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis locker tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLocker(rdb, RedisLockerConfig{Prefix: "housedesk:test:lock:", TTL: 2 * time.Second, Wait: 50 * time.Millisecond})
	key := "request:" + time.Now().Format(time.RFC3339Nano)
	release, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(context.Background(), key); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Acquire should time out with conflict, got %v", err)
	}
	release()
	again, err := l.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
}
