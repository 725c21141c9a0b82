package aggregates

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Locker serializes work on one key. Release is idempotent.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// lockWaitError is returned when the wait budget elapses before the key frees up.
func lockWaitError(key string) error {
	return ConflictError("lock wait exceeded for " + key)
}

func waitContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

type keyedSlot struct {
	ch   chan struct{}
	refs int
}

type keyedLocker struct {
	mu    sync.Mutex
	slots map[string]*keyedSlot
	wait  time.Duration
}

// NewKeyedLocker returns an in-process locker. wait <= 0 waits until ctx is done.
func NewKeyedLocker(wait time.Duration) Locker {
	return &keyedLocker{slots: map[string]*keyedSlot{}, wait: wait}
}

func (l *keyedLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &keyedSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	waitCtx, cancel := waitContext(ctx, l.wait)
	defer cancel()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.drop(key, slot)
			})
		}, nil
	case <-waitCtx.Done():
		l.drop(key, slot)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, lockWaitError(key)
	}
}

func (l *keyedLocker) drop(key string, slot *keyedSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 && l.slots[key] == slot {
		delete(l.slots, key)
	}
}

// Deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

type RedisLockerConfig struct {
	Prefix string
	// TTL bounds how long a crashed holder can block the key.
	TTL  time.Duration
	Wait time.Duration
	Poll time.Duration
}

// NewRedisLocker returns a SET NX PX locker so replicas serialize on the same key.
func NewRedisLocker(rdb *goredis.Client, cfg RedisLockerConfig) Locker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 25 * time.Millisecond
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "housedesk:lock:"
	}
	return &redisLocker{rdb: rdb, prefix: prefix, ttl: cfg.TTL, wait: cfg.Wait, poll: cfg.Poll}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, errors.New("redis locker not initialized")
	}
	full := l.prefix + key
	token := uuid.NewString()

	waitCtx, cancel := waitContext(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(waitCtx, full, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, RetryableError("redis lock: " + err.Error())
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = releaseScript.Run(releaseCtx, l.rdb, []string{full}, token).Err()
				})
			}, nil
		}
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, lockWaitError(key)
		case <-ticker.C:
		}
	}
}
