package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ai-researcher/server/internal/agent/model"
	errx "github.com/ai-researcher/server/internal/core/error"
	logx "github.com/ai-researcher/server/pkg/logger"
)

// MemoryTurnLocker is a keyed mutex whose waits honor context cancellation.
type MemoryTurnLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryTurnLocker() *MemoryTurnLocker {
	return &MemoryTurnLocker{slots: map[string]*lockSlot{}}
}

func (l *MemoryTurnLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s := l.slots[key]
	if s == nil {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *MemoryTurnLocker) release(key string, s *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// refreshScript extends the lock only if it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

const (
	minLockPoll = 20 * time.Millisecond
	maxLockPoll = 500 * time.Millisecond
)

// RedisTurnLocker serializes turns across processes with SET NX PX. The TTL
// bounds how long a crashed holder can block a conversation; a live holder
// refreshes it every ttl/3 until unlock.
type RedisTurnLocker struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisTurnLocker(rdb redis.Cmdable, ttl time.Duration) *RedisTurnLocker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisTurnLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisTurnLocker) lockKey(key string) string {
	return fmt.Sprintf("conversation:%s:lock", key)
}

func (l *RedisTurnLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.lockKey(key)
	token := uuid.NewString()
	wait := minLockPoll
	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logx.Error().Err(err).Str("key", lockKey).Msg("failed to acquire turn lock")
			return nil, errx.WrapRedis(err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, maxLockPoll)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(context.WithoutCancel(ctx), lockKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// release even when the turn's ctx is already cancelled
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				logx.Warn().Err(err).Str("key", lockKey).Msg("failed to release turn lock")
			}
		})
	}, nil
}

// keepAlive pushes the lock expiry forward while the turn runs. It stops on
// stop or once the key no longer holds token.
func (l *RedisTurnLocker) keepAlive(ctx context.Context, lockKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := refreshInterval(l.ttl)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		rctx, cancel := context.WithTimeout(ctx, interval)
		n, err := refreshScript.Run(rctx, l.rdb, []string{lockKey}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		switch {
		case err != nil:
			logx.Warn().Err(err).Str("key", lockKey).Msg("failed to refresh turn lock")
		case n == 0:
			logx.Error().Str("key", lockKey).Msg("turn lock lost before unlock")
			return
		}
	}
}

func refreshInterval(ttl time.Duration) time.Duration {
	return max(ttl/3, time.Millisecond)
}

var (
	_ model.TurnLocker = (*MemoryTurnLocker)(nil)
	_ model.TurnLocker = (*RedisTurnLocker)(nil)
)
