package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived named locks. Scheduled jobs use it so that
// a job runs on one instance at a time.
type Locker struct {
	cache *Cache
	owner string
}

// NewLocker creates a Locker. owner identifies this process in lock values.
func NewLocker(cache *Cache, owner string) *Locker {
	return &Locker{cache: cache, owner: owner}
}

// LockKey returns the key of the named lock.
func (l *Locker) LockKey(name string) string {
	return l.cache.Key(PrefixLock + name)
}

// Acquire takes the named lock for ttl. acquired is false when another
// owner holds it; release is only set when acquired is true.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error) {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	key := l.LockKey(name)
	ok, err := l.cache.SetNX(ctx, key, l.owner, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release = func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.cache.Client(), []string{key}, l.owner).Err()
	}
	return release, true, nil
}
