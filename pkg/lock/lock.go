// Package lock serializes migration runs across processes. The migration
// engine does not lock on its own; the CLI takes one of these locks around
// each run.
package lock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRetryInterval is how often a held Redis lock is polled.
const DefaultRetryInterval = 100 * time.Millisecond

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type (
	// Locker acquires a lock, blocking until it is held or ctx is done. The
	// release function is safe to call more than once.
	Locker interface {
		Acquire(ctx context.Context) (release func(), err error)
	}

	// Redis is a lease held with SET NX PX. The lease expires after its TTL
	// so a crashed holder can not block other instances forever.
	Redis struct {
		client        redis.Cmdable
		key           string
		ttl           time.Duration
		retryInterval time.Duration
	}

	// Advisory is a PostgreSQL session-level advisory lock held on a
	// dedicated connection.
	Advisory struct {
		db  *sql.DB
		key string
	}

	// Nop never blocks.
	Nop struct{}
)

// NewRedis creates a Redis lock on key with the given lease.
//
// Example usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	locker := lock.NewRedis(client, "automigrate:orders", 5*time.Minute)
//
//	release, err := locker.Acquire(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer release()
func NewRedis(client redis.Cmdable, key string, ttl time.Duration) *Redis {
	return &Redis{
		client:        client,
		key:           key,
		ttl:           ttl,
		retryInterval: DefaultRetryInterval,
	}
}

// Acquire polls until the key is free.
func (r *Redis) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to acquire lock %s", r.key)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "failed to acquire lock %s", r.key)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = releaseScript.Run(context.Background(), r.client, []string{r.key}, token).Err()
		})
	}, nil
}

// NewAdvisory creates an advisory lock whose id is derived from key.
func NewAdvisory(db *sql.DB, key string) *Advisory {
	return &Advisory{db: db, key: key}
}

// Acquire blocks in pg_advisory_lock. The lock lives as long as the pinned
// connection, which is returned to the pool on release.
func (a *Advisory) Acquire(ctx context.Context) (func(), error) {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to acquire lock connection for %s", a.key)
	}

	id := advisoryID(a.key)
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", id); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to acquire lock %s", a.key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", id)
			_ = conn.Close()
		})
	}, nil
}

// Acquire returns immediately.
func (Nop) Acquire(ctx context.Context) (func(), error) {
	return func() {}, ctx.Err()
}

// advisoryID hashes key into the non-negative int64 space of advisory locks.
func advisoryID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF) //nolint:gosec // masked to the non-negative range
}
