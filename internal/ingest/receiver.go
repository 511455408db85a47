package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

var ErrReceiverClosed = errors.New("receiver closed")

// Receiver yields one raw message per call, blocking until one is available
// or ctx is done. Several receivers may compete on the same queue; each
// message goes to exactly one of them.
type Receiver interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// DeadLetter keeps payloads the loop skipped so they can be inspected or
// replayed later.
type DeadLetter interface {
	Put(ctx context.Context, raw []byte, kind FailureKind, cause error) error
}

// RedisQueue is a work queue on a redis list: producers LPUSH, consumers
// BRPOP, so messages are delivered in FIFO order to competing consumers.
type RedisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

// NewRedisQueue does not take ownership of client; Close leaves it open.
func NewRedisQueue(client *redis.Client, key string, pollTimeout time.Duration) *RedisQueue {
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}
	return &RedisQueue{client: client, key: key, pollTimeout: pollTimeout}
}

// Receive polls with BRPOP so that ctx is checked at least once per
// pollTimeout; go-redis v6 commands cannot be interrupted.
func (q *RedisQueue) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := q.client.BRPop(q.pollTimeout, q.key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("brpop %s: %w", q.key, err)
		}
		// res is [key, value]
		return []byte(res[1]), nil
	}
}

// Push enqueues a raw message.
func (q *RedisQueue) Push(raw []byte) error {
	if err := q.client.LPush(q.key, raw).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

func (q *RedisQueue) Close() error { return nil }

// deadLetterEntry is the JSON envelope stored for each skipped message.
type deadLetterEntry struct {
	Kind     FailureKind `json:"kind"`
	Error    string      `json:"error"`
	Payload  []byte      `json:"payload"`
	FailedAt time.Time   `json:"failedAt"`
}

// RedisDeadLetter appends skipped messages to a redis list.
type RedisDeadLetter struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedisDeadLetter(client *redis.Client, key string) *RedisDeadLetter {
	return &RedisDeadLetter{client: client, key: key, now: time.Now}
}

// Put implements DeadLetter
func (d *RedisDeadLetter) Put(ctx context.Context, raw []byte, kind FailureKind, cause error) error {
	entry, err := json.Marshal(deadLetterEntry{
		Kind:     kind,
		Error:    cause.Error(),
		Payload:  raw,
		FailedAt: d.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	if err := d.client.LPush(d.key, entry).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", d.key, err)
	}
	return nil
}
