package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// SubmitLock guards a form submission against a concurrent duplicate.
// Acquire reports false when the key is already held.
type SubmitLock interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string)
}

const submitLockPrefix = "submit:"

// RedisSubmitLock holds locks as SETNX keys with a TTL, so a crashed request
// cannot wedge a pair forever.
type RedisSubmitLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmitLock returns a Redis-backed lock, or an in-process lock when
// client is nil.
func NewSubmitLock(client *redis.Client, ttl time.Duration) SubmitLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if client == nil {
		return NewLocalSubmitLock()
	}
	return &RedisSubmitLock{client: client, ttl: ttl}
}

func (l *RedisSubmitLock) Acquire(ctx context.Context, key string) (bool, error) {
	return l.client.SetNX(ctx, submitLockPrefix+key, time.Now().Unix(), l.ttl).Result()
}

func (l *RedisSubmitLock) Release(ctx context.Context, key string) {
	if err := l.client.Del(ctx, submitLockPrefix+key).Err(); err != nil {
		logrus.WithField("key", key).WithError(err).Warn("failed to release submit lock")
	}
}

// LocalSubmitLock is a process-local lock used when Redis is not configured.
type LocalSubmitLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalSubmitLock() *LocalSubmitLock {
	return &LocalSubmitLock{held: make(map[string]struct{})}
}

func (l *LocalSubmitLock) Acquire(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = struct{}{}
	return true, nil
}

func (l *LocalSubmitLock) Release(_ context.Context, key string) {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
}
