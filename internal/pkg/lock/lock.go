// Package lock provides keyed locking for read-modify-write sequences over
// the key-value store.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// keyMutex is a one-slot semaphore so that waiting can be cancelled.
// refs counts holders and waiters; the entry is dropped when it reaches 0.
type keyMutex struct {
	ch   chan struct{}
	refs int
}

// KeyLock serializes work per string key, e.g. a loyalty account or a
// shared review list, so that concurrent requests cannot lose updates.
// Keys come from client-supplied session ids, so idle keys are removed.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// New creates a new KeyLock instance.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyMutex)}
}

// acquire registers interest in key and returns its mutex.
func (kl *KeyLock) acquire(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		kl.locks[key] = m
	}
	m.refs++
	return m
}

// release drops interest in key, removing the entry once nobody holds or
// waits for it.
func (kl *KeyLock) release(key string, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refs--
	if m.refs == 0 && kl.locks[key] == m {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for a key.
func (kl *KeyLock) Lock(key string) {
	m := kl.acquire(key)
	m.ch <- struct{}{}
}

// LockContext acquires the lock for a key, giving up when ctx is done.
func (kl *KeyLock) LockContext(ctx context.Context, key string) error {
	m := kl.acquire(key)
	// A free lock is taken even when ctx is already done.
	select {
	case m.ch <- struct{}{}:
		return nil
	default:
	}
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.release(key, m)
		return fmt.Errorf("waiting for lock %q: %w", key, ctx.Err())
	}
}

// Unlock releases the lock for a key. Unlocking a key that is not held is
// a no-op.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-m.ch:
		kl.release(key, m)
	default:
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (kl *KeyLock) TryLock(key string) bool {
	m := kl.acquire(key)
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		kl.release(key, m)
		return false
	}
}

// WithLock executes a function while holding the key's lock.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes a function while holding the key's lock. It
// returns without calling fn if ctx is done before the lock is acquired.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, fn func() error) error {
	if err := kl.LockContext(ctx, key); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}

// IsLocked checks if a key currently has an active lock.
// Note: This is a point-in-time check and may change immediately after.
func (kl *KeyLock) IsLocked(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	m, ok := kl.locks[key]
	return ok && len(m.ch) == 1
}

// size reports how many keys are tracked.
func (kl *KeyLock) size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
