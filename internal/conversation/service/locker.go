package service

import (
	"context"
	"sync"

	"quote_assistant_backend/internal/conversation/ports"
)

// LocalLocker serializes turns per identity inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*identityLock
}

type identityLock struct {
	ch      chan struct{}
	waiters int
}

// NewLocalLocker creates an in-process identity locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*identityLock)}
}

// Compile-time check that LocalLocker implements ports.IdentityLocker.
var _ ports.IdentityLocker = (*LocalLocker)(nil)

// Lock blocks until identity is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, identity string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[identity]
	if !ok {
		lock = &identityLock{ch: make(chan struct{}, 1)}
		l.locks[identity] = lock
	}
	lock.waiters++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(identity, lock, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(identity, lock, true) })
	}, nil
}

func (l *LocalLocker) release(identity string, lock *identityLock, held bool) {
	if held {
		<-lock.ch
	}
	l.mu.Lock()
	lock.waiters--
	if lock.waiters == 0 {
		delete(l.locks, identity)
	}
	l.mu.Unlock()
}
