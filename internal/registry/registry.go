// Package registry hands out at most one open store per user. It is an
// explicit dependency: construct one and pass it where needed, never a
// package-level singleton.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ZSmain/ordo/internal/store"
)

// NotInitializedError is returned by GetIfInitialized when no store has
// been created for the user yet. A programmer error on paths that assume
// prior initialization; callers wanting creation use GetOrCreate.
type NotInitializedError struct {
	UserID string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("store for user %q is not initialized", e.UserID)
}

func IsNotInitialized(err error) bool {
	var target *NotInitializedError
	return errors.As(err, &target)
}

// Opener constructs a user's store. Injected so the registry carries no
// path or configuration policy of its own.
type Opener func(ctx context.Context, userID string) (*store.Store, error)

// DirOpener opens one database file per user under dir.
func DirOpener(dir string) Opener {
	return func(_ context.Context, userID string) (*store.Store, error) {
		return store.Open(filepath.Join(dir, userID+".db"), userID)
	}
}

type entry struct {
	ready chan struct{}
	store *store.Store
	err   error
}

// Registry maps user ids to open stores with single-flight construction:
// concurrent GetOrCreate calls for the same user share one open attempt.
type Registry struct {
	opener Opener

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

func New(opener Opener) *Registry {
	return &Registry{
		opener:  opener,
		entries: make(map[string]*entry),
	}
}

// GetOrCreate returns the user's store, opening it on first call. Every
// concurrent caller for the same user gets the same store (or the same
// open error). A failed open is not cached; the next call retries.
func (r *Registry) GetOrCreate(ctx context.Context, userID string) (*store.Store, error) {
	if userID == "" {
		return nil, fmt.Errorf("registry: user id is required")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("registry: closed")
	}
	e, ok := r.entries[userID]
	if ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
			return e.store, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e = &entry{ready: make(chan struct{})}
	r.entries[userID] = e
	r.mu.Unlock()

	s, err := r.opener(ctx, userID)
	if err != nil {
		e.err = err
		// Drop the failed entry so a later call can retry the open.
		r.mu.Lock()
		delete(r.entries, userID)
		r.mu.Unlock()
	} else {
		e.store = s
	}
	close(e.ready)
	return e.store, e.err
}

// GetIfInitialized returns the user's store only if GetOrCreate already
// opened it.
func (r *Registry) GetIfInitialized(userID string) (*store.Store, error) {
	r.mu.Lock()
	e, ok := r.entries[userID]
	r.mu.Unlock()
	if !ok {
		return nil, &NotInitializedError{UserID: userID}
	}
	select {
	case <-e.ready:
	default:
		return nil, &NotInitializedError{UserID: userID}
	}
	if e.err != nil {
		return nil, &NotInitializedError{UserID: userID}
	}
	return e.store, nil
}

// Close closes every open store. The registry is unusable afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.closed = true
	r.mu.Unlock()

	var firstErr error
	for userID, e := range entries {
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.store == nil {
			continue
		}
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store for %s: %w", userID, err)
		}
	}
	return firstErr
}
