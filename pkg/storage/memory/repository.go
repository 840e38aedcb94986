// Package memory provides the in-process Repository implementation.
//
// State is held in memory with one mutex per user. When a storage.StateStore
// is configured the repository loads a user's state lazily on first access
// and writes every committed update through to the store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// entry is the per-user unit of mutual exclusion.
type entry struct {
	mu     sync.Mutex
	state  *model.UserState
	loaded bool

	// snapshot is read without any lock; writers hold ctxMu.
	snapshot atomic.Pointer[model.UserContext]
	ctxMu    sync.Mutex
}

// Repository implements storage.Repository in memory.
type Repository struct {
	// entries maps userID to *entry.
	entries sync.Map

	// store is the optional write-through persistence backend.
	store storage.StateStore

	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithStateStore enables lazy loading from and write-through to store.
func WithStateStore(store storage.StateStore) Option {
	return func(r *Repository) {
		r.store = store
	}
}

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the clock used to stamp committed states.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates an in-memory repository.
//
// Example:
//
//	repo := memory.New(memory.WithStateStore(sqliteStore))
//	defer repo.Close()
func New(opts ...Option) *Repository {
	r := &Repository{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) entry(userID string) *entry {
	if e, ok := r.entries.Load(userID); ok {
		return e.(*entry)
	}
	e, _ := r.entries.LoadOrStore(userID, &entry{})
	return e.(*entry)
}

// ensureLoaded populates e.state. Callers must hold e.mu.
func (r *Repository) ensureLoaded(ctx context.Context, e *entry, userID string) error {
	if e.loaded {
		return nil
	}
	if r.store != nil {
		state, err := r.store.Load(ctx, userID)
		switch {
		case err == nil:
			e.state = state
		case errors.Is(err, storage.ErrStateNotFound):
			e.state = model.NewUserState(userID)
		default:
			return fmt.Errorf("load state for %s: %w", userID, err)
		}
	} else {
		e.state = model.NewUserState(userID)
	}
	e.loaded = true
	return nil
}

// Update implements storage.Repository.
func (r *Repository) Update(ctx context.Context, userID string, fn storage.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := r.ensureLoaded(ctx, e, userID); err != nil {
		return err
	}

	work := e.state.Clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	work.UserID = userID
	work.UpdatedAt = r.now()

	if r.store != nil {
		if err := r.store.Save(ctx, work); err != nil {
			r.logger.Warn("state write-through failed, update discarded",
				zap.String("user_id", userID),
				zap.Error(err))
			return fmt.Errorf("save state for %s: %w", userID, err)
		}
	}

	e.state = work
	return nil
}

// View implements storage.Repository.
func (r *Repository) View(ctx context.Context, userID string) (*model.UserState, error) {
	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := r.ensureLoaded(ctx, e, userID); err != nil {
		return nil, err
	}
	return e.state.Clone(), nil
}

// CachedContext implements storage.Repository.
func (r *Repository) CachedContext(userID string) (*model.UserContext, bool) {
	v, ok := r.entries.Load(userID)
	if !ok {
		return nil, false
	}
	snap := v.(*entry).snapshot.Load()
	return snap, snap != nil
}

// UpdateContext implements storage.Repository. It does not wait on the
// state lock, so context merges never queue behind a write-through.
func (r *Repository) UpdateContext(userID string, fn func(prev *model.UserContext) *model.UserContext) *model.UserContext {
	e := r.entry(userID)
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()

	prev := e.snapshot.Load()
	next := fn(prev)
	if next == nil {
		return prev
	}
	e.snapshot.Store(next)
	return next
}

// Users implements storage.Repository. Only users touched by this process
// are listed.
func (r *Repository) Users() []string {
	var users []string
	r.entries.Range(func(key, _ interface{}) bool {
		users = append(users, key.(string))
		return true
	})
	sort.Strings(users)
	return users
}

// Close implements storage.Repository.
func (r *Repository) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
