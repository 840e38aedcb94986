// Package storage provides interfaces for keeping per-user engine state.
//
// It defines the Repository interface that serializes mutations per user,
// and the StateStore interface that persistence backends (SQLite,
// PostgreSQL, OceanBase) implement to snapshot that state.
package storage

import (
	"context"
	"errors"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// ErrStateNotFound is returned by StateStore.Load when no state was saved
// for the user.
var ErrStateNotFound = errors.New("user state not found")

// UpdateFunc mutates a user's state. It receives a private copy; returning a
// non-nil error discards every change made to it.
type UpdateFunc func(state *model.UserState) error

// Repository owns the per-user state of the engine.
//
// Every user has exactly one mutual-exclusion unit guarding the triple
// (pattern set, strategy, histories). Operations on different users never
// contend. Implementations must be safe for concurrent use.
type Repository interface {
	// Update runs fn on a copy of the user's state while holding the user's
	// lock. The copy replaces the stored state only if fn returns nil and
	// ctx is not done, so every update is all-or-nothing.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - userID: User whose state is mutated
	//   - fn: Mutation to apply
	//
	// Returns fn's error, ctx's error, or a persistence error.
	Update(ctx context.Context, userID string, fn UpdateFunc) error

	// View returns a copy of the user's current state. The copy may be read
	// and modified freely; changes are not stored.
	View(ctx context.Context, userID string) (*model.UserState, error)

	// CachedContext returns the user's cached context snapshot without
	// taking the user's lock.
	CachedContext(userID string) (*model.UserContext, bool)

	// UpdateContext derives the user's next context snapshot from the
	// current one (nil when none is cached) and publishes it. Calls for the
	// same user are serialized, so concurrent merges never drop each
	// other's fields. fn must not modify prev; returning nil keeps the
	// current snapshot. The published snapshot is returned.
	UpdateContext(userID string, fn func(prev *model.UserContext) *model.UserContext) *model.UserContext

	// Users lists the users the repository currently holds state for.
	Users() []string

	// Close releases resources held by the repository.
	Close() error
}

// StateStore persists user state snapshots.
//
// All storage implementations (SQLite, PostgreSQL, OceanBase) implement this
// interface. Encryption, backups and recovery belong to the deployment, not
// to the store.
type StateStore interface {
	// Load returns the saved state for userID, or ErrStateNotFound.
	Load(ctx context.Context, userID string) (*model.UserState, error)

	// Save upserts the state of state.UserID.
	Save(ctx context.Context, state *model.UserState) error

	// Delete removes the saved state for userID. Deleting a missing user is
	// not an error.
	Delete(ctx context.Context, userID string) error

	// ListUsers returns the IDs of every user with saved state.
	ListUsers(ctx context.Context) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
