package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
	"github.com/oceanbase/remindsense-go/pkg/storage/memory"
)

// fakeStore is an in-memory StateStore that can be told to fail saves.
type fakeStore struct {
	mu       sync.Mutex
	states   map[string][]byte
	failSave bool
	saves    int
	closed   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string][]byte)}
}

func (f *fakeStore) Load(_ context.Context, userID string) (*model.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.states[userID]
	if !ok {
		return nil, storage.ErrStateNotFound
	}
	return storage.DecodeState(data)
}

func (f *fakeStore) Save(_ context.Context, st *model.UserState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("disk full")
	}
	data, err := storage.EncodeState(st)
	if err != nil {
		return err
	}
	f.states[st.UserID] = data
	f.saves++
	return nil
}

func (f *fakeStore) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, userID)
	return nil
}

func (f *fakeStore) ListUsers(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.states {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func TestUpdateCommitsOnSuccess(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	err := repo.Update(ctx, "u1", func(st *model.UserState) error {
		st.Patterns = append(st.Patterns, &model.BehaviorPattern{ID: 1, Confidence: 0.7})
		return nil
	})
	require.NoError(t, err)

	st, err := repo.View(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, st.Patterns, 1)
	assert.Equal(t, "u1", st.UserID)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestUpdateDiscardsOnError(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Update(ctx, "u1", func(st *model.UserState) error {
		st.Patterns = append(st.Patterns, &model.BehaviorPattern{ID: 1})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	st, err := repo.View(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, st.Patterns)
}

func TestUpdateDiscardsWhenCancelled(t *testing.T) {
	repo := memory.New()
	ctx, cancel := context.WithCancel(context.Background())

	err := repo.Update(ctx, "u1", func(st *model.UserState) error {
		st.Patterns = append(st.Patterns, &model.BehaviorPattern{ID: 1})
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	st, err := repo.View(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, st.Patterns)
}

func TestViewReturnsPrivateCopy(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	require.NoError(t, repo.Update(ctx, "u1", func(st *model.UserState) error {
		st.Patterns = []*model.BehaviorPattern{{ID: 1, Confidence: 0.8}}
		return nil
	}))

	st, err := repo.View(ctx, "u1")
	require.NoError(t, err)
	st.Patterns[0].Confidence = 0.1

	again, err := repo.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, again.Patterns[0].Confidence)
}

func TestConcurrentUpdatesAreSerializedPerUser(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = repo.Update(ctx, "u1", func(st *model.UserState) error {
				st.AppendLearningSession(model.LearningOutcome{Kind: model.OutcomePositive})
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = repo.Update(ctx, "u2", func(st *model.UserState) error {
				st.AppendLearningSession(model.LearningOutcome{Kind: model.OutcomeNegative})
				return nil
			})
		}()
	}
	wg.Wait()

	for _, u := range []string{"u1", "u2"} {
		st, err := repo.View(ctx, u)
		require.NoError(t, err)
		assert.Len(t, st.LearningSessions, 50, u)
	}
	assert.Equal(t, []string{"u1", "u2"}, repo.Users())
}

func TestContextCache(t *testing.T) {
	repo := memory.New()
	_, ok := repo.CachedContext("u1")
	assert.False(t, ok)

	snap := &model.UserContext{UserID: "u1", CurrentActivity: model.ActivityWorking}
	repo.UpdateContext("u1", func(*model.UserContext) *model.UserContext { return snap })
	got, ok := repo.CachedContext("u1")
	require.True(t, ok)
	assert.Equal(t, model.ActivityWorking, got.CurrentActivity)
}

func TestUpdateContextMergesConcurrentWriters(t *testing.T) {
	repo := memory.New()
	repo.UpdateContext("u1", func(*model.UserContext) *model.UserContext { return &model.UserContext{UserID: "u1"} })

	set := func(apply func(*model.UserContext)) {
		repo.UpdateContext("u1", func(prev *model.UserContext) *model.UserContext {
			next := prev.Clone()
			apply(next)
			return next
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			set(func(c *model.UserContext) { c.CurrentActivity = model.ActivityWorking })
		}()
		go func() {
			defer wg.Done()
			set(func(c *model.UserContext) { c.Availability = model.AvailabilityBusy })
		}()
	}
	wg.Wait()

	got, ok := repo.CachedContext("u1")
	require.True(t, ok)
	assert.Equal(t, model.ActivityWorking, got.CurrentActivity)
	assert.Equal(t, model.AvailabilityBusy, got.Availability)
}

func TestUpdateContext(t *testing.T) {
	repo := memory.New()

	var seen *model.UserContext
	got := repo.UpdateContext("u1", func(prev *model.UserContext) *model.UserContext {
		seen = prev
		return &model.UserContext{UserID: "u1", CurrentActivity: model.ActivityEating}
	})
	assert.Nil(t, seen)
	assert.Equal(t, model.ActivityEating, got.CurrentActivity)

	kept := repo.UpdateContext("u1", func(*model.UserContext) *model.UserContext { return nil })
	assert.Same(t, got, kept)
	cached, ok := repo.CachedContext("u1")
	require.True(t, ok)
	assert.Same(t, got, cached)
}

func TestWriteThroughAndLazyLoad(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	repo := memory.New(memory.WithStateStore(store))
	require.NoError(t, repo.Update(ctx, "u1", func(st *model.UserState) error {
		st.Patterns = []*model.BehaviorPattern{{ID: 7, Confidence: 0.9}}
		return nil
	}))
	assert.Equal(t, 1, store.saves)

	// A fresh repository over the same store sees the saved state.
	other := memory.New(memory.WithStateStore(store))
	st, err := other.View(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, st.Patterns, 1)
	assert.Equal(t, int64(7), st.Patterns[0].ID)

	require.NoError(t, other.Close())
	assert.True(t, store.closed)
}

func TestFailedWriteThroughDiscardsUpdate(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	repo := memory.New(memory.WithStateStore(store))

	store.failSave = true
	err := repo.Update(ctx, "u1", func(st *model.UserState) error {
		st.Patterns = []*model.BehaviorPattern{{ID: 1}}
		return nil
	})
	require.Error(t, err)

	store.failSave = false
	st, err := repo.View(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, st.Patterns)
}
