package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
	sqliteStore "github.com/oceanbase/remindsense-go/pkg/storage/sqlite"
)

func setupSQLiteTest(t *testing.T) (*sqliteStore.Client, string) {
	dbPath := filepath.Join(t.TempDir(), "data", "remindsense.db")

	store, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, dbPath
}

func TestSQLiteClient_LoadMissing(t *testing.T) {
	store, _ := setupSQLiteTest(t)

	_, err := store.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrStateNotFound)
}

func TestSQLiteClient_SaveAndLoad(t *testing.T) {
	store, _ := setupSQLiteTest(t)
	ctx := context.Background()

	st := model.NewUserState("user_001")
	st.Patterns = []*model.BehaviorPattern{{ID: 1, Type: model.PatternWorkHours, Confidence: 0.8}}
	require.NoError(t, store.Save(ctx, st))

	// Saving again replaces the row.
	st.Patterns[0].Confidence = 0.9
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Load(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, got.Patterns, 1)
	assert.Equal(t, 0.9, got.Patterns[0].Confidence)
	assert.Equal(t, model.PatternWorkHours, got.Patterns[0].Type)
}

func TestSQLiteClient_ListAndDelete(t *testing.T) {
	store, _ := setupSQLiteTest(t)
	ctx := context.Background()

	for _, id := range []string{"carol", "alice", "bob"} {
		require.NoError(t, store.Save(ctx, model.NewUserState(id)))
	}
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, users)

	require.NoError(t, store.Delete(ctx, "bob"))
	require.NoError(t, store.Delete(ctx, "missing"))

	users, err = store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, users)
}

func TestSQLiteClient_PersistsAcrossReopen(t *testing.T) {
	store, dbPath := setupSQLiteTest(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, model.NewUserState("user_001")))
	require.NoError(t, store.Close())

	reopened, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, "user_001", got.UserID)
}

func TestSQLiteClient_RejectsBadTableName(t *testing.T) {
	_, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath:    filepath.Join(t.TempDir(), "x.db"),
		TableName: "states; DROP TABLE users",
	})
	assert.Error(t, err)
}
