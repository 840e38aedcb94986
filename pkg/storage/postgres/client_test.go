package postgres_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
	postgresStore "github.com/oceanbase/remindsense-go/pkg/storage/postgres"
)

func TestConfigDSN(t *testing.T) {
	cfg := &postgresStore.Config{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "rs"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=rs sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func setupPostgresTest(t *testing.T) *postgresStore.Client {
	_ = godotenv.Load(filepath.Join("..", "..", "..", ".env"))

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		t.Skip("Skipping PostgreSQL test: POSTGRES_PASSWORD not set")
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := 5432
	if p := os.Getenv("POSTGRES_PORT"); p != "" {
		var err error
		if port, err = strconv.Atoi(p); err != nil {
			t.Skipf("Skipping PostgreSQL test: invalid POSTGRES_PORT: %s", p)
		}
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}
	dbName := os.Getenv("POSTGRES_DATABASE")
	if dbName == "" {
		dbName = "remindsense_test"
	}

	store, err := postgresStore.NewClient(&postgresStore.Config{
		Host:      host,
		Port:      port,
		User:      user,
		Password:  password,
		DBName:    dbName,
		TableName: fmt.Sprintf("user_states_test_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresClient_RoundTrip(t *testing.T) {
	store := setupPostgresTest(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "user_001")
	assert.ErrorIs(t, err, storage.ErrStateNotFound)

	st := model.NewUserState("user_001")
	st.Patterns = []*model.BehaviorPattern{{ID: 1, Confidence: 0.7}}
	require.NoError(t, store.Save(ctx, st))
	st.Patterns[0].Confidence = 0.65
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Load(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, got.Patterns, 1)
	assert.Equal(t, 0.65, got.Patterns[0].Confidence)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_001"}, users)

	require.NoError(t, store.Delete(ctx, "user_001"))
	_, err = store.Load(ctx, "user_001")
	assert.ErrorIs(t, err, storage.ErrStateNotFound)
}
