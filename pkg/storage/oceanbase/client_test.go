package oceanbase_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
	"github.com/oceanbase/remindsense-go/pkg/storage/oceanbase"
)

func TestConfigDSN(t *testing.T) {
	cfg := &oceanbase.Config{Host: "127.0.0.1", Port: 2881, User: "root@sys", Password: "secret", DBName: "remindsense"}
	dsn := cfg.DSN()

	assert.True(t, strings.HasPrefix(dsn, "root@sys:secret@tcp(127.0.0.1:2881)/remindsense"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
}

func TestOceanBaseClient_RoundTrip(t *testing.T) {
	host := os.Getenv("OCEANBASE_HOST")
	if host == "" {
		t.Skip("Skipping OceanBase test: OCEANBASE_HOST not set")
	}
	port, err := strconv.Atoi(os.Getenv("OCEANBASE_PORT"))
	if err != nil {
		port = 2881
	}
	user := os.Getenv("OCEANBASE_USER")
	if user == "" {
		user = "root@sys"
	}
	dbName := os.Getenv("OCEANBASE_DATABASE")
	if dbName == "" {
		dbName = "remindsense_test"
	}

	store, err := oceanbase.NewClient(&oceanbase.Config{
		Host:      host,
		Port:      port,
		User:      user,
		Password:  os.Getenv("OCEANBASE_PASSWORD"),
		DBName:    dbName,
		TableName: fmt.Sprintf("user_states_test_%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Skipf("Skipping OceanBase test: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	_, err = store.Load(ctx, "user_001")
	assert.ErrorIs(t, err, storage.ErrStateNotFound)

	st := model.NewUserState("user_001")
	st.Strategy = &model.ReminderStrategy{UserID: "user_001", Confidence: 0.5}
	require.NoError(t, store.Save(ctx, st))
	st.Strategy.Confidence = 0.6
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Load(ctx, "user_001")
	require.NoError(t, err)
	require.NotNil(t, got.Strategy)
	assert.Equal(t, 0.6, got.Strategy.Confidence)

	require.NoError(t, store.Delete(ctx, "user_001"))
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
