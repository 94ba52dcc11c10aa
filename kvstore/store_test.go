package kvstore_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"gestorreportes/kvstore"
	"gestorreportes/schema"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the same contract against every backend
func exerciseStore(t *testing.T, store kvstore.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "@mode")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "@mode", "admin"))
	require.NoError(t, store.Set(ctx, "@admin_name", "Ana"))
	require.NoError(t, store.Set(ctx, "@mode", "user"))

	v, ok, err := store.Get(ctx, "@mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user", v)

	require.NoError(t, store.Delete(ctx, "@mode"))
	require.NoError(t, store.Delete(ctx, "@mode"), "deleting a missing key is not an error")
	_, ok, err = store.Get(ctx, "@mode")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = store.Get(ctx, "@admin_name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ana", v)
	require.NoError(t, store.Delete(ctx, "@admin_name"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, kvstore.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	exerciseStore(t, kvstore.NewFileStore(path))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, kvstore.NewFileStore(path).Set(ctx, "@user_name", "Luis"))

	v, ok, err := kvstore.NewFileStore(path).Get(ctx, "@user_name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Luis", v)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := kvstore.NewFileStore(path).Get(context.Background(), "@mode")
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("KVSTORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KVSTORE_TEST_REDIS_ADDR not set")
	}
	store := kvstore.NewRedisStore(addr, os.Getenv("KVSTORE_TEST_REDIS_PASSWORD"), 0, "test:gestorreportes:")
	defer store.Close()
	require.NoError(t, store.Ping(context.Background()))
	exerciseStore(t, store)
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("KVSTORE_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("KVSTORE_TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
	schema.InitializeDatabase(db)
	schema.ValidateRequiredColumns(db, nil)
	exerciseStore(t, kvstore.NewMySQLStore(db))
}
