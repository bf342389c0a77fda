package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesKVAndGooseVersionTable(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "drafts.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, tableExists(t, db, "goose_db_version"))
	assert.True(t, tableExists(t, db, "kv"))
}

func TestInitDatabase_CreatesMissingDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "state", "nested", "drafts.db")

	db, err := InitDatabase(context.Background(), dsn)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, tableExists(t, db, "kv"))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "drafts.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db), "second run should be a no-op")
	assert.True(t, tableExists(t, db, "kv"))
}

func TestRunMigrations_PropagatesGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	_, err := InitDatabase(context.Background(), filepath.Join(t.TempDir(), "x.db"))
	require.EqualError(t, err, "boom")
}

func TestOpen_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, Options{DSN: filepath.Join(t.TempDir(), "drafts.db")})
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Repo.Set(ctx, "draft:timing:T-1", []byte("{}")))
	v, err := st.Repo.Get(ctx, "draft:timing:T-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestOpen_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	st, err := Open(ctx, Options{Backend: BackendRedis, RedisAddr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Repo.Set(ctx, "k", []byte("v")))
	assert.True(t, mr.Exists("trialdraft:k"))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), Options{Backend: BackendRedis, RedisAddr: addr})
	require.ErrorContains(t, err, "connect to redis")
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "etcd"})
	require.ErrorContains(t, err, `unknown draft backend "etcd"`)
}

func TestStore_CloseNil(t *testing.T) {
	var st *Store
	assert.NoError(t, st.Close())
}
