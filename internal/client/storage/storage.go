// Package storage opens the key/value backend of the draft store: a local
// SQLite file migrated with goose, or a shared Redis.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/migrations"
	"github.com/dmitrijs2005/trialdraft/internal/client/repositories/kv"
	"github.com/dmitrijs2005/trialdraft/internal/filex"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	_ "modernc.org/sqlite"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Options struct {
	Backend   string
	DSN       string
	RedisAddr string
	// RedisPrefix defaults to kv.DefaultRedisPrefix.
	RedisPrefix string
	TTL         time.Duration
}

// Store is an opened backend. Close releases it.
type Store struct {
	Repo  kv.Repository
	close func() error
}

func (s *Store) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return gooseUpContext(ctx, db, ".")
}

func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open opens the backend named by opts.Backend (sqlite when empty).
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		db, err := InitDatabase(ctx, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite draft store: %w", err)
		}
		return &Store{Repo: kv.NewSQLiteRepository(db), close: db.Close}, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}

		prefix := opts.RedisPrefix
		if prefix == "" {
			prefix = kv.DefaultRedisPrefix
		}
		repo := kv.NewRedisRepository(client, prefix, opts.TTL)
		return &Store{Repo: repo, close: repo.Close}, nil

	default:
		return nil, fmt.Errorf("unknown draft backend %q", opts.Backend)
	}
}
