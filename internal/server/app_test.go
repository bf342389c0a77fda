package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/dmitrijs2005/trialdraft/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_OpenError(t *testing.T) {
	orig := openDB
	defer func() { openDB = orig }()
	openDB = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		return nil, errors.New("boom")
	}

	c := &config.Config{}
	c.LoadDefaults()
	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddr = "127.0.0.1:0"
	c.ShutdownTimeout = time.Second

	app := &App{
		config:  c,
		logger:  logging.Discard(),
		handler: http.NotFoundHandler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	// неверный адрес: сервер сразу падает, Run должен завершиться
	c.EndpointAddr = "256.0.0.1:99999"

	app := &App{config: c, logger: logging.Discard(), handler: http.NotFoundHandler()}

	done := make(chan struct{})
	go func() {
		app.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after listen error")
	}
}
