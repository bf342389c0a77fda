package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/config"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	app := &App{log: logging.New(&buf, "text", "info")}

	app.setMode(ModeOnline)
	if app.currentMode() != ModeOnline {
		t.Fatalf("expected mode to be %q, got %q", ModeOnline, app.currentMode())
	}
	if got := buf.String(); got == "" {
		t.Fatalf("expected log output on mode change, got empty")
	}

	buf.Reset()

	app.setMode(ModeOnline)
	if got := buf.String(); got != "" {
		t.Fatalf("expected no log output when mode doesn't change, got: %q", got)
	}

	app.setMode(ModeOffline)
	if app.currentMode() != ModeOffline {
		t.Fatalf("expected mode to be %q, got %q", ModeOffline, app.currentMode())
	}
	assert.Contains(t, buf.String(), "Switched to offline mode")
}

// flakyPing answers pings with the currently configured error.
type flakyPing struct {
	fakeService
	mu  sync.Mutex
	err error
}

func (f *flakyPing) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *flakyPing) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	svc := &flakyPing{err: errors.New("connection refused")}
	app := &App{
		config: &config.Config{ProbeTimeout: time.Second},
		svc:    svc,
		log:    logging.Discard(),
		mode:   ModeOnline,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return app.currentMode() == ModeOffline }, time.Second, 5*time.Millisecond)

	svc.set(nil)
	require.Eventually(t, func() bool { return app.currentMode() == ModeOnline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestStartOnlineStatusWatcher_ZeroIntervalReturns(t *testing.T) {
	app := &App{svc: &fakeService{}, log: logging.Discard()}
	app.StartOnlineStatusWatcher(context.Background(), 0)
}

func TestClose_ClosesServiceAndBackends(t *testing.T) {
	svc := &fakeService{}
	var closed []string
	app := &App{
		svc: svc,
		log: logging.Discard(),
		closers: []func() error{
			func() error { closed = append(closed, "store"); return nil },
			func() error { closed = append(closed, "other"); return errors.New("ignored") },
		},
	}

	app.Close()

	assert.True(t, svc.closed)
	assert.Equal(t, []string{"store", "other"}, closed)
}
