package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/attachments"
	"github.com/dmitrijs2005/trialdraft/internal/client/config"
	"github.com/dmitrijs2005/trialdraft/internal/client/drafts"
	"github.com/dmitrijs2005/trialdraft/internal/client/editor"
	"github.com/dmitrijs2005/trialdraft/internal/client/remote"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
	"github.com/dmitrijs2005/trialdraft/internal/client/services"
	"github.com/dmitrijs2005/trialdraft/internal/client/storage"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	svc     services.TrialService
	log     logging.Logger
	out     io.Writer
	closers []func() error

	mu   sync.RWMutex
	mode Mode
}

// NewApp opens the draft backend and wires the editing pipeline. When no
// API token is configured and stdin is a terminal, the token is prompted
// for without echo.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, "text", c.LogLevel)

	if c.Token == "" && isTerminal(int(os.Stdin.Fd())) {
		tok, err := GetSecret(os.Stdout, "API token (Enter to skip): ")
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		c.Token = string(tok)
	}

	st, err := storage.Open(ctx, storage.Options{
		Backend:   c.DraftBackend,
		DSN:       c.DraftDSN,
		RedisAddr: c.RedisAddr,
		TTL:       c.DraftTTL,
	})
	if err != nil {
		logger.Error(ctx, "error initializing draft store", "error", err)
		return nil, err
	}

	var files attachments.Store
	if c.S3.Bucket != "" {
		s3, err := attachments.NewS3Store(ctx, attachments.S3Config{
			Bucket:        c.S3.Bucket,
			Region:        c.S3.Region,
			Endpoint:      c.S3.Endpoint,
			AccessKey:     c.S3.AccessKey,
			SecretKey:     c.S3.SecretKey,
			PublicBaseURL: c.S3.PublicBaseURL,
			Timeout:       c.RequestTimeout,
		})
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		files = s3
	}

	rc := remote.NewHTTPClient(remote.Options{
		BaseURL: c.ServerURL,
		Token:   c.Token,
		Timeout: c.RequestTimeout,
		Retries: c.Retries,
		Backoff: c.RetryBackoff,
		Logger:  logger,
	})

	mapper := schema.NewMapper(logger)
	store := drafts.NewStore(st.Repo, logger)
	session := editor.NewSession(mapper, store, editor.NewRecorder(c.ResolveActor(), nil), logger)
	loader := services.NewLoader(rc, store, mapper, logger)
	saver := services.NewSaver(rc, store, mapper, loader, logger, services.SaverOptions{
		ProbeTimeout:      c.ProbeTimeout,
		SettleDelay:       c.SettleDelay,
		CreateConcurrency: c.CreateConcurrency,
	})

	return &App{
		config:  c,
		svc:     services.NewTrialService(session, loader, saver, rc, files, logger),
		log:     logger,
		out:     os.Stdout,
		closers: []func() error{st.Close},
		mode:    ModeOffline,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), fmt.Sprintf("Switched to %s mode", mode))
	}
}

func (a *App) currentMode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// Run opens trialID when given and blocks in the REPL until the user
// exits or stdin ends.
func (a *App) Run(ctx context.Context, trialID string) {
	defer a.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	if trialID != "" {
		if err := a.Open(ctx, []string{trialID}); err != nil {
			printlnFn("error:", err)
		}
	}

	statusFn := a.status
	if !isTerminal(int(os.Stdin.Fd())) {
		statusFn = nil
	}
	runREPL(ctx, a, statusFn, bufio.NewScanner(os.Stdin))

	if v := a.svc.Snapshot(); len(v.Dirty) > 0 {
		printlnFn("Unsaved edits are kept as drafts and restored on next open.")
	}
}

func (a *App) Close() {
	a.svc.Close()
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	timeout := a.config.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	err := a.svc.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}

// StartOnlineStatusWatcher pings the record store every interval until ctx
// is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
