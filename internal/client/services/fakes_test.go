package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/drafts"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/remote"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
	"github.com/dmitrijs2005/trialdraft/internal/client/storage"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory record store. Section updates are stored so
// that a later FetchTrial returns them.
type fakeRemote struct {
	remote.Client

	mu         sync.Mutex
	pingErr    error
	fetchErr   error
	records    map[string]map[string]any
	updateErr  map[models.SectionKey]error
	deleteErr  map[models.SectionKey]error
	createErr  func(row models.Payload) error
	assignID   string
	fetches    int
	updates    []string
	deletes    []string
	created    map[models.SectionKey][]models.Payload
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records:   map[string]map[string]any{},
		updateErr: map[models.SectionKey]error{},
		deleteErr: map[models.SectionKey]error{},
		created:   map[models.SectionKey][]models.Payload{},
	}
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRemote) FetchTrial(ctx context.Context, trialID string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := f.records[trialID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	out := map[string]any{"trial_id": trialID}
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRemote) UpdateSection(ctx context.Context, trialID string, key models.SectionKey, payload models.Payload) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, fmt.Sprintf("%s/%s", key, trialID))
	if err := f.updateErr[key]; err != nil {
		return nil, err
	}
	id := trialID
	if key == models.SectionOverview && f.assignID != "" {
		id = f.assignID
	}
	rec := f.record(id)
	rec[string(key)] = map[string]any(payload)
	if key == models.SectionOverview {
		return map[string]any{"trial_id": id, "id": float64(1)}, nil
	}
	return map[string]any{"success": true}, nil
}

func (f *fakeRemote) DeleteSectionItems(ctx context.Context, trialID string, key models.SectionKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, fmt.Sprintf("%s/%s", key, trialID))
	if err := f.deleteErr[key]; err != nil {
		return err
	}
	delete(f.record(trialID), string(key))
	f.created[key] = nil
	return nil
}

func (f *fakeRemote) CreateSectionItem(ctx context.Context, key models.SectionKey, row models.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		if err := f.createErr(row); err != nil {
			return err
		}
	}
	f.created[key] = append(f.created[key], row)
	id, _ := row["trial_id"].(string)
	rec := f.record(id)
	rows, _ := rec[string(key)].([]any)
	rec[string(key)] = append(rows, map[string]any(row))
	return nil
}

// record must be called with mu held.
func (f *fakeRemote) record(id string) map[string]any {
	rec, ok := f.records[id]
	if !ok {
		rec = map[string]any{}
		f.records[id] = rec
	}
	return rec
}

type fixture struct {
	remote *fakeRemote
	drafts *drafts.Store
	mapper *schema.Mapper
	loader *Loader
	saver  *Saver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Options{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	n := 0
	var mu sync.Mutex
	mapper := schema.NewMapper(logging.Discard(), schema.WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("gen-%d", n)
	}))

	f := &fixture{
		remote: newFakeRemote(),
		drafts: drafts.NewStore(st.Repo, logging.Discard()),
		mapper: mapper,
	}
	f.loader = NewLoader(f.remote, f.drafts, mapper, logging.Discard())
	f.saver = NewSaver(f.remote, f.drafts, mapper, f.loader, logging.Discard(), SaverOptions{CreateConcurrency: 3})
	f.saver.sleep = func(context.Context, time.Duration) error { return nil }
	return f
}

// defaults returns the default state of every section.
func (f *fixture) defaults() map[models.SectionKey]*models.SectionState {
	out := map[models.SectionKey]*models.SectionState{}
	for _, k := range models.SaveOrder {
		out[k] = f.mapper.Default(k)
	}
	return out
}
