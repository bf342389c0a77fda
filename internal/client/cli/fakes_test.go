package cli

import (
	"bytes"
	"context"
	"io"

	"github.com/dmitrijs2005/trialdraft/internal/client/attachments"
	"github.com/dmitrijs2005/trialdraft/internal/client/config"
	"github.com/dmitrijs2005/trialdraft/internal/client/editor"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/services"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
)

// fakeService records what the commands ask of the trial service.
type fakeService struct {
	services.TrialService

	view editor.View

	openID      string
	openOpts    services.LoadOptions
	reloadFresh bool
	loadRes     *models.LoadResult
	loadErr     error

	mutations   []editor.Mutation
	dispatchRes editor.Result
	dispatchErr error

	report  models.SaveReport
	saveErr error

	attachRef  services.ItemRef
	attachName string
	attachType string
	attachBody string
	attachErr  error

	detachRef services.ItemRef
	detachArg string
	detachRes attachments.DeleteResult

	closed bool
}

func (f *fakeService) Open(_ context.Context, id string, opts services.LoadOptions) (*models.LoadResult, error) {
	f.openID, f.openOpts = id, opts
	return f.loadRes, f.loadErr
}

func (f *fakeService) Reload(_ context.Context, skipDraft bool) (*models.LoadResult, error) {
	f.reloadFresh = skipDraft
	return f.loadRes, f.loadErr
}

func (f *fakeService) Dispatch(_ context.Context, m editor.Mutation) (editor.Result, error) {
	f.mutations = append(f.mutations, m)
	return f.dispatchRes, f.dispatchErr
}

func (f *fakeService) Save(context.Context) (models.SaveReport, error) { return f.report, f.saveErr }

func (f *fakeService) Snapshot() editor.View { return f.view }

func (f *fakeService) Ping(context.Context) error { return nil }

func (f *fakeService) Attach(_ context.Context, ref services.ItemRef, name string, body io.Reader, ct string) (models.Attachment, error) {
	b, _ := io.ReadAll(body)
	f.attachRef, f.attachName, f.attachType, f.attachBody = ref, name, ct, string(b)
	if f.attachErr != nil {
		return models.Attachment{}, f.attachErr
	}
	return models.Attachment{Name: name, URL: "https://files.example.com/" + name, Type: ct}, nil
}

func (f *fakeService) Detach(_ context.Context, ref services.ItemRef, arg string) (attachments.DeleteResult, error) {
	f.detachRef, f.detachArg = ref, arg
	return f.detachRes, nil
}

func (f *fakeService) Close() { f.closed = true }

func newTestApp(svc *fakeService) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		config: &config.Config{},
		svc:    svc,
		log:    logging.Discard(),
		out:    &out,
		mode:   ModeOnline,
	}, &out
}
