package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/trialdraft/internal/client/attachments"
	"github.com/dmitrijs2005/trialdraft/internal/client/editor"
	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/remote"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
)

var ErrNoAttachmentStore = errors.New("attachment store is not configured")

// ItemRef addresses one sub-item of a section.
type ItemRef struct {
	Section    models.SectionKey
	Collection string
	ItemID     string
}

// TrialService is the editing facade: it owns the session and drives
// loads and saves through it.
type TrialService interface {
	Open(ctx context.Context, trialID string, opts LoadOptions) (*models.LoadResult, error)
	Reload(ctx context.Context, skipDraft bool) (*models.LoadResult, error)
	Dispatch(ctx context.Context, m editor.Mutation) (editor.Result, error)
	Save(ctx context.Context) (models.SaveReport, error)
	Snapshot() editor.View
	Ping(ctx context.Context) error
	Attach(ctx context.Context, ref ItemRef, name string, body io.Reader, contentType string) (models.Attachment, error)
	Detach(ctx context.Context, ref ItemRef, attachment string) (attachments.DeleteResult, error)
	Close()
}

type trialService struct {
	session *editor.Session
	loader  *Loader
	saver   *Saver
	remote  remote.Client
	files   attachments.Store
	log     logging.Logger
}

// NewTrialService wires a session to the load and save pipelines. files
// may be nil when no attachment store is configured.
func NewTrialService(session *editor.Session, loader *Loader, saver *Saver, rc remote.Client, files attachments.Store, log logging.Logger) TrialService {
	if log == nil {
		log = logging.Discard()
	}
	return &trialService{session: session, loader: loader, saver: saver, remote: rc, files: files, log: log}
}

func (s *trialService) Open(ctx context.Context, trialID string, opts LoadOptions) (*models.LoadResult, error) {
	lctx, tok := s.session.BeginLoad(ctx, trialID)
	res, err := s.loader.Load(lctx, trialID, opts)
	if err := s.session.FinishLoad(tok, res, err); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *trialService) Reload(ctx context.Context, skipDraft bool) (*models.LoadResult, error) {
	id := s.session.TrialID()
	if id == "" {
		return nil, editor.ErrNotLoaded
	}
	return s.Open(ctx, id, LoadOptions{SkipDraft: skipDraft})
}

func (s *trialService) Dispatch(ctx context.Context, m editor.Mutation) (editor.Result, error) {
	return s.session.Dispatch(ctx, m)
}

func (s *trialService) Save(ctx context.Context) (models.SaveReport, error) {
	ticket, err := s.session.BeginSave()
	if err != nil {
		return models.SaveReport{}, err
	}
	report, reloaded := s.saver.Save(ctx, ticket.TrialID, ticket.Sections)
	s.session.FinishSave(ctx, ticket, report, reloaded)

	s.log.Info(ctx, "save finished",
		"trial_id", report.TrialID,
		"outcome", report.Outcome,
		"failed_sections", report.Failed(),
	)
	return report, nil
}

func (s *trialService) Snapshot() editor.View { return s.session.Snapshot() }

func (s *trialService) Ping(ctx context.Context) error { return s.remote.Ping(ctx) }

// Attach uploads a file and adds it to a sub-item. The upload is deleted
// again when the sub-item rejects it.
func (s *trialService) Attach(ctx context.Context, ref ItemRef, name string, body io.Reader, contentType string) (models.Attachment, error) {
	if s.files == nil {
		return models.Attachment{}, ErrNoAttachmentStore
	}
	if _, ok := s.session.Section(ref.Section); !ok {
		return models.Attachment{}, editor.ErrNotLoaded
	}

	a, err := s.files.Upload(ctx, name, body, contentType)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("upload %s: %w", name, err)
	}
	_, err = s.session.Dispatch(ctx, editor.AddAttachment{
		Key:        ref.Section,
		Collection: ref.Collection,
		ItemID:     ref.ItemID,
		Attachment: a,
	})
	if err != nil {
		if derr := s.files.Delete(ctx, a.URL); derr != nil {
			s.log.Warn(ctx, "orphaned upload", "url", a.URL, "error", derr)
		}
		return models.Attachment{}, err
	}
	return a, nil
}

// Detach removes an attachment from a sub-item, then deletes the file.
// Delete failures never fail the call; the result says how the delete
// went.
func (s *trialService) Detach(ctx context.Context, ref ItemRef, attachment string) (attachments.DeleteResult, error) {
	st, ok := s.session.Section(ref.Section)
	if !ok {
		return "", editor.ErrNotLoaded
	}
	a, found := editor.FindAttachment(st, ref.Collection, ref.ItemID, attachment)

	_, err := s.session.Dispatch(ctx, editor.RemoveAttachment{
		Key:        ref.Section,
		Collection: ref.Collection,
		ItemID:     ref.ItemID,
		Ref:        attachment,
	})
	if err != nil {
		return "", err
	}
	if !found || a.URL == "" || s.files == nil {
		return attachments.DeleteOK, nil
	}

	derr := s.files.Delete(ctx, a.URL)
	res := attachments.ClassifyDeleteError(derr)
	switch res {
	case attachments.DeleteOK:
	case attachments.DeleteNotFound, attachments.DeleteServerError:
		s.log.Info(ctx, "attachment delete treated as resolved", "url", a.URL, "result", res, "error", derr)
	default:
		s.log.Warn(ctx, "attachment delete failed", "url", a.URL, "error", derr)
	}
	return res, nil
}

func (s *trialService) Close() { s.session.Close() }
