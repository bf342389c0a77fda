// Package remote is the HTTP client of the trial record store.
//
// Every call has its own timeout and is retried with exponential backoff
// while it fails with ErrUnavailable. Other failures are returned at once.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/client/models"
	"github.com/dmitrijs2005/trialdraft/internal/client/schema"
	"github.com/dmitrijs2005/trialdraft/internal/common"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/sethvargo/go-retry"
)

type Client interface {
	Ping(ctx context.Context) error
	// FetchTrial returns the raw record of trialID, or ErrNotFound.
	FetchTrial(ctx context.Context, trialID string) (map[string]any, error)
	// UpdateSection upserts an upsert-mode section and returns the decoded
	// response object, if any.
	UpdateSection(ctx context.Context, trialID string, key models.SectionKey, payload models.Payload) (map[string]any, error)
	// DeleteSectionItems removes every stored row of a replace-mode section.
	DeleteSectionItems(ctx context.Context, trialID string, key models.SectionKey) error
	// CreateSectionItem stores one row of a replace-mode section.
	CreateSectionItem(ctx context.Context, key models.SectionKey, row models.Payload) error
}

type Options struct {
	BaseURL string
	Token   string
	// Timeout bounds one attempt.
	Timeout time.Duration
	// Retries is the number of attempts after the first.
	Retries uint64
	Backoff time.Duration
	HTTP    *http.Client
	Logger  logging.Logger
}

type HTTPClient struct {
	baseURL string
	token   string
	timeout time.Duration
	retries uint64
	backoff time.Duration
	http    *http.Client
	log     logging.Logger
}

const maxResponseBytes = 16 << 20

func NewHTTPClient(opts Options) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		timeout: opts.Timeout,
		retries: opts.Retries,
		backoff: opts.Backoff,
		http:    opts.HTTP,
		log:     opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.backoff <= 0 {
		c.backoff = 500 * time.Millisecond
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	return c
}

// sectionSegments are the path segments of per-section endpoints.
var sectionSegments = map[models.SectionKey]string{
	models.SectionOverview:     "overview",
	models.SectionOutcome:      "outcome",
	models.SectionCriteria:     "criteria",
	models.SectionTiming:       "timing",
	models.SectionResults:      "results",
	models.SectionSites:        "sites",
	models.SectionLogs:         "logs",
	models.SectionOtherSources: "other",
	models.SectionNotes:        "notes",
}

func updatePath(trialID string, key models.SectionKey) (string, error) {
	sec, ok := schema.Lookup(key)
	if !ok || sec.Save != schema.SaveUpsert {
		return "", fmt.Errorf("%w: section %s has no update endpoint", ErrRejected, key)
	}
	id := url.PathEscape(trialID)
	if key == models.SectionOverview {
		return "/overview/" + id + "/update", nil
	}
	return "/" + sectionSegments[key] + "/trial/" + id + "/update", nil
}

func replaceSegment(key models.SectionKey) (string, error) {
	sec, ok := schema.Lookup(key)
	if !ok || sec.Save != schema.SaveReplace {
		return "", fmt.Errorf("%w: section %s is not stored as rows", ErrRejected, key)
	}
	return sectionSegments[key], nil
}

// Ping is a single attempt; the caller's context bounds it.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.once(ctx, http.MethodGet, "/ping", nil)
	return err
}

func (c *HTTPClient) FetchTrial(ctx context.Context, trialID string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, "/trials/"+url.PathEscape(trialID), nil)
	switch {
	case err == nil:
		if rec, ok := schema.SelectRecord(body, trialID); ok {
			return rec, nil
		}
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}

	// the record may only be reachable through the bulk listing, keyed by
	// a secondary identifier
	body, err = c.do(ctx, http.MethodGet, "/trials", nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("trial %s: %w", trialID, ErrNotFound)
		}
		return nil, err
	}
	if rec, ok := schema.SelectRecord(body, trialID); ok {
		return rec, nil
	}
	return nil, fmt.Errorf("trial %s: %w", trialID, ErrNotFound)
}

func (c *HTTPClient) UpdateSection(ctx context.Context, trialID string, key models.SectionKey, payload models.Payload) (map[string]any, error) {
	path, err := updatePath(trialID, key)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	obj, _ := body.(map[string]any)
	return obj, nil
}

func (c *HTTPClient) DeleteSectionItems(ctx context.Context, trialID string, key models.SectionKey) error {
	seg, err := replaceSegment(key)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, "/"+seg+"/trial/"+url.PathEscape(trialID), nil)
	return err
}

func (c *HTTPClient) CreateSectionItem(ctx context.Context, key models.SectionKey, row models.Payload) error {
	seg, err := replaceSegment(key)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/"+seg, row)
	return err
}

// do runs once with retries for ErrUnavailable.
func (c *HTTPClient) do(ctx context.Context, method, path string, in any) (any, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", ErrRejected, err)
		}
		payload = b
	}

	attempt := 0
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	return retry.DoValue[any](ctx, backoff, func(ctx context.Context) (any, error) {
		attempt++
		out, err := c.once(ctx, method, path, payload)
		if errors.Is(err, ErrUnavailable) {
			c.log.Warn(ctx, "record store call failed", "method", method, "path", path, "attempt", attempt, "error", err)
			return nil, retry.RetryableError(err)
		}
		return out, err
	})
}

func (c *HTTPClient) once(ctx context.Context, method, path string, payload []byte) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, mapError(ctx, err)
	}
	c.log.Debug(ctx, "record store call", "method", method, "path", path, "status", resp.StatusCode)

	if err := mapStatus(resp.StatusCode, errorMessage(raw)); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// plain-text acknowledgements are accepted
		return nil, nil
	}
	return unwrapEnvelope(resp.StatusCode, decoded)
}

// unwrapEnvelope strips a {success, data, error} envelope. success=false
// is a rejection even with a 2xx status.
func unwrapEnvelope(code int, v any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	if s, ok := obj["success"].(bool); ok && !s {
		return nil, &StatusError{Code: code, Message: envelopeMessage(obj), kind: ErrRejected}
	}
	if data, ok := obj["data"]; ok {
		if _, enveloped := obj["success"]; enveloped || len(obj) == 1 {
			return data, nil
		}
	}
	return v, nil
}

func envelopeMessage(obj map[string]any) string {
	for _, k := range []string{"error", "message", "detail"} {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func errorMessage(raw []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg := envelopeMessage(obj); msg != "" {
			return msg
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
