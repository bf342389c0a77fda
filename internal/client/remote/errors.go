package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/trialdraft/internal/common"
)

var (
	ErrUnavailable  = errors.New("record store unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = common.ErrNotFound
	ErrRejected     = errors.New("request rejected")
)

// StatusError is a non-2xx answer of the record store. It unwraps to one
// of the sentinel errors above.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.kind, e.Code)
	}
	return fmt.Sprintf("%v (status %d): %s", e.kind, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

func mapStatus(code int, message string) error {
	var kind error
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = ErrUnauthorized
	case code == http.StatusNotFound:
		kind = ErrNotFound
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		kind = ErrUnavailable
	default:
		kind = ErrRejected
	}
	return &StatusError{Code: code, Message: message, kind: kind}
}

// mapError translates a transport failure. Cancellation by the caller is
// passed through unchanged; everything else is ErrUnavailable.
func mapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
