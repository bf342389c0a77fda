package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/trialdraft/internal/common"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/dmitrijs2005/trialdraft/internal/server/auth"
	"github.com/dmitrijs2005/trialdraft/internal/server/response"
)

type contextKey string

const actorKey contextKey = "actor"

// anonymousActor is recorded on writes when authentication is disabled.
const anonymousActor = "anonymous"

// AuthMiddleware requires a bearer token signed with secret and puts its
// subject into the request context. An empty secret disables the check.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(common.AuthorizationHeader)
			if header == "" {
				response.Unauthorized(w, "missing authorization header")
				return
			}
			token, ok := strings.CutPrefix(header, common.BearerPrefix)
			if !ok || token == "" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			actor, err := auth.ActorFromToken(token, secret)
			if err != nil {
				if errors.Is(err, common.ErrTokenExpired) {
					response.Unauthorized(w, "token expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the authenticated actor of r, or "anonymous".
func ActorFrom(r *http.Request) string {
	if actor, ok := r.Context().Value(actorKey).(string); ok && actor != "" {
		return actor
	}
	return anonymousActor
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func LoggerMiddleware(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			log.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
