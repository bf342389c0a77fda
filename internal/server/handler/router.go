// Package handler exposes the record store over HTTP: the trial read
// endpoints, the per-section update endpoints and the row endpoints of
// the replace sections.
package handler

import (
	"net/http"

	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/dmitrijs2005/trialdraft/internal/server/response"
	"github.com/gorilla/mux"
)

// NewRouter wires the routes. /ping stays public; everything else goes
// through AuthMiddleware.
func NewRouter(h *TrialHandler, secret []byte, log logging.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(LoggerMiddleware(log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/ping", h.Ping).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(AuthMiddleware(secret))

	protected.HandleFunc("/trials", h.List).Methods(http.MethodGet)
	protected.HandleFunc("/trials/{id}", h.Get).Methods(http.MethodGet)
	protected.HandleFunc("/overview/{id}/update", h.UpdateSection).Methods(http.MethodPost)
	protected.HandleFunc("/{seg}/trial/{id}/update", h.UpdateSection).Methods(http.MethodPost)
	protected.HandleFunc("/{seg:other|notes}/trial/{id}", h.DeleteItems).Methods(http.MethodDelete)
	protected.HandleFunc("/{seg:other|notes}", h.CreateItem).Methods(http.MethodPost)

	return r
}
