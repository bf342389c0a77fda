package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/trialdraft/internal/common"
	"github.com/dmitrijs2005/trialdraft/internal/logging"
	"github.com/dmitrijs2005/trialdraft/internal/server/models"
	"github.com/dmitrijs2005/trialdraft/internal/server/response"
	"github.com/dmitrijs2005/trialdraft/internal/server/services"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 4 << 20

type TrialHandler struct {
	service services.TrialService
	log     logging.Logger
}

func NewTrialHandler(service services.TrialService, log logging.Logger) *TrialHandler {
	return &TrialHandler{service: service, log: log}
}

func (h *TrialHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}

func (h *TrialHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, recs)
}

func (h *TrialHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, rec)
}

// UpdateSection serves both /overview/{id}/update and
// /{seg}/trial/{id}/update.
func (h *TrialHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	seg := vars["seg"]
	if seg == "" {
		seg = "overview"
	}
	section, ok := models.UpsertSegments[seg]
	if !ok {
		response.NotFound(w, "unknown section "+seg)
		return
	}

	var body map[string]any
	if !decode(w, r, &body) {
		return
	}

	out, err := h.service.UpdateSection(r.Context(), section, vars["id"], body, ActorFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, out)
}

func (h *TrialHandler) DeleteItems(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	section, ok := models.RowSegments[vars["seg"]]
	if !ok {
		response.NotFound(w, "unknown section "+vars["seg"])
		return
	}

	n, err := h.service.DeleteItems(r.Context(), section, vars["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, map[string]int64{"deleted": n})
}

func (h *TrialHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	seg := mux.Vars(r)["seg"]
	section, ok := models.RowSegments[seg]
	if !ok {
		response.NotFound(w, "unknown section "+seg)
		return
	}

	var row map[string]any
	if !decode(w, r, &row) {
		return
	}

	out, err := h.service.CreateItem(r.Context(), section, row, ActorFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, out)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}
	return true
}

func (h *TrialHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, common.ErrValidation):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, "internal error")
	}
}
