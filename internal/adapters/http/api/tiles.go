package api

import (
	"net/http"
	"strconv"
)

// TilesHandler serves the per-tile explanation.
type TilesHandler struct {
	deps Dependencies
}

// NewTilesHandler creates a new tiles handler.
func NewTilesHandler(deps Dependencies) *TilesHandler {
	return &TilesHandler{deps: deps}
}

// HandleGetTile handles GET /api/tiles/{id} requests.
func (h *TilesHandler) HandleGetTile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_tile"
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, WrapKind(op, ErrInvalidID, err))
		return
	}

	ex, err := h.deps.Explain(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// LimitsHandler reports the classification rate limit.
type LimitsHandler struct {
	deps Dependencies
}

// NewLimitsHandler creates a new limits handler.
func NewLimitsHandler(deps Dependencies) *LimitsHandler {
	return &LimitsHandler{deps: deps}
}

// HandleGetLimits handles GET /api/limits requests.
func (h *LimitsHandler) HandleGetLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Limits(r.Context()))
}
