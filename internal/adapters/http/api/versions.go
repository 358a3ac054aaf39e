package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/bingo/internal/adapters/repository"
	"github.com/okian/bingo/internal/domain/plaintext"
)

// saveVersionRequest mirrors the OpenAPI schema for POST /api/versions.
type saveVersionRequest struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	PlainText string `json:"plainText"`
}

// versionSummary is the list shape; content is replaced by a preview.
type versionSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
	Preview   string `json:"preview"`
}

type versionList struct {
	Versions []versionSummary `json:"versions"`
}

// VersionsHandler serves saved editor versions.
type VersionsHandler struct {
	deps Dependencies
}

// NewVersionsHandler creates a new versions handler.
func NewVersionsHandler(deps Dependencies) *VersionsHandler {
	return &VersionsHandler{deps: deps}
}

// HandleList handles GET /api/versions requests.
func (h *VersionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListVersions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := versionList{Versions: make([]versionSummary, 0, len(list))}
	for _, v := range list {
		out.Versions = append(out.Versions, summarize(v))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSave handles POST /api/versions requests.
func (h *VersionsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_version"
	var req saveVersionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeServiceError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.PlainText) == "" {
		req.PlainText = plaintext.FromHTML(req.Content)
	}

	v, err := h.deps.SaveVersion(r.Context(), req.Name, req.Content, req.PlainText)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleGet handles GET /api/versions/{id} requests.
func (h *VersionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.deps.GetVersion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleDelete handles DELETE /api/versions/{id} requests.
func (h *VersionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteVersion(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func summarize(v repository.Version) versionSummary {
	return versionSummary{
		ID:        v.ID,
		Name:      v.Name,
		Timestamp: v.Timestamp,
		Preview:   v.Preview(),
	}
}
