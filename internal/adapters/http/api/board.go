package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/bingo/internal/domain/plaintext"
)

// maxBodyBytes caps request bodies for editor content.
const maxBodyBytes = 1 << 20

// classifyRequest carries either plain text or the editor's HTML content.
// Text wins when both are set.
type classifyRequest struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

func (c classifyRequest) plainText() string {
	if strings.TrimSpace(c.Text) != "" {
		return c.Text
	}
	return plaintext.FromHTML(c.Content)
}

// BoardHandler serves the board and the classification endpoint.
type BoardHandler struct {
	deps Dependencies
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(deps Dependencies) *BoardHandler {
	return &BoardHandler{deps: deps}
}

// HandleGetBoard handles GET /api/board requests.
func (h *BoardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Board(r.Context()))
}

// HandleClassify handles POST /api/board/classify requests.
func (h *BoardHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.classify"
	var req classifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeServiceError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := h.deps.Submit(r.Context(), req.plainText())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleReset handles POST /api/board/reset requests.
func (h *BoardHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Reset(r.Context()))
}
