// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/okian/bingo/internal/adapters/repository"
	service "github.com/okian/bingo/internal/app"
	"github.com/okian/bingo/internal/domain/classify"
	"github.com/okian/bingo/internal/domain/ratelimit"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Submit classifies text and replaces the board.
	Submit(ctx context.Context, text string) (service.Outcome, error)
	Board(ctx context.Context) service.Snapshot
	Explain(ctx context.Context, id int) (service.Explanation, error)
	Reset(ctx context.Context) service.Snapshot
	Limits(ctx context.Context) ratelimit.Status

	// Version operations back the editor's save/load dialog.
	SaveVersion(ctx context.Context, name, content, plainText string) (repository.Version, error)
	ListVersions(ctx context.Context) ([]repository.Version, error)
	GetVersion(ctx context.Context, id string) (repository.Version, error)
	DeleteVersion(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	boardHandler     *BoardHandler
	tilesHandler     *TilesHandler
	limitsHandler    *LimitsHandler
	versionsHandler  *VersionsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		boardHandler:     NewBoardHandler(deps),
		tilesHandler:     NewTilesHandler(deps),
		limitsHandler:    NewLimitsHandler(deps),
		versionsHandler:  NewVersionsHandler(deps),
		dashboardHandler: newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/board", MetricsMiddleware(s.boardHandler.HandleGetBoard, "board"))
	mux.HandleFunc("POST /api/board/classify", MetricsMiddleware(s.boardHandler.HandleClassify, "classify"))
	mux.HandleFunc("POST /api/board/reset", MetricsMiddleware(s.boardHandler.HandleReset, "reset"))
	mux.HandleFunc("GET /api/tiles/{id}", MetricsMiddleware(s.tilesHandler.HandleGetTile, "tiles"))
	mux.HandleFunc("GET /api/limits", MetricsMiddleware(s.limitsHandler.HandleGetLimits, "limits"))

	mux.HandleFunc("GET /api/versions", MetricsMiddleware(s.versionsHandler.HandleList, "versions"))
	mux.HandleFunc("POST /api/versions", MetricsMiddleware(s.versionsHandler.HandleSave, "versions"))
	mux.HandleFunc("GET /api/versions/{id}", MetricsMiddleware(s.versionsHandler.HandleGet, "version"))
	mux.HandleFunc("DELETE /api/versions/{id}", MetricsMiddleware(s.versionsHandler.HandleDelete, "version"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rateLimitResponse extends the error body with the limiter state.
type rateLimitResponse struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAfterMS int64  `json:"retry_after_ms"`
	Remaining    int    `json:"remaining"`
}

// transportMessage is shown instead of upstream error details.
const transportMessage = "the classification service could not be reached, please try again"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service and domain errors into responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var rl *classify.RateLimitError
	switch {
	case errors.As(err, &rl):
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, rateLimitResponse{
			Code:         "rate_limited",
			Message:      err.Error(),
			RetryAfterMS: rl.RetryAfter.Milliseconds(),
			Remaining:    rl.Remaining,
		})
	case errors.Is(err, classify.ErrTransport):
		writeError(w, http.StatusBadGateway, "classification_failed", errors.New(transportMessage))
	case errors.Is(err, service.ErrClassifierUnavailable):
		writeError(w, http.StatusServiceUnavailable, "classifier_unavailable", err)
	case errors.Is(err, classify.ErrEmptyText),
		errors.Is(err, repository.ErrInvalidName),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidID):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrUnknownTile), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrStorage):
		writeError(w, http.StatusInternalServerError, "storage_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
