package syncer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/gochippr/backend/pkg/app/errors"
	apphttp "github.com/gochippr/backend/pkg/app/http"
)

// HTTP wraps the Engine to provide HTTP endpoints
type HTTP struct {
	engine *Engine
	logger *zap.Logger
}

// SyncItemError is the per-item failure entry of a sync response
type SyncItemError struct {
	ItemExternalID string `json:"item_external_id"`
	Code           string `json:"code"`
	Message        string `json:"message"`
}

// SyncResponse is the response body of POST /provider/sync
type SyncResponse struct {
	Items      []SyncSummary   `json:"items"`
	Errors     []SyncItemError `json:"errors"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// RegisterRoutes registers HTTP endpoints for the sync engine on the given chi router
func RegisterRoutes(r chi.Router, engine *Engine, logger *zap.Logger) {
	h := &HTTP{
		engine: engine,
		logger: logger,
	}

	r.Post("/provider/sync", apphttp.HandleError(h.sync))
}

// sync runs a full sync across the caller's active linked items
func (h *HTTP) sync(w http.ResponseWriter, r *http.Request) error {
	rawUserID := r.Header.Get("X-User-ID")
	if rawUserID == "" {
		return apperrors.UnAuthorizedError(nil, "X-User-ID header required")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return apperrors.UnAuthorizedError(err, "invalid user id")
	}

	startedAt := time.Now().UTC()
	summaries, err := h.engine.SyncAllForUser(r.Context(), userID)
	if err != nil {
		return apperrors.DependencyError(err, "sync failed")
	}

	resp := SyncResponse{
		Items:      summaries,
		Errors:     []SyncItemError{},
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	for _, s := range summaries {
		if s.Failed() {
			resp.Errors = append(resp.Errors, SyncItemError{
				ItemExternalID: s.ItemExternalID,
				Code:           s.ErrorCode,
				Message:        s.ErrorMessage,
			})
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
