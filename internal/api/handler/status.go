package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/printwatch/internal/api/response"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// StatusSource serves the most recent poll result.
type StatusSource interface {
	GetLatestStatus(ctx context.Context) (*models.LatestStatus, bool, error)
}

// NewStatusHandler returns GET /api/v1/status.
func NewStatusHandler(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, found, err := src.GetLatestStatus(r.Context())
		if err != nil {
			slog.Error("failed to read latest status", "error", err)
			response.InternalError(w, "Failed to read printer status")
			return
		}
		if !found {
			response.NotFound(w, "No printer status has been recorded yet")
			return
		}
		response.JSON(w, latest)
	}
}
