package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/printwatch/internal/api/response"
	"github.com/kiranshivaraju/printwatch/internal/store"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// JobReader is the read side of the job history store.
type JobReader interface {
	GetJob(ctx context.Context, jobUUID string) (*models.JobRecord, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.JobRecord, int, error)
	ListPollMetrics(ctx context.Context, jobUUID string) ([]*models.PollMetric, error)
	ListNotifications(ctx context.Context, jobUUID string) ([]*models.NotificationRecord, error)
}

// NewListJobsHandler returns GET /api/v1/jobs. Query parameters: page,
// limit (max 100), printer_guid, since (RFC3339).
func NewListJobsHandler(jobs JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, details := parseJobFilter(r)
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid query parameters", details)
			return
		}

		records, total, err := jobs.ListJobs(r.Context(), filter)
		if err != nil {
			slog.Error("failed to list jobs", "error", err)
			response.InternalError(w, "Failed to list jobs")
			return
		}
		if records == nil {
			records = []*models.JobRecord{}
		}
		response.Collection(w, records, response.NewPaginationMeta(filter.Page, filter.Limit, total))
	}
}

func parseJobFilter(r *http.Request) (store.JobFilter, map[string]string) {
	q := r.URL.Query()
	filter := store.JobFilter{
		PrinterGUID: q.Get("printer_guid"),
		Page:        1,
		Limit:       defaultPageLimit,
	}
	details := map[string]string{}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details["page"] = "page must be a positive integer"
		} else {
			filter.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageLimit {
			details["limit"] = "limit must be between 1 and 100"
		} else {
			filter.Limit = n
		}
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			details["since"] = "since must be a valid RFC3339 timestamp"
		} else {
			filter.Since = t
		}
	}
	return filter, details
}

// NewGetJobHandler returns GET /api/v1/jobs/{jobUUID}.
func NewGetJobHandler(jobs JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobUUID := chi.URLParam(r, "jobUUID")
		job, err := jobs.GetJob(r.Context(), jobUUID)
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(w, "Job not found")
			return
		}
		if err != nil {
			slog.Error("failed to get job", "job_uuid", jobUUID, "error", err)
			response.InternalError(w, "Failed to get job")
			return
		}
		response.JSON(w, job)
	}
}

// NewJobMetricsHandler returns GET /api/v1/jobs/{jobUUID}/metrics.
func NewJobMetricsHandler(jobs JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobUUID := chi.URLParam(r, "jobUUID")
		if !jobExists(w, r, jobs, jobUUID) {
			return
		}
		metrics, err := jobs.ListPollMetrics(r.Context(), jobUUID)
		if err != nil {
			slog.Error("failed to list poll metrics", "job_uuid", jobUUID, "error", err)
			response.InternalError(w, "Failed to list metrics")
			return
		}
		if metrics == nil {
			metrics = []*models.PollMetric{}
		}
		response.JSON(w, metrics)
	}
}

// NewJobNotificationsHandler returns GET /api/v1/jobs/{jobUUID}/notifications.
func NewJobNotificationsHandler(jobs JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobUUID := chi.URLParam(r, "jobUUID")
		if !jobExists(w, r, jobs, jobUUID) {
			return
		}
		notes, err := jobs.ListNotifications(r.Context(), jobUUID)
		if err != nil {
			slog.Error("failed to list notifications", "job_uuid", jobUUID, "error", err)
			response.InternalError(w, "Failed to list notifications")
			return
		}
		if notes == nil {
			notes = []*models.NotificationRecord{}
		}
		response.JSON(w, notes)
	}
}

// jobExists writes the error response and returns false when the job is
// missing or the lookup fails.
func jobExists(w http.ResponseWriter, r *http.Request, jobs JobReader, jobUUID string) bool {
	_, err := jobs.GetJob(r.Context(), jobUUID)
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "Job not found")
		return false
	}
	if err != nil {
		slog.Error("failed to get job", "job_uuid", jobUUID, "error", err)
		response.InternalError(w, "Failed to get job")
		return false
	}
	return true
}
