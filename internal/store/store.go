package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	UpsertJob(ctx context.Context, job *models.JobRecord) error
	UpdateJobProgress(ctx context.Context, jobUUID string, progress float64, status models.DeviceStatus) error
	GetJob(ctx context.Context, jobUUID string) (*models.JobRecord, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.JobRecord, int, error)

	CreatePollMetric(ctx context.Context, metric *models.PollMetric) error
	ListPollMetrics(ctx context.Context, jobUUID string) ([]*models.PollMetric, error)

	CreateNotification(ctx context.Context, n *models.NotificationRecord) error
	ListNotifications(ctx context.Context, jobUUID string) ([]*models.NotificationRecord, error)

	PruneBefore(ctx context.Context, cutoff time.Time) (PruneResult, error)
}

type JobFilter struct {
	PrinterGUID string
	Since       time.Time
	Page        int
	Limit       int
}

// PruneResult counts the rows removed by PruneBefore.
type PruneResult struct {
	Jobs          int64
	PollMetrics   int64
	Notifications int64
}
