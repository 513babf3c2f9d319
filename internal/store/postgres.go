package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, printer_guid, job_uuid, name, username, source, reported_at, found_at,
	last_progress, last_status, created_at, updated_at`

func scanJob(row pgx.Row) (*models.JobRecord, error) {
	var j models.JobRecord
	err := row.Scan(&j.ID, &j.PrinterGUID, &j.JobUUID, &j.Name, &j.Username, &j.Source,
		&j.ReportedAt, &j.FoundAt, &j.LastProgress, &j.LastStatus, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// UpsertJob inserts the job, or refreshes name and progress when a row for
// the same job UUID already exists (for example after a restart). The
// record's ID and timestamps are set from the stored row.
func (s *PostgresStore) UpsertJob(ctx context.Context, job *models.JobRecord) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, printer_guid, job_uuid, name, username, source, reported_at, found_at,
		                   last_progress, last_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 ON CONFLICT (job_uuid) DO UPDATE SET
		   name = EXCLUDED.name,
		   last_progress = EXCLUDED.last_progress,
		   last_status = EXCLUDED.last_status,
		   updated_at = NOW()
		 RETURNING id, found_at, created_at, updated_at`,
		job.ID, job.PrinterGUID, job.JobUUID, job.Name, job.Username, job.Source,
		job.ReportedAt, job.FoundAt, job.LastProgress, job.LastStatus,
	).Scan(&job.ID, &job.FoundAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, jobUUID string, progress float64, status models.DeviceStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET last_progress = $2, last_status = $3, updated_at = NOW() WHERE job_uuid = $1`,
		jobUUID, progress, status)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobUUID string) (*models.JobRecord, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_uuid = $1`, jobUUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.JobRecord, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.PrinterGUID != "" {
		conditions = append(conditions, fmt.Sprintf("printer_guid = $%d", argIdx))
		args = append(args, filter.PrinterGUID)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("found_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM jobs WHERE %s ORDER BY found_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// --- Poll Metrics ---

func (s *PostgresStore) CreatePollMetric(ctx context.Context, m *models.PollMetric) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO poll_metrics (id, job_uuid, polled_at, status, progress, sample_count, span_seconds,
		                           extruder0, extruder1, bed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.JobUUID, m.PolledAt, m.Status, m.Progress, m.SampleCount, m.SpanSeconds,
		m.Extruder0, m.Extruder1, m.Bed)
	if err != nil {
		return fmt.Errorf("create poll metric: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPollMetrics(ctx context.Context, jobUUID string) ([]*models.PollMetric, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_uuid, polled_at, status, progress, sample_count, span_seconds, extruder0, extruder1, bed
		 FROM poll_metrics WHERE job_uuid = $1 ORDER BY polled_at ASC`, jobUUID)
	if err != nil {
		return nil, fmt.Errorf("list poll metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*models.PollMetric
	for rows.Next() {
		var m models.PollMetric
		if err := rows.Scan(&m.ID, &m.JobUUID, &m.PolledAt, &m.Status, &m.Progress, &m.SampleCount,
			&m.SpanSeconds, &m.Extruder0, &m.Extruder1, &m.Bed); err != nil {
			return nil, fmt.Errorf("scan poll metric: %w", err)
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

// --- Notifications ---

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.NotificationRecord) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, job_uuid, milestone, sent_at, delivered, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.JobUUID, n.Milestone, n.SentAt, n.Delivered, n.Error)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, jobUUID string) ([]*models.NotificationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_uuid, milestone, sent_at, delivered, error
		 FROM notifications WHERE job_uuid = $1 ORDER BY sent_at ASC`, jobUUID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.NotificationRecord
	for rows.Next() {
		var n models.NotificationRecord
		if err := rows.Scan(&n.ID, &n.JobUUID, &n.Milestone, &n.SentAt, &n.Delivered, &n.Error); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// --- Retention ---

// PruneBefore deletes metrics and notifications older than cutoff, and jobs
// not updated since cutoff, in one transaction.
func (s *PostgresStore) PruneBefore(ctx context.Context, cutoff time.Time) (PruneResult, error) {
	var res PruneResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `DELETE FROM poll_metrics WHERE polled_at < $1`, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune poll metrics: %w", err)
	}
	res.PollMetrics = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM notifications WHERE sent_at < $1`, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune notifications: %w", err)
	}
	res.Notifications = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM jobs WHERE updated_at < $1`, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune jobs: %w", err)
	}
	res.Jobs = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return PruneResult{}, fmt.Errorf("commit prune: %w", err)
	}
	return res, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
