package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/printwatch/internal/analysis"
	"github.com/kiranshivaraju/printwatch/internal/notify"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// latestStatusTTL keeps a stale status visible for a few missed polls.
const latestStatusTTL = 10 * time.Minute

const cameraFilename = "UltimakerSideView.jpg"

// Printer is the subset of the printer client the loop queries.
type Printer interface {
	StatusSnapshot(ctx context.Context) (models.StatusSnapshot, error)
	TemperatureSamples(ctx context.Context, n int) ([]models.TemperatureSample, error)
	Uptime(ctx context.Context) (time.Duration, error)
	CameraSnapshot(ctx context.Context) ([]byte, error)
}

// Indicator sets the status LED for a canonical status.
type Indicator interface {
	Apply(ctx context.Context, status models.DeviceStatus) (bool, error)
}

// Recorder persists job history.
type Recorder interface {
	UpsertJob(ctx context.Context, job *models.JobRecord) error
	UpdateJobProgress(ctx context.Context, jobUUID string, progress float64, status models.DeviceStatus) error
	CreatePollMetric(ctx context.Context, metric *models.PollMetric) error
	CreateNotification(ctx context.Context, n *models.NotificationRecord) error
}

// StatusCache publishes the latest poll result.
type StatusCache interface {
	SetLatestStatus(ctx context.Context, status models.LatestStatus, ttl time.Duration) error
}

// Clock abstracts time for the loop so tests can drive it.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Options configures a Monitor.
type Options struct {
	Interval      time.Duration
	TempSamples   int
	CameraEnabled bool
	Footer        string
	Clock         Clock
}

// Monitor is the poll loop. It owns the live JobInProgress; nothing else
// reads or writes it.
type Monitor struct {
	printer   Printer
	indicator Indicator
	sender    notify.Sender
	recorder  Recorder
	cache     StatusCache
	opts      Options

	job *JobInProgress
}

// CycleResult summarizes what one cycle did.
type CycleResult struct {
	Reachable bool
	Canonical models.DeviceStatus
	NewJob    bool
	Decision  Decision
}

// New creates a Monitor. A nil Clock uses wall-clock time.
func New(p Printer, ind Indicator, sender notify.Sender, rec Recorder, c StatusCache, opts Options) *Monitor {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Interval < time.Second {
		opts.Interval = time.Second
	}
	if opts.TempSamples <= 0 {
		opts.TempSamples = 800
	}
	return &Monitor{
		printer:   p,
		indicator: ind,
		sender:    sender,
		recorder:  rec,
		cache:     c,
		opts:      opts,
	}
}

// Job returns the job currently being tracked, or nil.
func (m *Monitor) Job() *JobInProgress {
	return m.job
}

// Run polls until ctx is cancelled. Cancellation is noticed within a second
// while sleeping, never in the middle of a cycle.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor started", "interval", m.opts.Interval.String())
	for {
		m.Cycle(ctx)
		if !m.sleep(ctx) {
			slog.Info("monitor stopped")
			return nil
		}
	}
}

// sleep waits out the poll interval one second at a time. Returns false if
// ctx was cancelled.
func (m *Monitor) sleep(ctx context.Context) bool {
	steps := int(m.opts.Interval / time.Second)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-m.opts.Clock.After(time.Second):
		}
	}
	return ctx.Err() == nil
}

// Cycle runs a single poll. Collaborator failures are logged and never abort
// the cycle.
func (m *Monitor) Cycle(ctx context.Context) CycleResult {
	var res CycleResult

	snap, err := m.printer.StatusSnapshot(ctx)
	if err != nil {
		slog.Warn("printer unreachable", "error", err)
		return res
	}
	res.Reachable = true

	flow := NoFlowState
	if latest, err := m.printer.TemperatureSamples(ctx, 1); err != nil {
		slog.Warn("failed to fetch flow state", "error", err)
	} else if len(latest) > 0 {
		flow = latest[len(latest)-1].FlowState
	}
	res.Canonical = Normalize(flow, snap.Status)

	if res.Canonical != models.StatusUnknown {
		if changed, err := m.indicator.Apply(ctx, res.Canonical); err != nil {
			slog.Warn("failed to update status LED", "status", res.Canonical, "error", err)
		} else if changed {
			slog.Info("status LED updated", "status", res.Canonical)
		}
	}

	latest := models.LatestStatus{Snapshot: snap, Canonical: res.Canonical, UpdatedAt: m.opts.Clock.Now().UTC()}
	if err := m.cache.SetLatestStatus(ctx, latest, latestStatusTTL); err != nil {
		slog.Warn("failed to cache latest status", "error", err)
	}

	if snap.Status != models.StatusPrinting || snap.Job == nil {
		return res
	}
	if snap.Job.UUID == models.Unknown {
		slog.Warn("job parameters unavailable; skipping job tracking this cycle")
		return res
	}

	job, isNew := TrackJob(snap, m.job, m.opts.Clock.Now())
	m.job = job
	res.NewJob = isNew
	if isNew {
		slog.Info("new job found", "job_uuid", job.UUID, "name", job.Name)
		m.recordJob(ctx, snap, job, res.Canonical)
	}

	progress := snap.Job.Progress
	if tracksTemperatures(res.Canonical) {
		res.Decision = m.evaluate(ctx, snap, job, progress, res.Canonical)
	}
	job.LastProgress = progress

	if err := m.recorder.UpdateJobProgress(ctx, job.UUID, progress, res.Canonical); err != nil {
		slog.Warn("failed to update job progress", "job_uuid", job.UUID, "error", err)
	}
	return res
}

func (m *Monitor) evaluate(ctx context.Context, snap models.StatusSnapshot, job *JobInProgress, progress float64, status models.DeviceStatus) Decision {
	samples, err := m.printer.TemperatureSamples(ctx, m.opts.TempSamples)
	if err != nil {
		slog.Warn("failed to fetch temperature samples", "job_uuid", job.UUID, "error", err)
	}

	summary, ok := analysis.Reduce(samples)
	if ok {
		job.Temps.Add(summary)
		m.recordPoll(ctx, job, samples, summary, progress, status)
	}
	jobSummary, jobOK := job.Temps.Summary()

	d := Evaluate(job, progress, job.LastProgress, status, DetailInputs{
		StatusBlock:           FormatStatus(snap),
		Temperatures:          analysis.FormatJobSummary(jobSummary, jobOK),
		TemperaturesAvailable: ok,
	})

	if d.CollectSetup {
		slog.Info("collecting print setup",
			"job_uuid", job.UUID,
			"extruder0", snap.Setup.Extruder0,
			"material0", snap.Setup.Material0,
			"extruder1", snap.Setup.Extruder1,
			"material1", snap.Setup.Material1,
			"bed_type", snap.Setup.BedType,
		)
	}
	if d.Notify {
		slog.Info("milestone reached", "job_uuid", job.UUID, "milestone", d.Milestone, "progress", progress)
		m.send(ctx, snap, job, d)
	}
	return d
}

func (m *Monitor) send(ctx context.Context, snap models.StatusSnapshot, job *JobInProgress, d Decision) {
	msg, err := notify.Compose(d.Milestone, notify.ShortJobID(job.UUID), snap.Job.Name, d.Detail, m.opts.Footer)
	if err != nil {
		slog.Error("failed to compose notification", "milestone", d.Milestone, "error", err)
		return
	}

	if m.opts.CameraEnabled {
		img, err := m.printer.CameraSnapshot(ctx)
		if err != nil {
			slog.Warn("failed to capture camera snapshot", "job_uuid", job.UUID, "error", err)
		} else {
			msg.Attachments = append(msg.Attachments, notify.Attachment{
				Filename:    cameraFilename,
				ContentType: http.DetectContentType(img),
				Data:        img,
			})
		}
	}

	rec := &models.NotificationRecord{
		ID:        uuid.New(),
		JobUUID:   job.UUID,
		Milestone: d.Milestone,
		SentAt:    m.opts.Clock.Now().UTC(),
		Delivered: true,
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		slog.Error("failed to send notification", "job_uuid", job.UUID, "milestone", d.Milestone, "error", err)
		errMsg := err.Error()
		rec.Delivered = false
		rec.Error = &errMsg
	}

	if err := m.recorder.CreateNotification(ctx, rec); err != nil {
		slog.Warn("failed to record notification", "job_uuid", job.UUID, "error", err)
	}
}

func (m *Monitor) recordJob(ctx context.Context, snap models.StatusSnapshot, job *JobInProgress, status models.DeviceStatus) {
	rec := &models.JobRecord{
		ID:           uuid.New(),
		PrinterGUID:  snap.Printer.GUID,
		JobUUID:      job.UUID,
		Name:         snap.Job.Name,
		Username:     snap.Job.User,
		Source:       snap.Job.Source,
		FoundAt:      job.FoundTime,
		LastProgress: snap.Job.Progress,
		LastStatus:   status,
	}
	if !job.ReportedTime.IsZero() {
		reported := job.ReportedTime
		rec.ReportedAt = &reported
	}
	if err := m.recorder.UpsertJob(ctx, rec); err != nil {
		slog.Warn("failed to record job", "job_uuid", job.UUID, "error", err)
	}
}

func (m *Monitor) recordPoll(ctx context.Context, job *JobInProgress, samples []models.TemperatureSample, s analysis.Summary, progress float64, status models.DeviceStatus) {
	now := m.opts.Clock.Now().UTC()
	polledAt := now
	if uptime, err := m.printer.Uptime(ctx); err != nil {
		slog.Debug("uptime unavailable; using local time for poll metric", "error", err)
	} else {
		polledAt = samples[len(samples)-1].WallClock(now.Add(-uptime))
	}

	metric := &models.PollMetric{
		ID:          uuid.New(),
		JobUUID:     job.UUID,
		PolledAt:    polledAt,
		Status:      status,
		Progress:    progress,
		SampleCount: s.Samples,
		SpanSeconds: s.SpanSeconds,
		Extruder0:   channelMetric(s.Extruder0),
		Extruder1:   channelMetric(s.Extruder1),
		Bed:         channelMetric(s.Bed),
	}
	if err := m.recorder.CreatePollMetric(ctx, metric); err != nil {
		slog.Warn("failed to record poll metric", "job_uuid", job.UUID, "error", err)
	}
}

func channelMetric(c analysis.ChannelStats) models.ChannelMetric {
	return models.ChannelMetric{
		Median:          c.Median,
		StdDev:          c.StdDev,
		DeviationMin:    c.DeviationMin,
		DeviationMax:    c.DeviationMax,
		DeviationAvg:    c.DeviationAvg,
		DeviationStdDev: c.DeviationStdDev,
	}
}
