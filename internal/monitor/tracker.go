package monitor

import (
	"log/slog"
	"time"

	"github.com/kiranshivaraju/printwatch/internal/analysis"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// NoProgress is the previous-progress value before a job has been observed.
const NoProgress = -9999.0

// noJobUUID stands in for the previous job before the first poll, so the
// first real job always compares as new.
const noJobUUID = "8675309"

var reportedTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// Ledger records which milestones have fired for a job. Entries only ever
// go from false to true.
type Ledger map[models.Milestone]bool

func newLedger() Ledger {
	l := make(Ledger, len(models.Milestones))
	for _, m := range models.Milestones {
		l[m] = false
	}
	return l
}

// Seen reports whether m has fired (or been marked seen).
func (l Ledger) Seen(m models.Milestone) bool {
	return l[m]
}

func (l Ledger) mark(m models.Milestone) {
	l[m] = true
}

// closeOut marks every milestone seen.
func (l Ledger) closeOut() {
	for _, m := range models.Milestones {
		l[m] = true
	}
}

// JobInProgress is the per-job state owned by the poll loop.
type JobInProgress struct {
	UUID string
	Name string

	// FoundTime is when the monitor first saw the job. ReportedTime is the
	// printer's own start time, assumed UTC; it is zero when unparseable and
	// can be far off when the printer had no NTP.
	FoundTime    time.Time
	ReportedTime time.Time

	Ledger       Ledger
	Temps        analysis.Accumulator
	LastProgress float64
}

func (j *JobInProgress) uuid() string {
	if j == nil {
		return noJobUUID
	}
	return j.UUID
}

// TrackJob returns the job to follow for current. A UUID different from
// previous (or no previous job at all) starts a fresh JobInProgress;
// otherwise previous is returned unchanged.
func TrackJob(current models.StatusSnapshot, previous *JobInProgress, now time.Time) (*JobInProgress, bool) {
	if current.Job == nil {
		panic("monitor: TrackJob called without job parameters")
	}
	if current.Job.UUID == previous.uuid() {
		return previous, false
	}

	job := &JobInProgress{
		UUID:         current.Job.UUID,
		Name:         current.Job.Name,
		FoundTime:    now.UTC(),
		Ledger:       newLedger(),
		LastProgress: NoProgress,
	}

	reported, ok := parseReportedTime(current.Job.TimeStart)
	if ok {
		job.ReportedTime = reported
	} else {
		slog.Warn("unparseable job start time", "job_uuid", job.UUID, "time_start", current.Job.TimeStart)
	}

	return job, true
}

func parseReportedTime(s string) (time.Time, bool) {
	for _, layout := range reportedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
