package monitor

import (
	"log/slog"

	"github.com/kiranshivaraju/printwatch/internal/analysis"
	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// DetailInputs carries the text a milestone email may include. Only the part
// relevant to the fired milestone is used.
type DetailInputs struct {
	// StatusBlock is the full printer/job status text sent with "start".
	StatusBlock string
	// Temperatures is the rendered job temperature block.
	Temperatures string
	// TemperaturesAvailable is false when this poll's temperature fetch
	// returned nothing.
	TemperaturesAvailable bool
}

// Decision is the outcome of one Evaluate call.
type Decision struct {
	Milestone    models.Milestone
	Notify       bool
	CollectSetup bool
	Detail       string
}

// thresholds is the progress ladder below end, in ascending order.
var thresholds = []struct {
	milestone models.Milestone
	progress  float64
}{
	{models.MilestoneStart, 0},
	{models.MilestoneDone10, 10},
	{models.MilestoneDone50, 50},
	{models.MilestoneDone90, 90},
}

// Evaluate walks the milestone ladder for job and marks whatever it fires in
// the job's ledger. At most one milestone fires per call.
//
// While the printer is in post_print or wait_cleanup nothing is sent: the
// ladder is suppressed, and a job that was already at 100 when first observed
// has end marked seen. Otherwise end is checked first: reaching exactly 100
// closes the ladder, marking any unfired lower milestone seen, and is only
// reported when the job was seen below 100 earlier.
func Evaluate(job *JobInProgress, progress, previousProgress float64, status models.DeviceStatus, in DetailInputs) Decision {
	if job == nil {
		panic("monitor: Evaluate called without an active job")
	}

	var d Decision
	if !job.Ledger.Seen(models.MilestonePreamble) {
		job.Ledger.mark(models.MilestonePreamble)
		d.CollectSetup = true
	}

	alreadyDone := previousProgress == NoProgress || previousProgress == 100

	if finishing(status) {
		if progress == 100 && alreadyDone && !job.Ledger.Seen(models.MilestoneEnd) {
			job.Ledger.closeOut()
			d.Milestone = models.MilestoneEnd
			slog.Info("job already complete when first observed; end notification suppressed", "job_uuid", job.UUID)
		}
		return d
	}

	if progress == 100 && !job.Ledger.Seen(models.MilestoneEnd) {
		job.Ledger.closeOut()
		d.Milestone = models.MilestoneEnd
		if alreadyDone {
			slog.Info("job already complete when first observed; end notification suppressed", "job_uuid", job.UUID)
			return d
		}
		d.Notify = true
		if !in.TemperaturesAvailable {
			d.Detail = analysis.UnavailableText
		}
		return d
	}

	for _, t := range thresholds {
		if progress < t.progress || job.Ledger.Seen(t.milestone) {
			continue
		}
		job.Ledger.mark(t.milestone)
		d.Milestone = t.milestone
		d.Notify = true
		switch {
		case t.milestone == models.MilestoneStart:
			d.Detail = in.StatusBlock
		case !in.TemperaturesAvailable:
			d.Detail = analysis.UnavailableText
		default:
			d.Detail = in.Temperatures
		}
		return d
	}
	return d
}
