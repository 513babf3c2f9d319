package monitor

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// FormatStatus renders the full printer and job status block sent with the
// start notification.
func FormatStatus(snap models.StatusSnapshot) string {
	var b strings.Builder

	b.WriteString("Printer\n")
	field(&b, "Type", snap.Printer.Type)
	field(&b, "Name", snap.Printer.Name)
	field(&b, "Firmware", snap.Printer.Firmware)
	field(&b, "GUID", snap.Printer.GUID)
	field(&b, "Status", string(snap.Status))

	b.WriteString("\nPrintSetup\n")
	field(&b, "Extruder0", snap.Setup.Extruder0)
	field(&b, "Material0", snap.Setup.Material0)
	field(&b, "Extruder1", snap.Setup.Extruder1)
	field(&b, "Material1", snap.Setup.Material1)
	field(&b, "BedType", snap.Setup.BedType)

	if job := snap.Job; job != nil {
		b.WriteString("\nJobParameters\n")
		field(&b, "UUID", job.UUID)
		field(&b, "Name", job.Name)
		field(&b, "Source", job.Source)
		field(&b, "User", job.User)
		field(&b, "TimeStarted", job.TimeStart)
		field(&b, "TimeElapsed", fmt.Sprintf("%.2f hours", job.ElapsedHours))
		field(&b, "TimeEstimated", fmt.Sprintf("%.2f hours", job.EstimatedHours))
		field(&b, "Progress", progressText(job.Progress))
		field(&b, "JobState", job.JobState)
		field(&b, "BedTemp", temperatureText(job.BedTemp, job.BedTarget))
		field(&b, "Extruder0Temp", temperatureText(job.Extruder0Temp, job.Extruder0Target))
		field(&b, "Extruder1Temp", temperatureText(job.Extruder1Temp, job.Extruder1Target))
	}

	return b.String()
}

func field(b *strings.Builder, name, value string) {
	if value == "" {
		value = models.Unknown
	}
	fmt.Fprintf(b, "\t%s: %s\n", name, value)
}

func progressText(p float64) string {
	if p < 0 {
		return models.Unknown
	}
	return fmt.Sprintf("%.2f %%", p)
}

func temperatureText(current, target float64) string {
	return fmt.Sprintf("%.1f C (target %.1f C)", current, target)
}
