package analysis

import (
	"fmt"
	"strings"
)

// UnavailableText replaces temperature statistics when the sample source
// could not be read.
const UnavailableText = "Unfortunately, temperature statistics were unavailable" +
	" when they were queried.\n\nThat's probably not a good thing, but it could" +
	" just mean that the network was interrupted unexpectedly. You should" +
	" probably check on stuff!"

// FormatJobSummary renders the job-lifetime deviation statistics.
func FormatJobSummary(js JobSummary, ok bool) string {
	if !ok {
		return UnavailableText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CalculationTime: %.3f min\n", js.SpanSeconds/60)
	fmt.Fprintf(&b, "Polls: %d (%d samples)\n\n", js.Polls, js.Samples)
	writeDeviation(&b, "Extruder0Temp", js.Extruder0)
	writeDeviation(&b, "Extruder1Temp", js.Extruder1)
	writeDeviation(&b, "BedTemp", js.Bed)
	return b.String()
}

// FormatSummary renders one poll's statistics.
func FormatSummary(s Summary, ok bool) string {
	if !ok {
		return UnavailableText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CalculationTime: %.3f min (%d samples)\n\n", s.SpanSeconds/60, s.Samples)
	writeChannel(&b, "Temperature0", s.Extruder0)
	writeChannel(&b, "Temperature1", s.Extruder1)
	writeChannel(&b, "Bed", s.Bed)
	return b.String()
}

func writeDeviation(b *strings.Builder, name string, d ChannelDeviation) {
	fmt.Fprintf(b, "%s\n", name)
	fmt.Fprintf(b, "\tDeviationAvg: %.6f C\n", d.Avg)
	fmt.Fprintf(b, "\tDeviationSTD: %.6f C\n", d.StdDev)
	fmt.Fprintf(b, "\tDeviationMin: %.6f C\n", d.Min)
	fmt.Fprintf(b, "\tDeviationMax: %.6f C\n", d.Max)
}

func writeChannel(b *strings.Builder, name string, c ChannelStats) {
	fmt.Fprintf(b, "%s\n", name)
	fmt.Fprintf(b, "\tmedian: %.3f C\n", c.Median)
	fmt.Fprintf(b, "\tstddev: %.3f C\n", c.StdDev)
	fmt.Fprintf(b, "\tdeltaavg: %.3f C\n", c.DeviationAvg)
	fmt.Fprintf(b, "\tdeltamin: %.3f C\n", c.DeviationMin)
	fmt.Fprintf(b, "\tdeltamax: %.3f C\n", c.DeviationMax)
	fmt.Fprintf(b, "\tdeltastd: %.3f C\n", c.DeviationStdDev)
}
