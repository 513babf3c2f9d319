package analysis

import (
	"math"

	"github.com/kiranshivaraju/printwatch/pkg/models"
	"github.com/montanaflynn/stats"
)

// ChannelStats summarizes one temperature channel over a sample window.
// Deviation is |target - current| per sample.
type ChannelStats struct {
	Median          float64
	StdDev          float64
	DeviationMin    float64
	DeviationMax    float64
	DeviationAvg    float64
	DeviationStdDev float64
}

// Summary is the reduction of one poll's samples.
type Summary struct {
	Samples     int
	SpanSeconds float64
	Extruder0   ChannelStats
	Extruder1   ChannelStats
	Bed         ChannelStats
}

// Reduce computes per-channel statistics over samples. It returns false for
// empty input; callers must treat that as "statistics unavailable", not zero.
func Reduce(samples []models.TemperatureSample) (Summary, bool) {
	if len(samples) == 0 {
		return Summary{}, false
	}

	n := len(samples)
	e0, e0t := make([]float64, n), make([]float64, n)
	e1, e1t := make([]float64, n), make([]float64, n)
	bed, bedt := make([]float64, n), make([]float64, n)
	for i, s := range samples {
		e0[i], e0t[i] = s.Extruder0Temp, s.Extruder0Target
		e1[i], e1t[i] = s.Extruder1Temp, s.Extruder1Target
		bed[i], bedt[i] = s.BedTemp, s.BedTarget
	}

	return Summary{
		Samples:     n,
		SpanSeconds: samples[n-1].Time - samples[0].Time,
		Extruder0:   channel(e0, e0t),
		Extruder1:   channel(e1, e1t),
		Bed:         channel(bed, bedt),
	}, true
}

func channel(current, target []float64) ChannelStats {
	dev := make([]float64, len(current))
	for i := range current {
		dev[i] = math.Abs(target[i] - current[i])
	}
	lo, hi := minMax(dev)
	return ChannelStats{
		Median:          median(current),
		StdDev:          stddev(current),
		DeviationMin:    lo,
		DeviationMax:    hi,
		DeviationAvg:    mean(dev),
		DeviationStdDev: stddev(dev),
	}
}

// ChannelDeviation is the job-lifetime deviation summary for one channel.
type ChannelDeviation struct {
	Avg    float64
	StdDev float64
	Min    float64
	Max    float64
}

// JobSummary is the cumulative view over every poll of a job.
type JobSummary struct {
	Polls       int
	Samples     int
	SpanSeconds float64
	Extruder0   ChannelDeviation
	Extruder1   ChannelDeviation
	Bed         ChannelDeviation
}

// Accumulator collects per-poll summaries for one job.
//
// The job-level Avg and StdDev are means of the per-poll values, not
// statistics over all raw samples. They diverge from the true values when
// polls carry different sample counts. Min and Max are exact.
type Accumulator struct {
	polls []Summary
}

// Add appends one poll's summary.
func (a *Accumulator) Add(s Summary) {
	a.polls = append(a.polls, s)
}

// Len reports how many polls have been accumulated.
func (a *Accumulator) Len() int {
	return len(a.polls)
}

// Summary collapses the accumulated polls. It returns false when nothing
// has been added.
func (a *Accumulator) Summary() (JobSummary, bool) {
	if len(a.polls) == 0 {
		return JobSummary{}, false
	}

	js := JobSummary{Polls: len(a.polls)}
	for _, p := range a.polls {
		js.Samples += p.Samples
		js.SpanSeconds += p.SpanSeconds
	}
	js.Extruder0 = a.collapse(func(s Summary) ChannelStats { return s.Extruder0 })
	js.Extruder1 = a.collapse(func(s Summary) ChannelStats { return s.Extruder1 })
	js.Bed = a.collapse(func(s Summary) ChannelStats { return s.Bed })
	return js, true
}

func (a *Accumulator) collapse(pick func(Summary) ChannelStats) ChannelDeviation {
	avgs := make([]float64, len(a.polls))
	stds := make([]float64, len(a.polls))
	mins := make([]float64, len(a.polls))
	maxs := make([]float64, len(a.polls))
	for i, p := range a.polls {
		c := pick(p)
		avgs[i], stds[i] = c.DeviationAvg, c.DeviationStdDev
		mins[i], maxs[i] = c.DeviationMin, c.DeviationMax
	}
	lo, _ := minMax(mins)
	_, hi := minMax(maxs)
	return ChannelDeviation{
		Avg:    mean(avgs),
		StdDev: mean(stds),
		Min:    lo,
		Max:    hi,
	}
}

// --- numeric helpers; all callers guarantee len(xs) > 0, so the empty-input
// errors from stats cannot occur ---

func mean(xs []float64) float64 {
	m, _ := stats.Mean(xs)
	return m
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	sd, _ := stats.StandardDeviationPopulation(xs)
	return sd
}

func median(xs []float64) float64 {
	m, _ := stats.Median(xs)
	return m
}

func minMax(xs []float64) (float64, float64) {
	lo, _ := stats.Min(xs)
	hi, _ := stats.Max(xs)
	return lo, hi
}
