package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/kiranshivaraju/printwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t, e0, e0t, e1, e1t, bed, bedt float64) models.TemperatureSample {
	return models.TemperatureSample{
		Time:          t,
		Extruder0Temp: e0, Extruder0Target: e0t,
		Extruder1Temp: e1, Extruder1Target: e1t,
		BedTemp: bed, BedTarget: bedt,
	}
}

// --- Reduce tests ---

func TestReduce_Empty(t *testing.T) {
	s, ok := Reduce(nil)
	assert.False(t, ok)
	assert.Equal(t, Summary{}, s)

	_, ok = Reduce([]models.TemperatureSample{})
	assert.False(t, ok)
}

func TestReduce_SingleSample(t *testing.T) {
	s, ok := Reduce([]models.TemperatureSample{sample(10, 208, 210, 0, 0, 61, 60)})
	require.True(t, ok)

	assert.Equal(t, 1, s.Samples)
	assert.Equal(t, 0.0, s.SpanSeconds)

	assert.Equal(t, 208.0, s.Extruder0.Median)
	assert.Equal(t, 0.0, s.Extruder0.StdDev)
	assert.Equal(t, 0.0, s.Extruder0.DeviationStdDev)
	assert.Equal(t, 2.0, s.Extruder0.DeviationMin)
	assert.Equal(t, 2.0, s.Extruder0.DeviationMax)
	assert.Equal(t, 2.0, s.Extruder0.DeviationAvg)

	assert.Equal(t, 1.0, s.Bed.DeviationAvg)
	assert.Equal(t, 0.0, s.Extruder1.DeviationAvg)
}

func TestReduce_Statistics(t *testing.T) {
	samples := []models.TemperatureSample{
		sample(100.0, 209, 210, 20, 0, 59, 60),
		sample(100.1, 211, 210, 20, 0, 60, 60),
		sample(100.2, 212, 210, 20, 0, 61, 60),
		sample(100.3, 208, 210, 20, 0, 62, 60),
	}

	s, ok := Reduce(samples)
	require.True(t, ok)

	assert.Equal(t, 4, s.Samples)
	assert.InDelta(t, 0.3, s.SpanSeconds, 1e-9)

	// current: 208 209 211 212 -> median 210, mean 210, pop var (4+1+1+4)/4
	assert.Equal(t, 210.0, s.Extruder0.Median)
	assert.InDelta(t, math.Sqrt(2.5), s.Extruder0.StdDev, 1e-9)

	// deviation: 1 1 2 2
	assert.Equal(t, 1.0, s.Extruder0.DeviationMin)
	assert.Equal(t, 2.0, s.Extruder0.DeviationMax)
	assert.Equal(t, 1.5, s.Extruder0.DeviationAvg)
	assert.InDelta(t, 0.5, s.Extruder0.DeviationStdDev, 1e-9)

	// unheated second extruder: deviation is |0 - 20|
	assert.Equal(t, 20.0, s.Extruder1.DeviationAvg)
	assert.Equal(t, 0.0, s.Extruder1.StdDev)

	// bed deviation: 1 0 1 2
	assert.Equal(t, 0.0, s.Bed.DeviationMin)
	assert.Equal(t, 2.0, s.Bed.DeviationMax)
	assert.Equal(t, 1.0, s.Bed.DeviationAvg)
}

func TestReduce_OddMedian(t *testing.T) {
	s, ok := Reduce([]models.TemperatureSample{
		sample(0, 215, 0, 0, 0, 0, 0),
		sample(1, 205, 0, 0, 0, 0, 0),
		sample(2, 210, 0, 0, 0, 0, 0),
	})
	require.True(t, ok)
	assert.Equal(t, 210.0, s.Extruder0.Median)
}

func TestReduce_DoesNotReorderInput(t *testing.T) {
	samples := []models.TemperatureSample{
		sample(0, 215, 0, 0, 0, 0, 0),
		sample(1, 205, 0, 0, 0, 0, 0),
	}
	_, _ = Reduce(samples)
	assert.Equal(t, 215.0, samples[0].Extruder0Temp)
}

// --- Accumulator tests ---

func TestAccumulator_Empty(t *testing.T) {
	var acc Accumulator
	_, ok := acc.Summary()
	assert.False(t, ok)
	assert.Equal(t, 0, acc.Len())
}

func TestAccumulator_MeanOfMeans(t *testing.T) {
	var acc Accumulator

	// Poll 1: one sample with deviation 4.
	p1, ok := Reduce([]models.TemperatureSample{sample(0, 206, 210, 0, 0, 60, 60)})
	require.True(t, ok)
	acc.Add(p1)

	// Poll 2: three samples with deviation 0, 0, 0.
	p2, ok := Reduce([]models.TemperatureSample{
		sample(10, 210, 210, 0, 0, 60, 60),
		sample(11, 210, 210, 0, 0, 60, 60),
		sample(12, 210, 210, 0, 0, 60, 60),
	})
	require.True(t, ok)
	acc.Add(p2)

	js, ok := acc.Summary()
	require.True(t, ok)

	assert.Equal(t, 2, js.Polls)
	assert.Equal(t, 4, js.Samples)
	assert.Equal(t, 2.0, js.SpanSeconds)

	// Mean of per-poll means is (4 + 0) / 2 = 2, not 4/4 = 1 over raw samples.
	assert.Equal(t, 2.0, js.Extruder0.Avg)
	assert.Equal(t, 0.0, js.Extruder0.Min)
	assert.Equal(t, 4.0, js.Extruder0.Max)
	assert.Equal(t, 0.0, js.Extruder0.StdDev)
}

func TestAccumulator_MinMaxAcrossPolls(t *testing.T) {
	var acc Accumulator
	acc.Add(Summary{Bed: ChannelStats{DeviationMin: 0.5, DeviationMax: 3, DeviationAvg: 1, DeviationStdDev: 0.2}})
	acc.Add(Summary{Bed: ChannelStats{DeviationMin: 0.1, DeviationMax: 2, DeviationAvg: 2, DeviationStdDev: 0.4}})

	js, ok := acc.Summary()
	require.True(t, ok)
	assert.Equal(t, 0.1, js.Bed.Min)
	assert.Equal(t, 3.0, js.Bed.Max)
	assert.InDelta(t, 1.5, js.Bed.Avg, 1e-9)
	assert.InDelta(t, 0.3, js.Bed.StdDev, 1e-9)
}

// --- formatting ---

func TestFormat_UnavailableIsNotZeros(t *testing.T) {
	text := FormatJobSummary(JobSummary{}, false)
	assert.Equal(t, UnavailableText, text)
	assert.NotContains(t, text, "0.000")

	assert.Equal(t, UnavailableText, FormatSummary(Summary{}, false))
}

func TestFormatJobSummary(t *testing.T) {
	text := FormatJobSummary(JobSummary{
		Polls: 2, Samples: 10, SpanSeconds: 120,
		Bed: ChannelDeviation{Avg: 0.25, Max: 1},
	}, true)

	assert.True(t, strings.HasPrefix(text, "CalculationTime: 2.000 min"))
	assert.Contains(t, text, "BedTemp\n\tDeviationAvg: 0.250000 C")
	assert.Contains(t, text, "Extruder0Temp")
}
