package collector

import (
	"sort"
	"time"
)

// Summary contains aggregated results of a simulation run.
type Summary struct {
	Batches       int             `json:"batches"`
	FailedBatches int             `json:"failedBatches"`
	Submitted     int             `json:"submitted"`
	Processed     int             `json:"processed"`
	UnderReported int             `json:"underReported"`
	CallsPerSec   float64         `json:"callsPerSec"`
	RunDuration   time.Duration   `json:"runDuration"`
	Latency       DurationMetrics `json:"latency"`
}

// DurationMetrics contains latency statistics.
type DurationMetrics struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// ComputeSummary summarizes outcomes. Pure function, no side effects.
// Only successful batches count toward Submitted and Processed; the backend
// accepted nothing from a failed one.
func ComputeSummary(outcomes []BatchOutcome, runDuration time.Duration) *Summary {
	s := &Summary{RunDuration: runDuration}
	if len(outcomes) == 0 {
		return s
	}

	durations := make([]time.Duration, 0, len(outcomes))
	for _, o := range outcomes {
		s.Batches++
		durations = append(durations, o.Duration)
		if o.Failed() {
			s.FailedBatches++
			continue
		}
		s.Submitted += o.Submitted
		s.Processed += o.Processed
		if o.Processed < o.Submitted {
			s.UnderReported += o.Submitted - o.Processed
		}
	}

	if runDuration > 0 {
		s.CallsPerSec = float64(s.Processed) / runDuration.Seconds()
	}
	s.Latency = ComputeDurationMetrics(durations)
	return s
}

// ComputePercentile returns the p-th percentile (0..1) of an ascending slice
// using the nearest-rank method.
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// ComputeDurationMetrics calculates latency statistics for durations.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P90: ComputePercentile(sorted, 0.90),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
