package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// FormatText writes a human-readable run report.
func FormatText(w io.Writer, s *Summary, outcomes []BatchOutcome) {
	if s.Batches == 0 {
		fmt.Fprintln(w, "No batches submitted")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Simulation Results")
	fmt.Fprintln(w, "==================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %v\n", s.RunDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Batches:        %d (%d failed)\n", s.Batches, s.FailedBatches)
	fmt.Fprintf(w, "Calls:          %s processed / %s submitted\n", formatNumber(s.Processed), formatNumber(s.Submitted))
	if s.UnderReported > 0 {
		fmt.Fprintf(w, "Under-reported: %s\n", formatNumber(s.UnderReported))
	}
	fmt.Fprintf(w, "Calls/sec:      %.1f\n", s.CallsPerSec)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Batch Latency:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(s.Latency.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(s.Latency.Avg))
	fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(s.Latency.P50))
	fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(s.Latency.P95))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(s.Latency.Max))

	if len(outcomes) == 0 {
		return
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Batch:")
	for _, o := range outcomes {
		status := "ok"
		if o.Failed() {
			status = "FAILED: " + o.Err
		}
		fmt.Fprintf(w, "  #%-4d %3d/%-3d %8s  %s\n",
			o.Index, o.Processed, o.Submitted, FormatDuration(o.Duration), status)
	}
}

// FormatJSON writes the summary and outcomes as indented JSON.
func FormatJSON(w io.Writer, s *Summary, outcomes []BatchOutcome) {
	output := struct {
		Duration      string              `json:"duration"`
		Batches       int                 `json:"batches"`
		FailedBatches int                 `json:"failedBatches"`
		Submitted     int                 `json:"submitted"`
		Processed     int                 `json:"processed"`
		UnderReported int                 `json:"underReported"`
		CallsPerSec   float64             `json:"callsPerSec"`
		Latency       jsonDurationMetrics `json:"latency"`
		Outcomes      []jsonOutcome       `json:"outcomes,omitempty"`
	}{
		Duration:      s.RunDuration.Round(time.Millisecond).String(),
		Batches:       s.Batches,
		FailedBatches: s.FailedBatches,
		Submitted:     s.Submitted,
		Processed:     s.Processed,
		UnderReported: s.UnderReported,
		CallsPerSec:   s.CallsPerSec,
		Latency:       toJSONDurationMetrics(s.Latency),
	}

	for _, o := range outcomes {
		output.Outcomes = append(output.Outcomes, jsonOutcome{
			Index:     o.Index,
			Submitted: o.Submitted,
			Processed: o.Processed,
			Duration:  FormatDuration(o.Duration),
			Error:     o.Err,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonOutcome struct {
	Index     int    `json:"index"`
	Submitted int    `json:"submitted"`
	Processed int    `json:"processed"`
	Duration  string `json:"duration"`
	Error     string `json:"error,omitempty"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}
