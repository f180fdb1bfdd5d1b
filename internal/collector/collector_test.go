package collector

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatchdesk/internal/core"
)

func TestCollector_ReportAndClose(t *testing.T) {
	clock := core.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewCollector(clock)

	c.Report(BatchOutcome{Index: 1, Submitted: 10, Processed: 10, Duration: 20 * time.Millisecond})
	c.Report(BatchOutcome{Index: 2, Submitted: 10, Processed: 8, Duration: 40 * time.Millisecond})
	clock.Advance(2 * time.Second)
	c.Close()
	c.Close()

	outcomes := c.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, 1, outcomes[0].Index)
	assert.Equal(t, 2*time.Second, c.Duration())

	s := c.Compute()
	assert.Equal(t, 2, s.Batches)
	assert.Equal(t, 18, s.Processed)
	assert.InDelta(t, 9.0, s.CallsPerSec, 0.001)
}

func TestCollector_ConcurrentReports(t *testing.T) {
	c := NewCollector(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Report(BatchOutcome{Index: i + 1, Submitted: 1, Processed: 1})
		}(i)
	}
	wg.Wait()
	c.Close()
	assert.Len(t, c.Outcomes(), 50)
}

func TestComputeSummary(t *testing.T) {
	outcomes := []BatchOutcome{
		{Index: 1, Submitted: 10, Processed: 10, Duration: 10 * time.Millisecond},
		{Index: 2, Submitted: 10, Processed: 7, Duration: 30 * time.Millisecond},
		{Index: 3, Submitted: 5, Duration: 20 * time.Millisecond, Err: "status 500"},
	}
	s := ComputeSummary(outcomes, time.Second)

	assert.Equal(t, 3, s.Batches)
	assert.Equal(t, 1, s.FailedBatches)
	assert.Equal(t, 20, s.Submitted)
	assert.Equal(t, 17, s.Processed)
	assert.Equal(t, 3, s.UnderReported)
	assert.InDelta(t, 17.0, s.CallsPerSec, 0.001)
	assert.Equal(t, 10*time.Millisecond, s.Latency.Min)
	assert.Equal(t, 30*time.Millisecond, s.Latency.Max)
	assert.Equal(t, 20*time.Millisecond, s.Latency.Avg)
}

func TestComputeSummary_Empty(t *testing.T) {
	s := ComputeSummary(nil, 0)
	assert.Zero(t, s.Batches)
	assert.Zero(t, s.CallsPerSec)
	assert.Equal(t, DurationMetrics{}, s.Latency)
}

func TestComputePercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{0.5, 5},
		{0.9, 9},
		{1, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputePercentile(sorted, tt.p), "p=%v", tt.p)
	}
	assert.Zero(t, ComputePercentile(nil, 0.5))
}

func TestFormatText(t *testing.T) {
	outcomes := []BatchOutcome{
		{Index: 1, Submitted: 10, Processed: 9, Duration: 15 * time.Millisecond},
		{Index: 2, Submitted: 10, Duration: 5 * time.Millisecond, Err: "status 500: boom"},
	}
	var buf bytes.Buffer
	FormatText(&buf, ComputeSummary(outcomes, 2*time.Second), outcomes)

	out := buf.String()
	assert.Contains(t, out, "Simulation Results")
	assert.Contains(t, out, "Batches:        2 (1 failed)")
	assert.Contains(t, out, "Calls:          9 processed / 10 submitted")
	assert.Contains(t, out, "Under-reported: 1")
	assert.Contains(t, out, "FAILED: status 500: boom")
}

func TestFormatText_NoBatches(t *testing.T) {
	var buf bytes.Buffer
	FormatText(&buf, ComputeSummary(nil, 0), nil)
	assert.Equal(t, "No batches submitted\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	outcomes := []BatchOutcome{{Index: 1, Submitted: 5, Processed: 5, Duration: 1500 * time.Millisecond}}
	var buf bytes.Buffer
	FormatJSON(&buf, ComputeSummary(outcomes, 3*time.Second), outcomes)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "3s", got["duration"])
	assert.EqualValues(t, 5, got["processed"])
	latency := got["latency"].(map[string]any)
	assert.Equal(t, "1.5s", latency["max"])
	require.Len(t, got["outcomes"], 1)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500µs", FormatDuration(500*time.Microsecond))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "2.5s", FormatDuration(2500*time.Millisecond))
	assert.Equal(t, "2m0s", FormatDuration(2*time.Minute))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
}
