// Package progress renders a live status line for a simulation run.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dispatchdesk/internal/collector"
)

const barWidth = 20

type Progress struct {
	startTime time.Time
	collector *collector.Collector
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopped   atomic.Bool
	quiet     bool
	output    io.Writer
	mu        sync.Mutex

	batch     int
	total     int
	processed int
	target    int
}

// NewProgress creates a progress line. c may be nil; when set, its batch
// latency is shown alongside the counts.
func NewProgress(c *collector.Collector, quiet bool) *Progress {
	return &Progress{
		collector: c,
		quiet:     quiet,
		output:    os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

func (p *Progress) Start() {
	if p.quiet {
		return
	}
	p.startTime = time.Now()
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(1 * time.Second)
	go p.run()
}

func (p *Progress) run() {
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			p.printProgress()
		}
	}
}

// Update records the state after a batch and redraws the line.
func (p *Progress) Update(batch, totalBatches, processed, target int) {
	p.mu.Lock()
	p.batch, p.total, p.processed, p.target = batch, totalBatches, processed, target
	p.mu.Unlock()
	if !p.quiet {
		p.printProgress()
	}
}

func (p *Progress) printProgress() {
	var p95 time.Duration
	if p.collector != nil {
		p95 = p.collector.Compute().Latency.P95
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime).Round(time.Second)
	if p.startTime.IsZero() {
		elapsed = 0
	}
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60

	fraction := 0.0
	if p.total > 0 {
		fraction = float64(p.batch) / float64(p.total)
	}
	line := fmt.Sprintf("[%02d:%02d] %s %3.0f%% | Batch %d/%d | Calls: %d/%d",
		mins, secs, bar(fraction), fraction*100, p.batch, p.total, p.processed, p.target)
	if p95 > 0 {
		line += " | p95: " + collector.FormatDuration(p95)
	}
	fmt.Fprintf(p.output, "\r\033[K%s", line)
}

func bar(fraction float64) string {
	filled := int(fraction * barWidth)
	filled = max(0, min(filled, barWidth))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func (p *Progress) Stop() {
	if p.quiet || p.stopped.Swap(true) {
		return
	}
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K")
	p.mu.Unlock()
}

func (p *Progress) Print(message string) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K%s\n", message)
	p.mu.Unlock()
}

func (p *Progress) Printf(format string, args ...any) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	fmt.Fprintf(p.output, "\r\033[K"+format+"\n", args...)
	p.mu.Unlock()
}
