package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidwall/gjson"

	"dispatchdesk/internal/collector"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/data"
	"dispatchdesk/internal/progress"
	"dispatchdesk/internal/simulate"
)

// SimulateCmd submits synthetic calls in sequential batches and prints a
// summary. The first interrupt stops after the in-flight batch; a second one
// abandons it.
type SimulateCmd struct {
	Count     int           `short:"n" long:"count" default:"100" description:"number of calls (1-1000)"`
	BatchSize int           `long:"batch-size" description:"calls per batch (default from config)"`
	Pacing    time.Duration `long:"pacing" description:"pause between batches (default from config)"`
	NoPacing  bool          `long:"no-pacing" description:"submit batches back to back"`
	Exemplars string        `long:"exemplars" description:"JSON or CSV exemplar file, reloaded when it changes"`
	Output    string        `long:"output" choice:"text" choice:"json" default:"text" description:"summary format"`
	Server    bool          `long:"server" description:"let the backend generate the calls in one request"`

	root *Options
}

func (c *SimulateCmd) Execute(_ []string) error {
	if err := simulate.ValidateTarget(c.Count); err != nil {
		return err
	}
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	if c.Server {
		return c.serverSide(d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := c.pool(ctx, d)
	if err != nil {
		return err
	}

	opts := simulate.Options{
		BatchSize: d.cfg.Simulation.BatchSize,
		Pacing:    d.cfg.Simulation.Pacing,
		Pool:      pool,
		Notifier:  d.bus,
	}
	if c.BatchSize > 0 {
		opts.BatchSize = c.BatchSize
	}
	if c.Pacing > 0 {
		opts.Pacing = c.Pacing
	}
	if c.NoPacing {
		opts.Pacing = 0
	}
	if d.debug {
		opts.Logger = d.logger
	}

	coll := collector.NewCollector(nil)
	opts.Collector = coll
	prog := progress.NewProgress(coll, c.root.Quiet || c.Output == "json")

	stop := simulate.NewStopToken()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		prog.Print("Stopping after the current batch...")
		stop.Stop()
		<-sigCh
		cancel()
	}()

	events, run, err := simulate.New(d.client, opts).Run(ctx, c.Count, stop)
	if err != nil {
		return err
	}
	prog.Printf("Simulating %d calls in batches of %d", run.Target, run.BatchSize)
	prog.Start()
	for p := range events {
		prog.Update(p.Batch, p.TotalBatches, p.Processed, p.Target)
	}
	run.Wait()
	prog.Stop()
	coll.Close()

	summary := coll.Compute()
	if c.Output == "json" {
		collector.FormatJSON(stdout, summary, coll.Outcomes())
	} else {
		collector.FormatText(stdout, summary, coll.Outcomes())
	}
	return run.Err()
}

// pool loads exemplars from --exemplars or the config and keeps them in sync
// with the file. Without a file the built-in exemplars are used.
func (c *SimulateCmd) pool(ctx context.Context, d *desk) (*data.Pool, error) {
	path := c.Exemplars
	if path == "" {
		path = d.resolve(d.cfg.Simulation.Exemplars)
	}
	if path == "" {
		return data.NewPool(nil, 0), nil
	}

	exemplars, err := data.LoadFile(path, "")
	if err != nil {
		return nil, err
	}
	pool := data.NewPool(exemplars, 0)
	err = pool.Watch(ctx, path, func(err error) {
		if err != nil {
			d.notifyError("Exemplar reload failed", err)
			return
		}
		d.bus.Notify(core.Notification{
			Kind:    core.KindInfo,
			Title:   "Exemplars reloaded",
			Message: fmt.Sprintf("%d exemplars from %s", pool.Len(), path),
		})
	})
	if err != nil {
		// Reload is best effort.
		d.logger.Printf("not watching %s: %v", path, err)
	}
	return pool, nil
}

func (c *SimulateCmd) serverSide(d *desk) error {
	ctx, stop := signalContext()
	defer stop()

	body, err := d.client.BatchSimulate(ctx, c.Count)
	if err != nil {
		d.notifyError("Simulation Error", err)
		return err
	}
	processed := gjson.GetBytes(body, "processed").Int()
	d.bus.Notify(core.Notification{
		Kind:    core.KindSuccess,
		Title:   "Simulation Complete",
		Message: fmt.Sprintf("Successfully processed %d of %d calls.", processed, c.Count),
	})
	if c.Output == "json" {
		return writeRaw(body)
	}
	return nil
}
