package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"dispatchdesk/internal/call"
	"dispatchdesk/internal/filter"
	"dispatchdesk/internal/gateway"
	"dispatchdesk/internal/queue"
)

// QueueCmd prints the filtered call queue once, or keeps polling with --watch.
type QueueCmd struct {
	Query       string `short:"q" long:"query" description:"case-insensitive match on phone, address, condition or call id"`
	Criticality string `short:"c" long:"criticality" default:"all" description:"all, high, medium or low"`
	Limit       int    `short:"n" long:"limit" description:"maximum calls shown (default from config)"`
	Active      bool   `long:"active" description:"list only active calls"`
	Watch       bool   `short:"w" long:"watch" description:"re-sync every poll interval until interrupted"`
	JSON        bool   `long:"json" description:"print calls as JSON"`

	root *Options
}

func (c *QueueCmd) Execute(_ []string) error {
	crit, err := filter.ParseCriticality(c.Criticality)
	if err != nil {
		return err
	}
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	limit := c.Limit
	if limit <= 0 {
		limit = d.cfg.Queue.DisplayLimit
	}
	criteria := filter.Criteria{Query: c.Query, Criticality: crit, Limit: limit}

	mode := gateway.ListAll
	if c.Active {
		mode = gateway.ListActive
	}
	syncer := queue.New(d.client, queue.Options{Interval: d.cfg.Queue.PollInterval, Mode: mode})

	if !c.Watch {
		snapshot, err := syncer.Sync(context.Background())
		if err != nil {
			return err
		}
		return c.render(stdout, snapshot, criteria)
	}

	ctx, stop := signalContext()
	defer stop()
	h := syncer.Start(ctx, func(r queue.Result) {
		if r.Err != nil {
			d.notifyError("Sync failed", r.Err)
			return
		}
		if err := c.render(stdout, r.Calls, criteria); err != nil {
			d.notifyError("Render failed", err)
		}
	})
	<-ctx.Done()
	h.Stop()
	<-h.Done()
	return nil
}

func (c *QueueCmd) render(w io.Writer, snapshot []call.Call, criteria filter.Criteria) error {
	shown := filter.Apply(snapshot, criteria)
	if c.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(shown)
	}
	return writeQueue(w, snapshot, shown, criteria)
}

func writeQueue(w io.Writer, snapshot, shown []call.Call, criteria filter.Criteria) error {
	matched, total := filter.Counts(snapshot, criteria)
	fmt.Fprintf(w, "Calls: %d shown, %d matching, %d total\n", len(shown), matched, total)
	if len(shown) == 0 {
		fmt.Fprintln(w, "No calls match the current filters")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCALL ID\tCRITICALITY\tCONDITION\tPHONE\tADDRESS")
	for _, cl := range shown {
		v := call.Display(cl)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.Time, v.CallID, v.Criticality, v.Condition, v.PhoneNumber, v.Address)
	}
	return tw.Flush()
}
