package main

import (
	"fmt"

	"dispatchdesk/internal/dispatch"
)

// DispatchCmd shows the selected call and asks for confirmation before
// dispatching an ambulance. Declining cancels the action.
type DispatchCmd struct {
	Yes  bool      `short:"y" long:"yes" description:"confirm without asking"`
	Args callIDArg `positional-args:"yes"`

	root *Options
}

func (c *DispatchCmd) Execute(_ []string) error {
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signalContext()
	defer stop()

	cl, err := d.client.GetCall(ctx, c.Args.CallID)
	if err != nil {
		return err
	}
	writeCall(stdout, cl)
	fmt.Fprintln(stdout)

	latency := d.cfg.Dispatch.Latency
	if latency == 0 {
		latency = -1
	}
	var action *dispatch.Action
	action = dispatch.New(cl.CallID, dispatch.Options{
		Latency:  latency,
		Notifier: d.bus,
		OnDismiss: func() {
			fmt.Fprintf(stdout, "Dispatch %s confirmed for call %s\n", action.ID, cl.CallID)
		},
	})

	if !c.Yes && !confirm(fmt.Sprintf("Dispatch an ambulance to call %s?", cl.CallID)) {
		if err := action.Cancel(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Dispatch cancelled")
		return nil
	}

	fmt.Fprintln(stdout, "Dispatching...")
	return action.Confirm(ctx)
}
