package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"dispatchdesk/internal/call"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/queue"
)

type callIDArg struct {
	CallID string `positional-arg-name:"call-id" required:"yes"`
}

// GetCmd prints one call with the operator's saved edits applied.
type GetCmd struct {
	JSON bool      `long:"json" description:"print the call as JSON"`
	Args callIDArg `positional-args:"yes"`

	root *Options
}

func (c *GetCmd) Execute(_ []string) error {
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	cl, err := d.client.GetCall(ctx, c.Args.CallID)
	if err != nil {
		return err
	}
	s, err := d.openStore()
	if err != nil {
		return err
	}
	edits, ok, err := s.LoadEdits(ctx, cl.CallID)
	if err != nil {
		return err
	}
	if ok {
		cl = call.Apply(cl, edits)
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cl)
	}
	writeCall(stdout, cl)
	if ok {
		fmt.Fprintf(stdout, "\nOperator edits saved %s\n", edits.SavedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func writeCall(w io.Writer, c call.Call) {
	v := call.Display(c)
	rows := [][2]string{
		{"Call ID", v.CallID},
		{"Time", v.Time},
		{"Phone", v.PhoneNumber},
		{"Criticality", v.Criticality},
		{"Condition", v.Condition},
		{"Address", v.Address},
		{"Landmark", v.Landmark},
		{"City", v.City},
		{"Patient age", v.PatientAge},
		{"Patient gender", v.PatientGender},
		{"Symptoms", v.Symptoms},
		{"Notes", v.AdditionalNotes},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-15s %s\n", r[0]+":", r[1])
	}
	fmt.Fprintf(w, "\nTranscription:\n%s\n", v.Transcription)
}

// EditCmd saves operator edits as an overlay on the backend's call. Only the
// flags given are changed; earlier edits to other fields are kept.
type EditCmd struct {
	Address     *string `long:"address" description:"street address"`
	Landmark    *string `long:"landmark" description:"nearby landmark"`
	City        *string `long:"city" description:"city"`
	Criticality *string `long:"criticality" description:"high, medium or low"`
	Condition   *string `long:"condition" description:"patient condition"`
	Age         *int    `long:"age" description:"patient age"`
	Gender      *string `long:"gender" description:"patient gender"`
	Symptoms    *string `long:"symptoms" description:"comma-separated symptoms; empty clears them"`
	Notes       *string `long:"notes" description:"additional notes"`
	Reset       bool    `long:"reset" description:"discard all saved edits for the call"`

	Args callIDArg `positional-args:"yes"`

	root *Options
}

func (c *EditCmd) Execute(_ []string) error {
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	s, err := d.openStore()
	if err != nil {
		return err
	}
	if c.Reset {
		if err := s.DeleteEdits(ctx, c.Args.CallID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Edits for call %s discarded\n", c.Args.CallID)
		return nil
	}

	// Edits are only kept for calls the backend knows.
	if _, err := d.client.GetCall(ctx, c.Args.CallID); err != nil {
		return err
	}
	edits, _, err := s.LoadEdits(ctx, c.Args.CallID)
	if err != nil {
		return err
	}
	edits.CallID = c.Args.CallID
	if err := c.merge(&edits); err != nil {
		return err
	}
	if edits.Empty() {
		return errors.New("nothing to save: pass at least one field flag")
	}

	saved, err := s.SaveEdits(ctx, edits)
	if err != nil {
		return err
	}
	d.bus.Notify(core.Notification{
		Kind:      core.KindSuccess,
		Title:     "Call details saved",
		Message:   fmt.Sprintf("Call %s has been saved successfully.", saved.CallID),
		CallID:    saved.CallID,
		Timestamp: saved.SavedAt,
	})
	return nil
}

func (c *EditCmd) merge(e *call.Edits) error {
	set := func(dst **string, v *string) {
		if v != nil {
			s := strings.TrimSpace(*v)
			*dst = &s
		}
	}
	set(&e.Address, c.Address)
	set(&e.Landmark, c.Landmark)
	set(&e.City, c.City)
	set(&e.Condition, c.Condition)
	set(&e.PatientGender, c.Gender)
	set(&e.AdditionalNotes, c.Notes)

	if c.Criticality != nil {
		crit := call.Criticality(strings.ToLower(strings.TrimSpace(*c.Criticality)))
		if !crit.Valid() {
			return fmt.Errorf("invalid criticality %q (use high, medium or low)", *c.Criticality)
		}
		e.Criticality = &crit
	}
	if c.Age != nil {
		if *c.Age < 0 {
			return fmt.Errorf("age must be >= 0, got %d", *c.Age)
		}
		age := *c.Age
		e.PatientAge = &age
	}
	if c.Symptoms != nil {
		e.Symptoms = splitList(*c.Symptoms)
	}
	return nil
}

// splitList splits a comma-separated list. An empty input gives an empty,
// non-nil list so clearing symptoms is still an edit.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ClearCmd deletes every call on the backend and every saved edit.
type ClearCmd struct {
	Yes bool `short:"y" long:"yes" description:"do not ask for confirmation"`

	root *Options
}

func (c *ClearCmd) Execute(_ []string) error {
	if !c.Yes && !confirm("Delete ALL calls on the backend?") {
		fmt.Fprintln(stdout, "Nothing cleared")
		return nil
	}
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()
	if err := queue.New(d.client, queue.Options{}).ClearAll(ctx); err != nil {
		d.notifyError("Clear failed", err)
		return err
	}
	s, err := d.openStore()
	if err != nil {
		return err
	}
	if err := s.DeleteAll(ctx); err != nil {
		return err
	}
	d.bus.Notify(core.Notification{Kind: core.KindSuccess, Title: "Calls cleared", Message: "All calls cleared"})
	return nil
}

// AnswerCmd marks a call as answered.
type AnswerCmd struct {
	Args callIDArg `positional-args:"yes"`

	root *Options
}

func (c *AnswerCmd) Execute(_ []string) error {
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	body, err := d.client.AnswerCall(context.Background(), c.Args.CallID)
	if err != nil {
		return err
	}
	return writeRaw(body)
}

// TranscribeCmd attaches operator-entered text to a call.
type TranscribeCmd struct {
	Args struct {
		CallID string   `positional-arg-name:"call-id" required:"yes"`
		Text   []string `positional-arg-name:"text" required:"1"`
	} `positional-args:"yes"`

	root *Options
}

func (c *TranscribeCmd) Execute(_ []string) error {
	text := strings.TrimSpace(strings.Join(c.Args.Text, " "))
	if text == "" {
		return errors.New("transcription text is empty")
	}
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	body, err := d.client.SubmitTranscription(context.Background(), c.Args.CallID, text)
	if err != nil {
		return err
	}
	return writeRaw(body)
}

// ProcessCmd submits one call. With --simulate the backend fills in any
// missing field from its own generator.
type ProcessCmd struct {
	Phone    string `long:"phone" description:"caller phone number"`
	Text     string `long:"text" description:"call transcription"`
	Simulate bool   `long:"simulate" description:"use the backend's simulate endpoint"`

	root *Options
}

func (c *ProcessCmd) Execute(_ []string) error {
	if !c.Simulate && strings.TrimSpace(c.Text) == "" {
		return errors.New("--text is required unless --simulate is set")
	}
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	sub := call.Submission{PhoneNumber: c.Phone, Transcription: c.Text}
	var body json.RawMessage
	if c.Simulate {
		body, err = d.client.Simulate(context.Background(), sub)
	} else {
		body, err = d.client.ProcessCall(context.Background(), sub)
	}
	if err != nil {
		return err
	}
	return writeRaw(body)
}

func writeRaw(body json.RawMessage) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		_, err = fmt.Fprintln(stdout, string(body))
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
