package main

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config  string `short:"f" long:"config" description:"YAML config path"`
	Verbose bool   `short:"v" long:"verbose" description:"dump gateway requests and responses to stderr"`
	Quiet   bool   `long:"quiet" description:"suppress progress output"`

	Queue      *QueueCmd      `command:"queue" description:"Show the call queue, newest first"`
	Get        *GetCmd        `command:"get" description:"Show one call with saved edits applied"`
	Simulate   *SimulateCmd   `command:"simulate" description:"Submit synthetic calls in paced batches"`
	Dispatch   *DispatchCmd   `command:"dispatch" description:"Confirm an ambulance dispatch for a call"`
	Edit       *EditCmd       `command:"edit" description:"Save operator edits for a call"`
	Clear      *ClearCmd      `command:"clear" description:"Delete every call on the backend"`
	Answer     *AnswerCmd     `command:"answer" description:"Mark a call as answered"`
	Transcribe *TranscribeCmd `command:"transcribe" description:"Attach a transcription to a call"`
	Process    *ProcessCmd    `command:"process" description:"Submit a single call for processing"`
	Proxy      *ProxyCmd      `command:"proxy" description:"Serve the gateway proxy over HTTP"`
}

// Init instantiates every sub-command so flags.Parse can populate whichever
// one is selected, wherever global flags appear.
func (o *Options) Init() {
	o.Queue = &QueueCmd{root: o}
	o.Get = &GetCmd{root: o}
	o.Simulate = &SimulateCmd{root: o}
	o.Dispatch = &DispatchCmd{root: o}
	o.Edit = &EditCmd{root: o}
	o.Clear = &ClearCmd{root: o}
	o.Answer = &AnswerCmd{root: o}
	o.Transcribe = &TranscribeCmd{root: o}
	o.Process = &ProcessCmd{root: o}
	o.Proxy = &ProxyCmd{root: o}
}
