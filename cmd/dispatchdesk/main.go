// Command dispatchdesk is the operator console for emergency call triage.
//
// Usage:
//
//	dispatchdesk [-f config.yaml] [-v] <command> [flags]
//
// Commands: queue, get, simulate, dispatch, edit, clear, answer, transcribe,
// process, proxy. Run "dispatchdesk <command> --help" for flags.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(Run(os.Args[1:]))
}

// Run parses args, executes the selected command and returns the exit code.
func Run(args []string) int {
	opts := &Options{}
	opts.Init()

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) {
			if ferr.Type == flags.ErrHelp {
				fmt.Fprintln(stdout, ferr.Message)
				return ExitSuccess
			}
			fmt.Fprintf(stderr, "error: %v\n", err)
			return ExitUsage
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitFailure
	}
	return ExitSuccess
}
