package gateway

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const maxBodyLogSize = 1024

// DebugLogger traces gateway exchanges for --verbose. Each request and its
// outcome is written as a short block; batch payloads are summarized by
// size and responses by their processed count or error field.
// A nil *DebugLogger is silent.
type DebugLogger struct {
	mu  sync.Mutex
	out io.Writer
}

func NewDebugLogger(out io.Writer) *DebugLogger {
	return &DebugLogger{out: out}
}

// Request records an outgoing call. payload is the encoded JSON body, if any.
func (d *DebugLogger) Request(op, method, url string, payload []byte) {
	if d == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n-> %s: %s %s\n", op, method, url)
	if len(payload) > 0 {
		if n, ok := itemCount(payload); ok {
			fmt.Fprintf(&b, "   %d calls\n", n)
		}
		fmt.Fprintf(&b, "   payload: %s\n", truncateBody(payload))
	}
	d.write(b.String())
}

// Response records the status and body the gateway answered with.
func (d *DebugLogger) Response(op string, status int, body []byte, took time.Duration) {
	if d == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<- %s: %d in %s\n", op, status, took.Round(time.Millisecond))
	if gjson.ValidBytes(body) {
		if v := gjson.GetBytes(body, "processed"); v.Exists() {
			fmt.Fprintf(&b, "   processed: %d\n", v.Int())
		}
		if v := gjson.GetBytes(body, "error"); v.Exists() {
			fmt.Fprintf(&b, "   error: %s\n", v.String())
		}
		if n, ok := itemCount(body); ok {
			fmt.Fprintf(&b, "   %d calls\n", n)
		}
	}
	if len(body) > 0 {
		fmt.Fprintf(&b, "   body: %s\n", truncateBody(body))
	}
	d.write(b.String())
}

// Failure records a request that produced no response.
func (d *DebugLogger) Failure(op string, err error, took time.Duration) {
	if d == nil {
		return
	}
	d.write(fmt.Sprintf("!! %s failed after %s: %v\n", op, took.Round(time.Millisecond), err))
}

func (d *DebugLogger) write(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	io.WriteString(d.out, s)
}

// itemCount reports the length of a top-level JSON array.
func itemCount(body []byte) (int, bool) {
	v := gjson.ParseBytes(body)
	if !v.IsArray() {
		return 0, false
	}
	return len(v.Array()), true
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyLogSize {
		return string(body)
	}
	return fmt.Sprintf("%s... (%d bytes)", body[:maxBodyLogSize], len(body))
}
