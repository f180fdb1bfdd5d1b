package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dispatchdesk/internal/config"
	"dispatchdesk/internal/core"
	"dispatchdesk/internal/events"
	"dispatchdesk/internal/gateway"
	"dispatchdesk/internal/ratelimit"
	"dispatchdesk/internal/store"
)

// inProcessOrigin is the base URL the client uses when the proxy runs in the
// same process. Requests never leave the process.
const inProcessOrigin = "http://dispatchdesk.local"

// desk holds what every command shares: config, the gateway client and the
// notification bus, whose messages are printed to stderr.
type desk struct {
	cfg    *config.Config
	cfgDir string
	client *gateway.Client
	bus    *events.Bus
	logger *log.Logger
	debug  bool

	printed chan struct{}
	store   *store.Store
}

func (o *Options) open() (*desk, error) {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, err
	}

	d := &desk{
		cfg:     cfg,
		logger:  log.New(stderr, "", log.LstdFlags),
		debug:   o.Verbose,
		bus:     events.NewBus(),
		printed: make(chan struct{}),
	}
	if o.Config != "" {
		d.cfgDir = filepath.Dir(o.Config)
	}

	var debug *gateway.DebugLogger
	if o.Verbose {
		debug = gateway.NewDebugLogger(stderr)
	}
	if cfg.GatewayURL == "" {
		proxy := d.newProxy(ratelimit.NewRateLimiter(cfg.Proxy.RPS))
		d.client = gateway.NewClient(inProcessOrigin, &http.Client{
			Transport: gateway.HandlerTransport{Handler: proxy},
			Timeout:   cfg.RequestTimeout,
		}, debug)
	} else {
		d.client = gateway.NewClient(cfg.GatewayURL, &http.Client{Timeout: cfg.RequestTimeout}, debug)
	}

	notes, _ := d.bus.Subscribe()
	go func() {
		defer close(d.printed)
		for n := range notes {
			fmt.Fprintln(stderr, formatNotification(n))
		}
	}()
	return d, nil
}

// newProxy builds the gateway proxy to the configured backend. Its request
// log is only shown with --verbose.
func (d *desk) newProxy(limiter *ratelimit.RateLimiter) *gateway.Proxy {
	var logger *log.Logger
	if d.debug {
		logger = d.logger
	}
	return gateway.NewProxy(d.cfg.BackendURL,
		&http.Client{Timeout: d.cfg.RequestTimeout},
		limiter,
		logger)
}

// openStore opens the edits database on first use.
func (d *desk) openStore() (*store.Store, error) {
	if d.store != nil {
		return d.store, nil
	}
	s, err := store.Open(d.cfg.Store.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening edits store: %w", err)
	}
	d.store = s
	return s, nil
}

// Close flushes pending notifications and releases the store.
func (d *desk) Close() {
	d.bus.Close()
	<-d.printed
	if d.store != nil {
		d.store.Close()
	}
}

// resolve makes a config-relative path absolute against the config file's
// directory.
func (d *desk) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || d.cfgDir == "" {
		return path
	}
	return filepath.Join(d.cfgDir, path)
}

func (d *desk) notifyError(title string, err error) {
	d.bus.Notify(core.Notification{Kind: core.KindError, Title: title, Message: err.Error()})
}

func formatNotification(n core.Notification) string {
	var mark string
	switch n.Kind {
	case core.KindError:
		mark = "!"
	case core.KindSuccess, core.KindDispatched:
		mark = "+"
	default:
		mark = "*"
	}
	if n.Message == "" {
		return fmt.Sprintf("[%s] %s", mark, n.Title)
	}
	return fmt.Sprintf("[%s] %s: %s", mark, n.Title, n.Message)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// confirm asks a yes/no question on stdin. Anything but y or yes is no.
func confirm(prompt string) bool {
	fmt.Fprintf(stdout, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
