package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dispatchdesk/internal/config"
	"dispatchdesk/internal/ratelimit"
)

// ProxyCmd serves the gateway proxy so other dashboards can share one
// backend configuration. It fails closed when the backend URL is unset.
type ProxyCmd struct {
	Listen string `short:"l" long:"listen" description:"listen address (default from config)"`

	root *Options
}

func (c *ProxyCmd) Execute(_ []string) error {
	d, err := c.root.open()
	if err != nil {
		return err
	}
	defer d.Close()

	addr := c.Listen
	if addr == "" {
		addr = d.cfg.Proxy.Listen
	}

	// The server always logs forwarded requests.
	d.debug = true
	limiter := ratelimit.NewRateLimiter(d.cfg.Proxy.RPS)
	proxy := d.newProxy(limiter)
	if !proxy.Configured() {
		d.logger.Printf("warning: %s is not set; every request will fail with a configuration error", config.EnvBackendURL)
	}
	if limiter != nil {
		d.logger.Printf("backend requests limited to %d/s", limiter.Rate())
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           proxy,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	d.logger.Printf("gateway proxy listening on %s, forwarding to %s", addr, d.cfg.BackendURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	d.logger.Printf("gateway proxy stopped")
	return nil
}
