package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/runnerr0/nclock/internal/offline"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	responder, err := c.responder(ctx, e)
	if err != nil {
		return err
	}

	host, port := e.cfg.Offline.Host, e.cfg.Offline.Port
	if c.Host != "" {
		host = c.Host
	}
	if c.Port != 0 {
		port = c.Port
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           responder,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("serving offline shell", "addr", addr, "cache", responder.Version())
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("Serving on http://%s (Ctrl-C to stop)\n", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// responder installs and activates the current cache version. A failed
// install is not fatal: documents are cached as they are fetched.
func (c *ServeCommand) responder(ctx context.Context, e *env) (*offline.Responder, error) {
	network := offline.EmbeddedOrigin()
	upstream := e.cfg.Offline.Upstream
	if c.Upstream != "" {
		upstream = c.Upstream
	}
	if upstream != "" {
		origin, err := offline.UpstreamOrigin(upstream, nil)
		if err != nil {
			return nil, err
		}
		network = origin
	}

	r := offline.NewResponder(offline.NewCacheStorage(e.store), e.cfg.Offline.CacheVersion, network, e.logger)
	if err := r.Install(ctx); err != nil {
		e.logger.Warn("offline precache incomplete", "error", err)
	}
	if _, err := r.Activate(ctx); err != nil {
		e.logger.Warn("removing old offline caches", "error", err)
	}
	return r, nil
}
