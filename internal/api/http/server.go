package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	serverShutdownTimeout = 5 * time.Second
	maxBindRetries        = 3
	bindRetryDelay        = 250 * time.Millisecond
)

// PortalServer runs the setup portal for the duration of an AP window. Start
// binds and serves; Stop shuts down gracefully. The pair can cycle many
// times in one process as the flow re-enters the AP state.
type PortalServer struct {
	cfg    Config
	engine *gin.Engine

	mu        sync.Mutex
	srv       *http.Server
	listener  net.Listener
	startedAt time.Time
}

func NewPortalServer(cfg Config, srvs *Services) *PortalServer {
	return &PortalServer{cfg: cfg, engine: NewRouter(srvs)}
}

// Start binds the portal synchronously so a failure surfaces to the caller,
// then serves in the background. A bind that loses a race with a previous
// window's teardown is retried.
func (p *PortalServer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.srv != nil {
		return fmt.Errorf("portal already running on %s", p.listener.Addr())
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.BindAddress, p.cfg.Port)
	var listener net.Listener
	var lastErr error
	for attempt := 1; attempt <= maxBindRetries; attempt++ {
		l, err := net.Listen("tcp", addr)
		if err == nil {
			listener = l
			lastErr = nil
			break
		}
		lastErr = err
		slog.Warn("Portal bind failed, retrying",
			"address", addr,
			"attempt", attempt,
			"error", err)
		time.Sleep(bindRetryDelay)
	}
	if lastErr != nil {
		return fmt.Errorf("failed to bind portal after %d attempts: %w", maxBindRetries, lastErr)
	}

	srv := &http.Server{Handler: p.engine}
	p.srv = srv
	p.listener = listener
	p.startedAt = time.Now()

	go func() {
		slog.Info("Portal server started", "address", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Portal server failed", "address", listener.Addr().String(), "error", err)
			p.mu.Lock()
			if p.srv == srv {
				p.srv = nil
				p.listener = nil
			}
			p.mu.Unlock()
		}
	}()

	return nil
}

// Stop shuts the portal down, forcing the close if graceful shutdown runs
// past the timeout. Stopping a stopped portal is a no-op.
func (p *PortalServer) Stop() error {
	p.mu.Lock()
	srv := p.srv
	listener := p.listener
	p.srv = nil
	p.listener = nil
	p.mu.Unlock()

	if srv == nil {
		slog.Debug("Portal already stopped")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("Portal graceful shutdown timed out, forcing close", "error", err)
		srv.Close()
	}

	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Warn("Failed to close portal listener", "error", err)
		}
	}

	slog.Info("Portal server stopped")
	return nil
}

// Addr returns the bound address while the portal is running.
func (p *PortalServer) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Running reports whether the portal is currently serving.
func (p *PortalServer) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.srv != nil
}
