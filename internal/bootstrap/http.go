package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ohitsyle/jusq-sub002/config"
	httpx "github.com/ohitsyle/jusq-sub002/internal/http"
)

// NewHTTPServer builds the portal server without starting it.
func NewHTTPServer(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	handler := httpx.NewRouter(httpx.RouterServices{
		Identities: services.Identities,
		Flows:      services.Flows,
		AuditFeed:  services.AuditFeed,
		Guard:      services.Guard,
		Cookies: httpx.CookieOptions{
			Domain: cfg.HTTP.CookieDomain,
			Secure: cfg.HTTP.CookieSecure,
		},
		RestoreTimeout:       cfg.Auth.RestoreTimeout,
		PinAttemptsPerMinute: limitOrOff(cfg.Auth.PinAttemptsPerMinute),
		OTPRequestsPerMinute: limitOrOff(cfg.Auth.OTPRequestsPerMinute),
		Ready:                services.Ready,
		Logger:               logger,
	})

	addr := cfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// limitOrOff maps a disabled (zero) limit to the router's "off" value.
func limitOrOff(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// ServeConfig contains dependencies for Serve.
type ServeConfig struct {
	Server          *http.Server
	Listener        net.Listener // optional; Server.Addr is used when nil
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Serve runs the server until ctx ends, then shuts it down gracefully.
func Serve(ctx context.Context, cfg ServeConfig) error {
	if cfg.Server == nil {
		return errors.New("server is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Listener != nil {
			logger.Info("starting HTTP server", "addr", cfg.Listener.Addr().String())
			err = cfg.Server.Serve(cfg.Listener)
		} else {
			logger.Info("starting HTTP server", "addr", cfg.Server.Addr)
			err = cfg.Server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}

// RunWithShutdown serves until SIGINT or SIGTERM.
func RunWithShutdown(ctx context.Context, cfg ServeConfig) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(sigCtx, cfg)
}
