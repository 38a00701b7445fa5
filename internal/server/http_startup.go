package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careermatch/internal/observability"
)

// Start starts the HTTP server with all configured components and blocks
// until shutdown.
func (s *Server) Start() error {
	om := s.Obs
	if om == nil {
		var err error
		om, err = observability.NewManager(s.AppConfig.Observability, s.Version)
		if err != nil {
			return fmt.Errorf("failed to initialize observability: %w", err)
		}
	}
	defer s.shutdownObservability(om)

	mux := s.setupRoutes(om)
	handler := om.HTTPMiddleware()(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	s.Logger.Info("Server configuration",
		"address", httpServer.Addr,
		"tls_mode", s.TLSConfig.Mode,
		"api_keys_configured", len(s.APIKeys),
		"rate_limiting", s.RateLimit != nil && s.RateLimit.Enabled,
		"oracle_configured", s.OracleService != nil)

	return s.startWithGracefulShutdown(httpServer)
}

func (s *Server) shutdownObservability(om *observability.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// startWithGracefulShutdown runs the server and drains it on SIGINT/SIGTERM.
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		tlsEnabled := s.TLSConfig.Mode == "server"
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", tlsEnabled)

		var err error
		if tlsEnabled {
			err = server.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())
		return s.performGracefulShutdown(server)
	}
}

func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}
