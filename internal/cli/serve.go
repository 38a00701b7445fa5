package cli

import (
	"fmt"

	"careermatch/internal/observability"
	"careermatch/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP matching server",
	Long: `Start an HTTP server that exposes the profile-to-catalog matching API.

Available endpoints:
- POST /v1/match: Rank catalog career paths for a user profile
- GET /healthz: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	// Flag overrides beat config file and environment.
	applyStringFlag := func(flagName string, dst *string) {
		if v, err := cmd.Flags().GetString(flagName); err == nil && v != "" {
			*dst = v
		}
	}
	applyStringFlag("port", &cfg.Server.Port)
	applyStringFlag("host", &cfg.Server.Host)
	applyStringFlag("tls-mode", &cfg.Server.TLS.Mode)
	applyStringFlag("cert-file", &cfg.Server.TLS.CertFile)
	applyStringFlag("key-file", &cfg.Server.TLS.KeyFile)

	// Re-validate after applying overrides.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	om, err := observability.NewManager(cfg.Observability, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	deps, err := buildDeps(ctx, cfg, logger, om.GetMetrics())
	if err != nil {
		return err
	}
	defer deps.close()

	srv := server.NewServer(cfg, server.Deps{
		Matcher:       deps.pipeline,
		OracleService: deps.oracleSvc,
		DB:            deps.db,
		Obs:           om,
		Logger:        logger,
		Version:       Version,
	})
	return srv.Start()
}
