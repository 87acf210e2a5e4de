package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adeilh/go-statusd/config"
	"github.com/adeilh/go-statusd/docs"
	"github.com/adeilh/go-statusd/handler"
	"github.com/adeilh/go-statusd/httpx"
	"github.com/adeilh/go-statusd/logging"
)

type serveFlags struct {
	configPath string
	host       string
	port       int
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var flags serveFlags

	rootCmd := &cobra.Command{
		Use:           "statusd",
		Short:         "HTTP service that responds with any requested status code",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&flags.host, "host", "", "Interface to listen on")
		c.Flags().IntVarP(&flags.port, "port", "p", 0, "Port to listen on (overrides PORT)")
		c.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
		c.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format: json or console")
	}

	rootCmd.AddCommand(serveCmd, newHealthcheckCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command, flags serveFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flags.port
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = logging.ParseFormat(flags.logFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	err = server.Start(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("stopped")
		return nil
	}
	return err
}

// buildServer assembles the middleware stack and routes for cfg.
func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*httpx.Server, error) {
	doc, err := docs.New(ctx, cfg.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("statusd: api document: %w", err)
	}

	middlewares := []httpx.MiddlewareFunc{
		httpx.RecoverMiddleware(),
		httpx.RequestIDMiddleware(),
		httpx.RequestLoggerMiddleware(logging.WithComponent(logger, "http")),
		httpx.HeadersMiddleware(map[string]string{"X-Powered-By": "statusd"}),
	}
	if cfg.RateLimit.Enabled {
		middlewares = append(middlewares, httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			Window: cfg.RateLimit.Window,
			Max:    cfg.RateLimit.Max,
			Skipper: func(c httpx.Context) bool {
				return c.Path() == "/health"
			},
		}))
	}

	opts := []httpx.ServerOption{
		httpx.WithAddress(cfg.Address()),
		httpx.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		httpx.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		httpx.WithMiddlewares(middlewares...),
		httpx.WithCORS(nil),
		httpx.WithLogger(logging.WithComponent(logger, "server")),
	}
	if cfg.Server.TrustProxy {
		opts = append(opts, httpx.WithTrustedProxy())
	}
	server := httpx.NewServer(opts...)
	server.RegisterRoutes(doc.Register)
	server.RegisterRoutes(handler.New(handler.Options{
		MaxSleep: cfg.Delay.MaxSleep,
		Logger:   logging.WithComponent(logger, "handler"),
	}).Register)

	logger.Info().
		Str("address", cfg.Address()).
		Str("public_url", cfg.BaseURL()).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Msg("statusd configured")
	return server, nil
}

func newHealthcheckCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running statusd instance's /health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := httpx.NewClient(
				httpx.WithBaseURL(url),
				httpx.WithClientTimeout(timeout),
				httpx.WithHeaders(map[string]string{"User-Agent": "statusd-healthcheck"}),
			)
			resp, err := client.Get(cmd.Context(), "/health", nil)
			if err != nil {
				return fmt.Errorf("healthcheck: %w", err)
			}
			if resp.StatusCode() != http.StatusOK {
				return fmt.Errorf("healthcheck: unexpected status %d", resp.StatusCode())
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:3000", "Base URL of the instance to probe")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Request timeout")
	return cmd
}
