package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	config "github.com/hanpama/gqlengine/internal/config"
	engine "github.com/hanpama/gqlengine/internal/engine"
	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	executor "github.com/hanpama/gqlengine/internal/executor"
	logging "github.com/hanpama/gqlengine/internal/logging"
	metrics "github.com/hanpama/gqlengine/internal/metrics"
	otel "github.com/hanpama/gqlengine/internal/otel"
	server "github.com/hanpama/gqlengine/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		flags      config.Config
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			applyFlags(cmd, cfg, &flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	f.StringVar(&flags.Server.Addr, "addr", "", "HTTP listen address")
	f.StringSliceVarP(&flags.Schema.Paths, "schema", "s", nil, "SDL files making up the schema")
	f.BoolVar(&flags.Schema.Watch, "watch", false, "Reload the schema when a schema file changes")
	f.StringVar(&flags.Data.Path, "data", "", "JSON or YAML document used as the root value")
	f.BoolVar(&flags.Server.Pretty, "pretty", false, "Pretty-print JSON responses")
	f.BoolVar(&flags.Engine.Introspection, "introspection", true, "Answer __schema and __type")
	f.IntVar(&flags.Engine.Concurrency, "concurrency", 1, "Resolver calls in flight per request")
	f.StringVar(&flags.Metrics.Addr, "metrics-addr", "", "Prometheus listen address")
	f.StringVar(&flags.Otel.Endpoint, "otel-endpoint", "", "OTLP collector endpoint")
	f.StringVar(&flags.Log.Level, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

// applyFlags copies the flags set on the command line over cfg.
func applyFlags(cmd *cobra.Command, cfg, flags *config.Config) {
	changed := cmd.Flags().Changed
	if changed("addr") {
		cfg.Server.Addr = flags.Server.Addr
	}
	if changed("schema") {
		cfg.Schema.Paths = flags.Schema.Paths
	}
	if changed("watch") {
		cfg.Schema.Watch = flags.Schema.Watch
	}
	if changed("data") {
		cfg.Data.Path = flags.Data.Path
	}
	if changed("pretty") {
		cfg.Server.Pretty = flags.Server.Pretty
	}
	if changed("introspection") {
		cfg.Engine.Introspection = flags.Engine.Introspection
	}
	if changed("concurrency") {
		cfg.Engine.Concurrency = flags.Engine.Concurrency
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = flags.Metrics.Addr
	}
	if changed("otel-endpoint") {
		cfg.Otel.Endpoint = flags.Otel.Endpoint
	}
	if changed("log-level") {
		cfg.Log.Level = flags.Log.Level
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	defer logging.Subscribe(logger)()

	shutdownTracing, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	sch, err := loadSchema(cfg.Schema.Paths)
	if err != nil {
		return err
	}
	root, err := loadData(cfg.Data.Path)
	if err != nil {
		return err
	}
	eng, err := engine.New(sch, executor.ResolverMap{},
		engine.WithCacheSize(cfg.Engine.CacheSize),
		engine.WithConcurrency(cfg.Engine.Concurrency),
		engine.WithIntrospection(cfg.Engine.Introspection),
		engine.WithRootValue(root),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	handler := server.New(eng, serverOptions(cfg.Server, logger)...)
	mux := http.NewServeMux()
	mux.Handle("/graphql", handler)

	g, ctx := errgroup.WithContext(ctx)
	servers := []*http.Server{{Addr: cfg.Server.Addr, Handler: mux}}
	if cfg.Metrics.Addr != "" {
		m := metrics.New()
		m.Subscribe()
		defer m.Close()
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", m.Handler())
		servers = append(servers, &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux})
	}
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if cfg.Schema.Watch {
		g.Go(func() error { return watchSchema(ctx, cfg.Schema.Paths, eng, logger) })
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}

func serverOptions(cfg config.ServerConfig, logger *zap.Logger) []server.Option {
	opts := []server.Option{
		server.WithTimeout(cfg.Timeout),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
		server.WithGraphiQL(cfg.GraphiQL),
		server.WithGzip(cfg.Gzip),
		server.WithLogger(logger),
	}
	if cfg.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.CORS) > 0 {
		opts = append(opts, server.WithCORS(cfg.CORS...))
	}
	if len(cfg.MetadataHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(cfg.MetadataHeaders...))
	}
	return opts
}
