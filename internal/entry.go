// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/storygraph/internal/api"
	"github.com/starford/storygraph/internal/confwatch"
	"github.com/starford/storygraph/internal/consumer"
	"github.com/starford/storygraph/internal/mcpserver"
	"github.com/starford/storygraph/internal/nodemanager"
	"github.com/starford/storygraph/internal/rpc"
	"github.com/starford/storygraph/internal/sse"
	"github.com/starford/storygraph/internal/storage"
	"github.com/starford/storygraph/internal/store"
	pkgconfig "github.com/starford/storygraph/pkg/config"
)

// deps holds the components shared by the server and MCP modes.
type deps struct {
	cfg      *Config
	logger   *slog.Logger
	logLevel *slog.LevelVar
	db       *store.DB
	files    *storage.FS
}

func setup(ctx context.Context, opts []Option) (*application, *deps, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}

	cfg := app.config

	// Initialize structured JSON logger. The level can change at runtime.
	logLevel := new(slog.LevelVar)
	logLevel.Set(cfg.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("illustrations_path", cfg.Illustrations.Path),
		slog.Bool("grpc_enabled", cfg.GRPC.Enabled),
		slog.Bool("kafka_enabled", cfg.Kafka.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Illustrations.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create illustrations dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Illustrations.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init illustrations: %w", err)
	}

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := store.Open(ctx, cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	return app, &deps{
		cfg:      cfg,
		logger:   logger,
		logLevel: logLevel,
		db:       db,
		files:    files,
	}, nil
}

// Run starts the HTTP server and, when enabled, the gRPC server, the update
// consumer and the config watcher. It returns when ctx is cancelled, a
// shutdown signal arrives or one of them fails.
func Run(ctx context.Context, opts ...Option) error {
	app, rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	metrics := nodemanager.NewMetrics("storygraph")
	mgr := nodemanager.Observe(nodemanager.NewService(rt.db),
		nodemanager.LogObserver(logger),
		metrics,
		broker,
	)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, rt, mgr, broker, metrics.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	var rpcServer *rpc.Server
	if cfg.GRPC.Enabled {
		rpcServer, err = rpc.New(cfg.GRPC.Address(), mgr, logger)
		if err != nil {
			return err
		}
	}

	var src *consumer.KafkaSource
	if cfg.Kafka.Enabled {
		src, err = consumer.NewKafkaSource(consumer.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Group:   cfg.Kafka.Group,
		}, logger)
		if err != nil {
			if rpcServer != nil {
				rpcServer.Close()
			}
			return err
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	if rpcServer != nil {
		g.Go(func() error {
			return rpcServer.Serve(gCtx)
		})
	}

	if src != nil {
		g.Go(func() error {
			logger.Info("Starting update consumer",
				slog.String("topic", cfg.Kafka.Topic),
				slog.String("group", cfg.Kafka.Group))
			return consumer.New(src, mgr, logger).Run(gCtx)
		})
	}

	if cfg.App.WatchConfig && app.configPath != "" {
		g.Go(func() error {
			return confwatch.Watch(gCtx, app.configPath, logger, reloadLogLevel(rt.logLevel, logger))
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		var stop error
		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			// Cancels gCtx for the gRPC server, consumer and watcher.
			stop = errShutdown
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return stop
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown requested")

// RunMCP serves the MCP tools over stdio. Logs go to stderr unless another
// output was configured, since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	_, rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	mgr := nodemanager.Observe(nodemanager.NewService(rt.db), nodemanager.LogObserver(rt.logger))
	rt.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(mgr, rt.files).ServeStdio()
}

func newHTTPHandler(cfg *Config, rt *deps, mgr nodemanager.Manager, events http.Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.App.HTTP.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := rt.db.Ping(req.Context()); err != nil {
			rt.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", metrics)

	r.Mount("/api", api.NewRouter(mgr, rt.files, events))

	r.Get("/illustrations/{filename}", api.NewIllustrationHandler(rt.files).ServeFile)

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// reloadLogLevel re-reads the config file and applies its log level. Other
// settings take effect on restart.
func reloadLogLevel(level *slog.LevelVar, logger *slog.Logger) confwatch.ReloadFunc {
	return func(path string) error {
		cfg := NewDefaultConfig()
		if err := pkgconfig.Load(path, cfg); err != nil {
			return err
		}
		if prev := level.Level(); prev != cfg.App.LogLevel {
			level.Set(cfg.App.LogLevel)
			logger.Info("Log level changed",
				slog.String("from", prev.String()),
				slog.String("to", cfg.App.LogLevel.String()))
		}
		return nil
	}
}
