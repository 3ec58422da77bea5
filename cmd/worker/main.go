// Package main is the entry point for the codebridge execution worker.
//
// The worker is a long-lived process that reads code snippets from stdin
// (one per line, JSON or raw), executes them against a restricted
// capability surface backed by an external MCP tool server, and writes
// exactly one JSON response line per request to stdout. It survives
// provider connection loss, partial failures, and malformed input without
// corrupting the protocol.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/codebridge/catalog"
	"github.com/isdmx/codebridge/config"
	"github.com/isdmx/codebridge/logger"
	"github.com/isdmx/codebridge/provider"
	"github.com/isdmx/codebridge/sandbox"
	"github.com/isdmx/codebridge/sanitize"
	"github.com/isdmx/codebridge/validate"
	"github.com/isdmx/codebridge/worker"
)

func newCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Empty(), nil
	}
	return catalog.Load(cfg.Catalog.Path)
}

func newManager(cfg *config.Config, log *zap.Logger) (*provider.Manager, error) {
	if cfg.Provider.Command == "" {
		return nil, errors.New("provider.command must be configured")
	}
	p := provider.NewMCPProvider(
		provider.StdioFactory(cfg.Provider.Command, cfg.Provider.Env, cfg.Provider.Args...),
		log,
	)
	return provider.NewManager(p, log,
		provider.WithConnectTimeout(cfg.GetConnectTimeout()),
		provider.WithPingTimeout(cfg.GetPingTimeout()),
	), nil
}

func newWorker(cfg *config.Config, v *validate.Validator, s *sanitize.Sanitizer, m *provider.Manager, cat *catalog.Catalog, log *zap.Logger) *worker.Worker {
	exec := sandbox.NewExecutor(cfg, m, cat, s, log)
	return worker.New(os.Stdin, os.Stdout, v, s, m, exec, log)
}

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Validation policy and sanitizer
			validate.NewFromConfig,
			sanitize.NewFromConfig,

			// Static tool catalog
			newCatalog,

			// Connection manager over the MCP tool provider
			newManager,

			// Worker loop over stdio
			newWorker,
		),

		// Run the loop; end of input shuts the process down gracefully.
		fx.Invoke(
			func(lc fx.Lifecycle, shutdowner fx.Shutdowner, w *worker.Worker, m *provider.Manager, log *zap.Logger) {
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						go func() {
							if err := w.Run(context.Background()); err != nil {
								log.Error("worker loop terminated", zap.Error(err))
							}
							_ = shutdowner.Shutdown()
						}()
						return nil
					},
					OnStop: func(_ context.Context) error {
						return m.Close()
					},
				})
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
