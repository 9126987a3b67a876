package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/nfgenomeannotator/internal/catalog"
	"github.com/specialistvlad/nfgenomeannotator/internal/config"
	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"github.com/specialistvlad/nfgenomeannotator/internal/launcher"
	"github.com/specialistvlad/nfgenomeannotator/internal/logupload"
	"github.com/specialistvlad/nfgenomeannotator/internal/nextflow"
	"github.com/specialistvlad/nfgenomeannotator/internal/provision"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	catalog    *catalog.Catalog
	runtime    *launcher.Launcher
	closers    []io.Closer
	httpServer *http.Server
}

// Options overrides the collaborators NewApp would otherwise build. It is
// used by tests; zero fields keep the defaults.
type Options struct {
	Catalog     *catalog.Catalog
	Provisioner launcher.Provisioner
	Runner      launcher.Runner
	Logs        launcher.LogPublisher
	Getenv      func(string) string
}

// NewApp builds an App. Results (schema, template, volume name) go to outW
// and logs to logW.
func NewApp(outW, logW io.Writer, appConfig *Config, opts Options) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var paths []string
	if appConfig.ConfigPath != "" {
		if err := config.CheckExplicitPath(appConfig.ConfigPath); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		paths = append(paths, appConfig.ConfigPath)
	}
	cfg, err := config.Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Launcher configuration loaded.", "dispatcher", cfg.Dispatcher.URL, "shared", cfg.Mirror.Shared)

	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	a := &App{
		outW:    outW,
		logger:  logger,
		ctx:     ctx,
		config:  appConfig,
		catalog: cat,
	}

	deps := launcher.Deps{
		Provisioner: opts.Provisioner,
		Runner:      opts.Runner,
		Logs:        opts.Logs,
		Getenv:      opts.Getenv,
	}
	if deps.Provisioner == nil {
		client := provision.New(cfg.Dispatcher.URL, cfg.Dispatcher.Timeout)
		a.closers = append(a.closers, client)
		deps.Provisioner = client
	}
	if deps.Runner == nil {
		deps.Runner = &nextflow.Runner{}
	}
	if deps.Logs == nil {
		uploader := logupload.New(cfg.Logs.Timeout)
		a.closers = append(a.closers, uploader)
		deps.Logs = &logupload.Publisher{
			Uploader:         uploader,
			Root:             cfg.Logs.Root,
			PipelineName:     cfg.Logs.PipelineName,
			ExecutionNameEnv: cfg.Logs.ExecutionNameEnv,
			Getenv:           opts.Getenv,
		}
	}
	a.runtime = launcher.New(cfg, cat, deps)
	logger.Debug("Launcher assembled.", "parameters", cat.Len())

	return a, nil
}

// Launcher returns the application's launcher. This is primarily for testing.
func (a *App) Launcher() *launcher.Launcher {
	return a.runtime
}

// Close releases the HTTP clients and stops the health check server.
func (a *App) Close() error {
	errs := []error{a.closeHealthCheckServer()}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
