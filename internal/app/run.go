package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"github.com/specialistvlad/nfgenomeannotator/internal/params"
)

// Run executes the main application logic based on the app's configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx, logger := ctxlog.With(ctx, "run_id", uuid.NewString())
	logger.Debug("App.Run method started.", "phase", a.config.Phase)

	if a.config.PrintSchema {
		return a.catalog.WriteSchema(a.outW)
	}
	if a.config.InitParamsPath != "" {
		return a.writeParamsTemplate(ctx)
	}

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	wf := a.catalog.Workflow()
	logger.Info("🚀 Starting workflow.", "workflow", wf.Name, "phase", a.config.Phase)

	switch a.config.Phase {
	case PhaseInitialize:
		volume, err := a.runtime.Initialize(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.outW, volume)
	case PhaseRuntime:
		values, err := params.LoadFile(ctx, a.catalog, a.config.ParamsPath)
		if err != nil {
			return err
		}
		if err := a.runtime.Runtime(ctx, a.config.Volume, values); err != nil {
			return err
		}
	default:
		// Parameters are checked before any storage is provisioned.
		values, err := params.LoadFile(ctx, a.catalog, a.config.ParamsPath)
		if err != nil {
			return err
		}
		if err := a.runtime.Run(ctx, values); err != nil {
			return err
		}
	}

	logger.Info("🏁 Workflow finished.", "workflow", wf.Name)
	return nil
}

func (a *App) writeParamsTemplate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	f, err := os.OpenFile(a.config.InitParamsPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create parameters template: %w", err)
	}
	if err := params.WriteTemplate(f, a.catalog); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write parameters template: %w", err)
	}

	logger.Info("Parameters template written.", "path", a.config.InitParamsPath)
	return nil
}
