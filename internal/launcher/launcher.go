// Package launcher drives one execution of the wrapped pipeline: it obtains
// shared storage, stages the working directory, runs the engine, and
// publishes the engine's log afterwards.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/nfgenomeannotator/internal/catalog"
	"github.com/specialistvlad/nfgenomeannotator/internal/config"
	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"github.com/specialistvlad/nfgenomeannotator/internal/fsutil"
	"github.com/specialistvlad/nfgenomeannotator/internal/nextflow"
	"github.com/specialistvlad/nfgenomeannotator/internal/params"
)

// LogFileName is the engine log, relative to the shared directory.
const LogFileName = ".nextflow.log"

// ErrMissingToken is returned by Initialize when the execution token is not
// present in the environment. A token that is only whitespace counts as
// missing.
var ErrMissingToken = errors.New("execution token is not set")

// Provisioner obtains a shared storage volume.
type Provisioner interface {
	Provision(ctx context.Context, token string, storageGiB int) (string, error)
}

// Runner executes the engine command line.
type Runner interface {
	Run(ctx context.Context, argv []string, dir string, overlay map[string]string) error
}

// LogPublisher uploads the engine log. It never fails the run.
type LogPublisher interface {
	Publish(ctx context.Context, local string) bool
}

// Deps are the collaborators of a Launcher. Mirror and Getenv default to
// fsutil.Mirror and os.Getenv.
type Deps struct {
	Provisioner Provisioner
	Runner      Runner
	Logs        LogPublisher
	Mirror      func(src, dst string, ignore []string) (fsutil.MirrorStats, error)
	Getenv      func(string) string
}

// Launcher runs the workflow's two tasks.
type Launcher struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	deps    Deps

	mu    sync.Mutex
	phase Phase
}

// New creates a Launcher. cfg must already be validated.
func New(cfg *config.Config, cat *catalog.Catalog, deps Deps) *Launcher {
	if deps.Mirror == nil {
		deps.Mirror = fsutil.Mirror
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	return &Launcher{
		cfg:     cfg,
		catalog: cat,
		deps:    deps,
		phase:   PhaseIdle,
	}
}

// Phase reports what the launcher is doing right now.
func (l *Launcher) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

func (l *Launcher) setPhase(ctx context.Context, p Phase) {
	l.mu.Lock()
	l.phase = p
	l.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Launcher phase changed.", "phase", p)
}

// Initialize checks for the execution token and provisions shared storage.
// It returns the volume name to pass to Runtime.
func (l *Launcher) Initialize(ctx context.Context) (string, error) {
	logger := ctxlog.FromContext(ctx)

	token := strings.TrimSpace(l.deps.Getenv(l.cfg.TokenEnv))
	if token == "" {
		l.setPhase(ctx, PhaseFailed)
		return "", fmt.Errorf("%w: %s", ErrMissingToken, l.cfg.TokenEnv)
	}

	l.setPhase(ctx, PhaseInitialize)
	volume, err := l.deps.Provisioner.Provision(ctx, token, l.cfg.Dispatcher.StorageGiB)
	if err != nil {
		l.setPhase(ctx, PhaseFailed)
		return "", fmt.Errorf("failed to provision shared storage: %w", err)
	}

	logger.Info("Initialize finished.", "volume", volume)
	l.setPhase(ctx, PhaseIdle)
	return volume, nil
}

// Runtime stages the working directory into shared storage and runs the
// engine against it. Whatever the outcome, the engine log is published
// afterwards if it exists.
func (l *Launcher) Runtime(ctx context.Context, volume string, values params.Values) (err error) {
	logger := ctxlog.FromContext(ctx)
	if volume == "" {
		l.setPhase(ctx, PhaseFailed)
		return errors.New("storage volume name must not be empty")
	}
	shared := l.cfg.Mirror.Shared

	defer func() {
		l.setPhase(ctx, PhaseUpload)
		uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.uploadTimeout())
		defer cancel()
		l.deps.Logs.Publish(uploadCtx, filepath.Join(shared, LogFileName))

		if err != nil {
			l.setPhase(ctx, PhaseFailed)
			return
		}
		l.setPhase(ctx, PhaseDone)
	}()

	l.setPhase(ctx, PhaseMirror)
	stats, err := l.deps.Mirror(l.cfg.Mirror.Source, shared, l.cfg.Mirror.Ignore)
	if err != nil {
		return fmt.Errorf("failed to stage working directory: %w", err)
	}
	logger.Info("Working directory staged.",
		"source", l.cfg.Mirror.Source,
		"destination", shared,
		"files", stats.Files,
		"dirs", stats.Dirs,
		"bytes", stats.Bytes,
		"ignored", stats.Ignored,
	)

	argv, err := nextflow.BuildArgs(nextflow.Command{
		Binary:     l.cfg.Engine.Binary,
		Entrypoint: l.cfg.Engine.Entrypoint,
		WorkDir:    shared,
		Profile:    l.cfg.Engine.Profile,
		ConfigFile: l.cfg.Engine.ConfigFile,
	}, l.catalog.Names(), values)
	if err != nil {
		return fmt.Errorf("failed to build nextflow command: %w", err)
	}

	overlay := maps.Clone(l.cfg.Engine.Env)
	if overlay == nil {
		overlay = make(map[string]string, 1)
	}
	overlay[l.cfg.Engine.ClaimEnv] = volume

	l.setPhase(ctx, PhaseRun)
	logger.Info("Launching nextflow.", "command", nextflow.Render(argv))
	if err := l.deps.Runner.Run(ctx, argv, shared, overlay); err != nil {
		return fmt.Errorf("nextflow run failed: %w", err)
	}
	logger.Info("Nextflow finished successfully.")
	return nil
}

func (l *Launcher) uploadTimeout() time.Duration {
	if l.cfg.Logs.Timeout > 0 {
		return l.cfg.Logs.Timeout
	}
	return defaultUploadTimeout
}

// Run executes both tasks in order.
func (l *Launcher) Run(ctx context.Context, values params.Values) error {
	volume, err := l.Initialize(ctx)
	if err != nil {
		return err
	}
	return l.Runtime(ctx, volume, values)
}
