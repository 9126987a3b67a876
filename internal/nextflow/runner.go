// Package nextflow builds and runs the pipeline engine's command line.
package nextflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
)

// ExitError reports that the engine ran and exited unsuccessfully.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return "nextflow was terminated by a signal"
	}
	return fmt.Sprintf("nextflow exited with code %d", e.Code)
}

// Runner executes the engine as a child process.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// WaitDelay bounds how long Run waits for the engine to exit after the
	// context is cancelled and the process group has been signalled.
	WaitDelay time.Duration
}

// Run executes argv in dir with the launcher's environment plus overlay and
// blocks until it exits. A non-zero exit is returned as *ExitError.
func (r *Runner) Run(ctx context.Context, argv []string, dir string, overlay map[string]string) error {
	if len(argv) == 0 {
		return errors.New("empty command line")
	}
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = MergeEnv(os.Environ(), overlay)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 30 * time.Second
	}
	configureCommandProcess(cmd)

	logger.Debug("Starting nextflow process.", "dir", dir, "argc", len(argv))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("nextflow interrupted: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run nextflow: %w", err)
	}
	logger.Debug("Nextflow process exited cleanly.")
	return nil
}

// MergeEnv returns base with every overlay entry set, replacing existing
// values of the same key. Overlay keys are appended in sorted order.
func MergeEnv(base []string, overlay map[string]string) []string {
	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := overlay[key]; replaced {
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overlay[k])
	}
	return out
}

// Render joins argv for display.
func Render(argv []string) string {
	return strings.Join(argv, " ")
}
