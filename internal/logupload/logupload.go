// Package logupload copies the engine's log file to the workflow's log
// location once a run has finished.
package logupload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"github.com/specialistvlad/nfgenomeannotator/internal/fsutil"
	"resty.dev/v3"
)

// FileName is the name the log is stored under at the destination.
const FileName = "nextflow.log"

// ErrNoExecutionName is returned when the execution name cannot be resolved.
var ErrNoExecutionName = errors.New("execution name is not set")

// ExecutionName reads the current execution's name from the environment
// variable envName.
func ExecutionName(getenv func(string) string, envName string) (string, error) {
	name := strings.TrimSpace(getenv(envName))
	if name == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoExecutionName, envName)
	}
	return name, nil
}

// RemotePath builds <root>/<pipeline>/<execution>/nextflow.log. URL roots
// keep their scheme and host; filesystem roots are joined as paths.
func RemotePath(root, pipeline, execution string) (string, error) {
	if pipeline == "" || execution == "" {
		return "", errors.New("pipeline and execution names must not be empty")
	}
	if isURL(root) {
		u, err := url.Parse(root)
		if err != nil {
			return "", fmt.Errorf("invalid log root %q: %w", root, err)
		}
		u.Path = path.Join("/", u.Path, pipeline, execution, FileName)
		return u.String(), nil
	}
	return filepath.Join(root, pipeline, execution, FileName), nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}

// Uploader stores a local file at a filesystem path or http(s) URL.
type Uploader struct {
	http *resty.Client
}

// New creates an Uploader. A zero timeout disables the client-side deadline
// for HTTP uploads.
func New(timeout time.Duration) *Uploader {
	c := resty.New().SetRetryCount(0)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Uploader{http: c}
}

// Close releases idle connections.
func (u *Uploader) Close() error {
	return u.http.Close()
}

// Upload stores the file at local under remote.
func (u *Uploader) Upload(ctx context.Context, local, remote string) error {
	if !isURL(remote) {
		return copyLocal(ctx, local, remote)
	}

	dest, err := url.Parse(remote)
	if err != nil {
		return fmt.Errorf("invalid upload destination %q: %w", remote, err)
	}
	switch dest.Scheme {
	case "file":
		return copyLocal(ctx, local, filepath.FromSlash(dest.Path))
	case "http", "https":
		return u.put(ctx, local, dest.String())
	default:
		return fmt.Errorf("unsupported upload scheme %q", dest.Scheme)
	}
}

func copyLocal(ctx context.Context, local, dst string) error {
	n, err := fsutil.CopyFile(local, dst)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Copied log file.", "destination", dst, "size", n)
	return nil
}

func (u *Uploader) put(ctx context.Context, local, dest string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	body, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("failed to read log file '%s': %w", local, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(dest))
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	logger.Debug("Uploading log file.", "source", local, "size", len(body), "contentType", contentType)

	resp, err := u.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Put(dest)
	if err != nil {
		return fmt.Errorf("failed to execute log upload request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("log upload failed with status: %s", resp.Status())
	}
	return nil
}

// Backend stores a local file at a remote location. *Uploader implements it.
type Backend interface {
	Upload(ctx context.Context, local, remote string) error
}

// Publisher uploads the engine log of a finished run. Failures are logged
// and never returned.
type Publisher struct {
	Uploader         Backend
	Root             string
	PipelineName     string
	ExecutionNameEnv string
	Getenv           func(string) string
}

// Publish uploads local if it exists. It reports whether an upload was
// attempted.
func (p *Publisher) Publish(ctx context.Context, local string) bool {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Stat(local); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("No nextflow log to upload.", "path", local)
		} else {
			logger.Warn("Could not inspect nextflow log.", "path", local, "error", err)
		}
		return false
	}

	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	execName, err := ExecutionName(getenv, p.ExecutionNameEnv)
	if err != nil {
		logger.Warn("Skipping nextflow log upload.", "error", err)
		return true
	}
	remote, err := RemotePath(p.Root, p.PipelineName, execName)
	if err != nil {
		logger.Warn("Skipping nextflow log upload.", "error", err)
		return true
	}

	logger.Info("Uploading nextflow log.", "destination", remote)
	if err := p.Uploader.Upload(ctx, local, remote); err != nil {
		logger.Warn("Failed to upload nextflow log.", "destination", remote, "error", err)
		return true
	}
	logger.Info("Nextflow log uploaded.", "destination", remote)
	return true
}
