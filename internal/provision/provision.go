// Package provision requests a shared storage volume from the platform's
// Nextflow dispatcher service.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"resty.dev/v3"
)

// Path is the dispatcher endpoint that creates a volume.
const Path = "/provision-storage"

// TokenScheme prefixes the execution token in the Authorization header.
const TokenScheme = "Latch-Execution-Token"

// ErrEmptyVolume is returned when the dispatcher answers without a volume name.
var ErrEmptyVolume = errors.New("dispatcher returned an empty volume name")

// StatusError is returned for a non-2xx dispatcher response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provision-storage failed: %s", e.Status)
	}
	return fmt.Sprintf("provision-storage failed: %s: %s", e.Status, e.Body)
}

type request struct {
	StorageGiB int `json:"storage_gib"`
}

type response struct {
	Name string `json:"name"`
}

// Client talks to the dispatcher. It never retries.
type Client struct {
	http *resty.Client
}

// New creates a dispatcher client for baseURL. A zero timeout disables the
// client-side deadline.
func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Provision asks for a volume of storageGiB and returns its name. The body
// is decoded as JSON whatever Content-Type the dispatcher sends.
func (c *Client) Provision(ctx context.Context, token string, storageGiB int) (string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Provisioning shared storage volume...", "storage_gib", storageGiB)

	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", TokenScheme+" "+token).
		SetHeader("Content-Type", "application/json").
		SetBody(request{StorageGiB: storageGiB}).
		SetResult(&out).
		SetForceResponseContentType("application/json").
		Post(Path)
	if err != nil {
		return "", fmt.Errorf("failed to execute provision-storage request: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       strings.TrimSpace(resp.String()),
		}
	}
	if out.Name == "" {
		return "", ErrEmptyVolume
	}

	logger.Info("Shared storage volume provisioned.", "volume", out.Name)
	return out.Name, nil
}
