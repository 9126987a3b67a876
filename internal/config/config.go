package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds everything the launcher needs besides the parameter values.
type Config struct {
	// TokenEnv names the environment variable carrying the execution token.
	TokenEnv   string
	Dispatcher Dispatcher
	Engine     Engine
	Mirror     Mirror
	Logs       Logs
}

// Dispatcher configures the shared-storage provisioning call.
type Dispatcher struct {
	URL        string
	StorageGiB int
	Timeout    time.Duration
}

// Engine configures the pipeline engine subprocess.
type Engine struct {
	Binary     string
	Entrypoint string
	Profile    string
	ConfigFile string
	// ClaimEnv names the variable that receives the provisioned volume name.
	ClaimEnv string
	// Env is overlaid on the launcher's own environment.
	Env map[string]string
}

// Mirror configures the copy of the source directory into shared storage.
type Mirror struct {
	Source string
	Shared string
	Ignore []string
}

// Logs configures the upload of the engine log after a run.
type Logs struct {
	// Root is a filesystem path, a file:// URL or an http(s):// URL.
	Root             string
	PipelineName     string
	ExecutionNameEnv string
	Timeout          time.Duration
}

// Default returns the configuration the workflow ships with.
func Default() *Config {
	return &Config{
		TokenEnv: "FLYTE_INTERNAL_EXECUTION_ID",
		Dispatcher: Dispatcher{
			URL:        "http://nf-dispatcher-service.flyte.svc.cluster.local",
			StorageGiB: 100,
			Timeout:    2 * time.Minute,
		},
		Engine: Engine{
			Binary:     "/root/nextflow",
			Entrypoint: "main.nf",
			Profile:    "docker",
			ConfigFile: "latch.config",
			ClaimEnv:   "K8S_STORAGE_CLAIM_NAME",
			Env: map[string]string{
				"NXF_HOME":                 "/root/.nextflow",
				"NXF_OPTS":                 "-Xms2048M -Xmx8G -XX:ActiveProcessorCount=4",
				"NXF_DISABLE_CHECK_LATEST": "true",
			},
		},
		Mirror: Mirror{
			Source: "/root",
			Shared: "/nf-workdir",
			Ignore: []string{
				"latch",
				".latch",
				"nextflow",
				".nextflow",
				"work",
				"results",
				"miniconda",
				"anaconda3",
				"mambaforge",
			},
		},
		Logs: Logs{
			Root:             "/your_log_dir",
			PipelineName:     "nf_nf_core_genomeannotator",
			ExecutionNameEnv: "FLYTE_INTERNAL_EXECUTION_NAME",
			Timeout:          time.Minute,
		},
	}
}

// Validate checks that every field the launcher relies on is usable.
func (c *Config) Validate() error {
	var errs []error
	required := []struct{ name, value string }{
		{"token_env", c.TokenEnv},
		{"dispatcher.url", c.Dispatcher.URL},
		{"engine.binary", c.Engine.Binary},
		{"engine.entrypoint", c.Engine.Entrypoint},
		{"engine.claim_env", c.Engine.ClaimEnv},
		{"mirror.source", c.Mirror.Source},
		{"mirror.shared", c.Mirror.Shared},
		{"logs.root", c.Logs.Root},
		{"logs.pipeline_name", c.Logs.PipelineName},
		{"logs.execution_name_env", c.Logs.ExecutionNameEnv},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", r.name))
		}
	}

	if c.Dispatcher.URL != "" {
		u, err := url.Parse(c.Dispatcher.URL)
		if err != nil {
			errs = append(errs, fmt.Errorf("dispatcher.url: %w", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("dispatcher.url: unsupported scheme %q", u.Scheme))
		}
	}
	if c.Dispatcher.StorageGiB <= 0 {
		errs = append(errs, fmt.Errorf("dispatcher.storage_gib must be positive, got %d", c.Dispatcher.StorageGiB))
	}
	if c.Dispatcher.Timeout < 0 || c.Logs.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if _, reserved := c.Engine.Env[c.Engine.ClaimEnv]; reserved {
		errs = append(errs, fmt.Errorf("engine.env must not set %s; it is filled with the provisioned volume", c.Engine.ClaimEnv))
	}

	return errors.Join(errs...)
}
