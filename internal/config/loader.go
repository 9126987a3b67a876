package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"github.com/specialistvlad/nfgenomeannotator/internal/fsutil"
)

// fileRoot is a struct used to decode the top-level blocks of a config file.
type fileRoot struct {
	Launchers []*launcherBlock `hcl:"launcher,block"`
}

// The block structs use pointers throughout: a nil field means "keep the
// current value".
type launcherBlock struct {
	TokenEnv   *string          `hcl:"token_env,optional"`
	Dispatcher *dispatcherBlock `hcl:"dispatcher,block"`
	Engine     *engineBlock     `hcl:"engine,block"`
	Mirror     *mirrorBlock     `hcl:"mirror,block"`
	Logs       *logsBlock       `hcl:"logs,block"`
}

type dispatcherBlock struct {
	URL        *string `hcl:"url,optional"`
	StorageGiB *int    `hcl:"storage_gib,optional"`
	Timeout    *string `hcl:"timeout,optional"`
}

type engineBlock struct {
	Binary     *string           `hcl:"binary,optional"`
	Entrypoint *string           `hcl:"entrypoint,optional"`
	Profile    *string           `hcl:"profile,optional"`
	ConfigFile *string           `hcl:"config_file,optional"`
	ClaimEnv   *string           `hcl:"claim_env,optional"`
	Env        map[string]string `hcl:"env,optional"`
}

type mirrorBlock struct {
	Source *string `hcl:"source,optional"`
	Shared *string `hcl:"shared,optional"`
	// Ignore replaces the default list when present, even when empty.
	Ignore hcl.Expression `hcl:"ignore,optional"`
}

type logsBlock struct {
	Root             *string `hcl:"root,optional"`
	PipelineName     *string `hcl:"pipeline_name,optional"`
	ExecutionNameEnv *string `hcl:"execution_name_env,optional"`
	Timeout          *string `hcl:"timeout,optional"`
}

// Load starts from Default and applies every `launcher` block found in the
// given paths. A path may be a single .hcl file or a directory searched
// recursively; files are applied in lexical order. Missing paths are skipped.
func Load(ctx context.Context, paths ...string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Launcher config loading started.", "path_count", len(paths))

	cfg := Default()

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered launcher config files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for _, block := range root.Launchers {
			if err := block.apply(cfg); err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
		}
		logger.Debug("Applied launcher config file.", "file", file, "blocks", len(root.Launchers))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid launcher configuration: %w", err)
	}
	return cfg, nil
}

func (b *launcherBlock) apply(cfg *Config) error {
	setString(&cfg.TokenEnv, b.TokenEnv)

	if d := b.Dispatcher; d != nil {
		setString(&cfg.Dispatcher.URL, d.URL)
		if d.StorageGiB != nil {
			cfg.Dispatcher.StorageGiB = *d.StorageGiB
		}
		if err := setDuration(&cfg.Dispatcher.Timeout, d.Timeout, "dispatcher.timeout"); err != nil {
			return err
		}
	}

	if e := b.Engine; e != nil {
		setString(&cfg.Engine.Binary, e.Binary)
		setString(&cfg.Engine.Entrypoint, e.Entrypoint)
		setString(&cfg.Engine.Profile, e.Profile)
		setString(&cfg.Engine.ConfigFile, e.ConfigFile)
		setString(&cfg.Engine.ClaimEnv, e.ClaimEnv)
		if e.Env != nil {
			merged := maps.Clone(cfg.Engine.Env)
			if merged == nil {
				merged = make(map[string]string, len(e.Env))
			}
			maps.Copy(merged, e.Env)
			cfg.Engine.Env = merged
		}
	}

	if m := b.Mirror; m != nil {
		setString(&cfg.Mirror.Source, m.Source)
		setString(&cfg.Mirror.Shared, m.Shared)
		if m.Ignore != nil {
			val, diags := m.Ignore.Value(nil)
			if diags.HasErrors() {
				return fmt.Errorf("mirror.ignore: %w", diags)
			}
			if !val.IsNull() {
				var ignore []string
				if diags := gohcl.DecodeExpression(m.Ignore, nil, &ignore); diags.HasErrors() {
					return fmt.Errorf("mirror.ignore: %w", diags)
				}
				if ignore == nil {
					ignore = []string{}
				}
				cfg.Mirror.Ignore = ignore
			}
		}
	}

	if l := b.Logs; l != nil {
		setString(&cfg.Logs.Root, l.Root)
		setString(&cfg.Logs.PipelineName, l.PipelineName)
		setString(&cfg.Logs.ExecutionNameEnv, l.ExecutionNameEnv)
		if err := setDuration(&cfg.Logs.Timeout, l.Timeout, "logs.timeout"); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

// CheckExplicitPath validates a path the user named directly. Load skips
// missing paths, which would hide a typo in a -config flag; this refuses
// them. A directory is accepted, a file must end in .hcl.
func CheckExplicitPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config path %s: %w", path, err)
	}
	if !info.IsDir() && filepath.Ext(path) != ".hcl" {
		return fmt.Errorf("config path %s: not an .hcl file", path)
	}
	return nil
}

// findAllHCLFiles walks all given paths and returns a sorted, de-duplicated
// list of all .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return allFiles, nil
}
