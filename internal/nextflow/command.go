package nextflow

import (
	"fmt"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
)

// Command holds the fixed part of an engine invocation.
type Command struct {
	Binary string
	// Entrypoint is the pipeline script, relative to WorkDir unless absolute.
	Entrypoint string
	WorkDir    string
	Profile    string
	ConfigFile string
}

// FormatValue renders a parameter value as a command-line token. It reports
// false for null values, which produce no flag at all.
func FormatValue(v cty.Value) (string, bool, error) {
	if v.IsNull() {
		return "", false, nil
	}
	if !v.IsKnown() {
		return "", false, fmt.Errorf("value is not known")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), true, nil
	case cty.Number:
		return v.AsBigFloat().Text('f', -1), true, nil
	case cty.Bool:
		if v.True() {
			return "true", true, nil
		}
		return "false", true, nil
	default:
		return "", false, fmt.Errorf("unsupported value type %s", v.Type().FriendlyName())
	}
}

// Flag returns the `--<name> <value>` pair for a parameter, or nothing when
// the value is null.
func Flag(name string, v cty.Value) ([]string, error) {
	text, ok, err := FormatValue(v)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	return []string{"--" + name, text}, nil
}

// BuildArgs assembles the full argv: the fixed `run` invocation followed by
// one flag pair per non-null value, in the order of names. Names missing
// from values are treated as null.
func BuildArgs(c Command, names []string, values map[string]cty.Value) ([]string, error) {
	entrypoint := c.Entrypoint
	if !filepath.IsAbs(entrypoint) {
		entrypoint = filepath.Join(c.WorkDir, entrypoint)
	}

	argv := []string{c.Binary, "run", entrypoint, "-work-dir", c.WorkDir}
	if c.Profile != "" {
		argv = append(argv, "-profile", c.Profile)
	}
	if c.ConfigFile != "" {
		argv = append(argv, "-c", c.ConfigFile)
	}

	for _, name := range names {
		v, ok := values[name]
		if !ok {
			continue
		}
		flag, err := Flag(name, v)
		if err != nil {
			return nil, err
		}
		argv = append(argv, flag...)
	}
	return argv, nil
}
