// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file resolves the parameter values of a single run.
//
// Values arrive as a flat file of attributes, either in HCL native syntax or
// in JSON. Every attribute must name a catalog parameter. Attributes are
// converted to the parameter's kind, and parameters the file leaves out take
// their catalog default. The result is a complete map: every catalog name is
// present, and null means "pass no flag".
package params

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/nfgenomeannotator/internal/catalog"
	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Values maps every catalog parameter name to its value for one run.
type Values map[string]cty.Value

// ErrMissingRequired is wrapped by Resolve when a non-optional parameter
// has neither a value nor a default.
var ErrMissingRequired = errors.New("required parameter has no value")

// LoadFile reads a values file. Files ending in .json are parsed as JSON,
// anything else as HCL native syntax.
func LoadFile(ctx context.Context, c *catalog.Catalog, path string) (Values, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters file: %w", err)
	}
	return Parse(ctx, c, path, src)
}

// Parse decodes src, named filename for diagnostics, and resolves it
// against the catalog.
func Parse(ctx context.Context, c *catalog.Catalog, filename string, src []byte) (Values, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)

	parser := hclparse.NewParser()
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		file, diags = parser.ParseJSON(src, filename)
	} else {
		file, diags = parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse parameters file %s: %w", filename, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode parameters file %s: %w", filename, diags)
	}

	supplied := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parameter %q: %w", name, diags)
		}
		supplied[name] = val
	}
	logger.Debug("Parameters file decoded.", "attributes", len(supplied))

	return Resolve(c, supplied)
}

// Resolve converts the supplied values to their declared kinds and fills
// in defaults. An explicit null for an optional parameter stays null even
// when it has a default; for a non-optional one it falls back to the default.
func Resolve(c *catalog.Catalog, supplied map[string]cty.Value) (Values, error) {
	var errs []error

	var unknown []string
	for name := range supplied {
		if _, ok := c.Get(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, fmt.Errorf("unknown parameter %q", name))
	}

	out := make(Values, c.Len())
	for _, d := range c.Descriptors() {
		raw, given := supplied[d.Name]
		if !given || (raw.IsNull() && !d.Optional) {
			raw = d.Default
		}

		val, err := catalog.ConvertValue(d.Kind, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("parameter %q: %w", d.Name, err))
			continue
		}
		if val.IsNull() && !d.Optional {
			errs = append(errs, fmt.Errorf("parameter %q: %w", d.Name, ErrMissingRequired))
			continue
		}
		out[d.Name] = val
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
