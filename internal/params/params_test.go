package params

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/nfgenomeannotator/internal/catalog"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const testManifest = `
workflow "wf" {
  display_name = "Test workflow"
}

parameter "assembly" {
  type    = file
  section = "IO"
}

parameter "outdir" {
  type   = dir
  output = true
}

parameter "npart_size" {
  type    = optional(number)
  default = 200000000
  section = "Behavior"
}

parameter "aug_training" {
  type    = optional(bool)
  default = false
}

parameter "label" {
  type    = string
  default = "None"
}

parameter "rm_species" {
  type = optional(string)
}
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(context.Background(), "test.hcl", []byte(testManifest))
	require.NoError(t, err)
	return c
}

func TestParse_HCLAppliesDefaults(t *testing.T) {
	t.Parallel()

	src := `
assembly = "a.fa"
outdir   = "out/"
`
	values, err := Parse(context.Background(), testCatalog(t), "run.hcl", []byte(src))
	require.NoError(t, err)

	require.Len(t, values, 6)
	require.True(t, values["assembly"].RawEquals(cty.StringVal("a.fa")))
	require.True(t, values["outdir"].RawEquals(cty.StringVal("out/")))
	require.True(t, values["npart_size"].RawEquals(cty.NumberIntVal(200000000)))
	require.True(t, values["aug_training"].RawEquals(cty.False))
	require.True(t, values["label"].RawEquals(cty.StringVal("None")))
	require.True(t, values["rm_species"].RawEquals(cty.NullVal(cty.String)))
}

func TestParse_JSON(t *testing.T) {
	t.Parallel()

	src := `{"assembly": "a.fa", "outdir": "out/", "npart_size": null, "aug_training": true, "rm_species": "human"}`
	values, err := Parse(context.Background(), testCatalog(t), "run.json", []byte(src))
	require.NoError(t, err)

	require.True(t, values["npart_size"].IsNull(), "explicit null on an optional parameter overrides its default")
	require.True(t, values["aug_training"].RawEquals(cty.True))
	require.True(t, values["rm_species"].RawEquals(cty.StringVal("human")))
}

func TestParse_ConvertsToDeclaredKind(t *testing.T) {
	t.Parallel()

	src := `
assembly     = "a.fa"
outdir       = "out/"
npart_size   = "1000"
aug_training = "true"
label        = 7
`
	values, err := Parse(context.Background(), testCatalog(t), "run.hcl", []byte(src))
	require.NoError(t, err)
	require.True(t, values["npart_size"].RawEquals(cty.NumberIntVal(1000)))
	require.True(t, values["aug_training"].RawEquals(cty.True))
	require.True(t, values["label"].RawEquals(cty.StringVal("7")))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		file    string
		src     string
		wantErr string
	}{
		{
			name:    "unknown parameter",
			file:    "run.hcl",
			src:     "assembly = \"a\"\noutdir = \"o\"\nbogus = 1\n",
			wantErr: `unknown parameter "bogus"`,
		},
		{
			name:    "missing required",
			file:    "run.hcl",
			src:     "outdir = \"o\"\n",
			wantErr: `parameter "assembly"`,
		},
		{
			name:    "null required",
			file:    "run.hcl",
			src:     "assembly = null\noutdir = \"o\"\n",
			wantErr: `parameter "assembly"`,
		},
		{
			name:    "fractional number",
			file:    "run.hcl",
			src:     "assembly = \"a\"\noutdir = \"o\"\nnpart_size = 1.5\n",
			wantErr: "whole number",
		},
		{
			name:    "wrong kind",
			file:    "run.hcl",
			src:     "assembly = \"a\"\noutdir = \"o\"\naug_training = \"maybe\"\n",
			wantErr: `parameter "aug_training"`,
		},
		{
			name:    "blocks are rejected",
			file:    "run.hcl",
			src:     "assembly = \"a\"\nnested {\n}\n",
			wantErr: "failed to decode",
		},
		{
			name:    "variables are rejected",
			file:    "run.hcl",
			src:     "assembly = var.x\noutdir = \"o\"\n",
			wantErr: `parameter "assembly"`,
		},
		{
			name:    "invalid json",
			file:    "run.json",
			src:     "{",
			wantErr: "failed to parse",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(context.Background(), testCatalog(t), tc.file, []byte(tc.src))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestResolve_MissingRequiredIsTyped(t *testing.T) {
	t.Parallel()

	_, err := Resolve(testCatalog(t), map[string]cty.Value{"assembly": cty.StringVal("a")})
	require.ErrorIs(t, err, ErrMissingRequired)
	require.Contains(t, err.Error(), `parameter "outdir"`)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "params.hcl")
	require.NoError(t, os.WriteFile(path, []byte("assembly = \"a.fa\"\noutdir = \"out/\"\n"), 0o644))

	values, err := LoadFile(context.Background(), testCatalog(t), path)
	require.NoError(t, err)
	require.Equal(t, "a.fa", values["assembly"].AsString())

	_, err = LoadFile(context.Background(), testCatalog(t), filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
}

func TestWriteTemplate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, testCatalog(t)))
	out := buf.String()

	require.Contains(t, out, "# Parameters for Test workflow (wf).")
	require.Contains(t, out, "# --- IO ---")
	require.Contains(t, out, "# --- Behavior ---")
	require.Contains(t, out, "# dir, output, required")
	require.Contains(t, out, "# optional(number)")
	require.Less(t, strings.Index(out, "assembly"), strings.Index(out, "npart_size"))
	require.Contains(t, out, "npart_size = 200000000")
	require.Contains(t, out, "aug_training = false")
	require.Contains(t, out, "assembly = null")

	// The untouched template fails only on the required parameters.
	_, err := Parse(context.Background(), testCatalog(t), "template.hcl", buf.Bytes())
	require.ErrorIs(t, err, ErrMissingRequired)

	filled := strings.Replace(out, "assembly = null", `assembly = "a.fa"`, 1)
	filled = strings.Replace(filled, "outdir = null", `outdir = "out/"`, 1)
	values, err := Parse(context.Background(), testCatalog(t), "template.hcl", []byte(filled))
	require.NoError(t, err)
	require.True(t, values["npart_size"].RawEquals(cty.NumberIntVal(200000000)))
	require.True(t, values["rm_species"].IsNull())
}

func TestWriteTemplate_EmbeddedCatalogResolves(t *testing.T) {
	t.Parallel()

	c := catalog.Default()
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, c))

	filled := strings.Replace(buf.String(), "assembly = null", `assembly = "genome.fa"`, 1)
	filled = strings.Replace(filled, "outdir = null", `outdir = "results/"`, 1)
	values, err := Parse(context.Background(), c, "template.hcl", []byte(filled))
	require.NoError(t, err)
	require.Len(t, values, c.Len())

	for _, d := range c.Descriptors() {
		if d.Name == "assembly" || d.Name == "outdir" {
			continue
		}
		require.True(t, values[d.Name].RawEquals(d.Default), "parameter %q should keep its default", d.Name)
	}
}
