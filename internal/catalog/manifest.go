package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/nfgenomeannotator/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

//go:embed genomeannotator.hcl
var embeddedManifest []byte

// manifestFilename is the name reported in diagnostics for the embedded manifest.
const manifestFilename = "genomeannotator.hcl"

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Load(context.Background(), manifestFilename, embeddedManifest)
	if err != nil {
		// The manifest is compiled into the binary, so this is a programmer error.
		panic(fmt.Errorf("embedded parameter manifest is invalid: %w", err))
	}
	return c
})

// Default returns the genomeannotator catalog.
func Default() *Catalog {
	return defaultCatalog()
}

// manifestRoot is used to decode all top-level blocks of a manifest.
type manifestRoot struct {
	Workflow   *workflowBlock    `hcl:"workflow,block"`
	Parameters []*parameterBlock `hcl:"parameter,block"`
}

type workflowBlock struct {
	Name        string       `hcl:"name,label"`
	DisplayName string       `hcl:"display_name"`
	Description string       `hcl:"description,optional"`
	Tasks       []*taskBlock `hcl:"task,block"`
}

type taskBlock struct {
	Name       string  `hcl:"name,label"`
	CPU        float64 `hcl:"cpu"`
	MemoryGiB  float64 `hcl:"memory_gib"`
	StorageGiB int     `hcl:"storage_gib"`
}

// parameterBlock is one `parameter "<name>" { ... }` block. Type and Default
// are kept as raw expressions: the type is a keyword, not a value.
type parameterBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Default     hcl.Expression `hcl:"default,optional"`
	Output      bool           `hcl:"output,optional"`
	Section     string         `hcl:"section,optional"`
	Description string         `hcl:"description,optional"`
}

// Load parses a parameter manifest and builds a Catalog from it.
func Load(ctx context.Context, filename string, src []byte) (*Catalog, error) {
	ctx, logger := ctxlog.With(ctx, "manifest", filename)
	logger.Debug("Parameter manifest loading started.")

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}

	var root manifestRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", filename, diags)
	}
	if root.Workflow == nil {
		return nil, fmt.Errorf("manifest %s: missing workflow block", filename)
	}

	c := &Catalog{
		workflow:    translateWorkflow(root.Workflow),
		descriptors: make([]*Descriptor, 0, len(root.Parameters)),
		index:       make(map[string]*Descriptor, len(root.Parameters)),
	}

	section := ""
	for _, p := range root.Parameters {
		if _, dup := c.index[p.Name]; dup {
			return nil, fmt.Errorf("manifest %s: parameter %q is declared more than once", filename, p.Name)
		}
		d, err := translateParameter(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", filename, err)
		}
		if d.SectionTitle != "" {
			section = d.SectionTitle
		}
		d.Section = section
		c.descriptors = append(c.descriptors, d)
		c.index[d.Name] = d
	}

	logger.Debug("Parameter manifest loaded.", "workflow", c.workflow.Name, "parameters", len(c.descriptors))
	return c, nil
}

func translateWorkflow(w *workflowBlock) Workflow {
	out := Workflow{
		Name:        w.Name,
		DisplayName: w.DisplayName,
		Description: w.Description,
	}
	for _, t := range w.Tasks {
		out.Tasks = append(out.Tasks, Task{
			Name:       t.Name,
			CPU:        t.CPU,
			MemoryGiB:  t.MemoryGiB,
			StorageGiB: t.StorageGiB,
		})
	}
	return out
}

// translateParameter converts one HCL parameter block into a Descriptor,
// parsing its type and converting its default to that type.
func translateParameter(ctx context.Context, p *parameterBlock) (*Descriptor, error) {
	kind, optional, err := typeExprToKind(ctx, p.Type)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	if p.Output && kind != KindDir {
		return nil, fmt.Errorf("parameter %q: only dir parameters can be outputs", p.Name)
	}

	def := cty.NullVal(kind.CtyType())
	if p.Default != nil {
		val, diags := p.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for parameter %q: %w", p.Name, diags)
		}
		if !val.IsNull() {
			def, err = ConvertValue(kind, val)
			if err != nil {
				return nil, fmt.Errorf("invalid default value for parameter %q: %w", p.Name, err)
			}
		}
	}

	return &Descriptor{
		Name:         p.Name,
		Kind:         kind,
		Optional:     optional,
		Output:       p.Output,
		Default:      def,
		SectionTitle: p.Section,
		Description:  p.Description,
	}, nil
}

// ConvertValue converts v to the cty type of kind. Numbers must be whole;
// the pipeline declares no fractional parameters. Null values convert to a
// typed null.
func ConvertValue(kind Kind, v cty.Value) (cty.Value, error) {
	want := kind.CtyType()
	if v.IsNull() {
		return cty.NullVal(want), nil
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("value must be known")
	}
	out, err := convert.Convert(v, want)
	if err != nil {
		return cty.NilVal, fmt.Errorf("expected %s: %w", kind, err)
	}
	if kind == KindNumber && !out.AsBigFloat().IsInt() {
		return cty.NilVal, fmt.Errorf("expected a whole number, got %s", out.AsBigFloat().Text('f', -1))
	}
	return out, nil
}
