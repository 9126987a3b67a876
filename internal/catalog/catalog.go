package catalog

import (
	"github.com/zclconf/go-cty/cty"
)

// Kind is the declared value kind of a pipeline parameter.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	// KindFile and KindDir are paths on the platform's storage. They travel
	// as strings but render differently in a form.
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// CtyType returns the cty type used to hold values of this kind.
func (k Kind) CtyType() cty.Type {
	switch k {
	case KindNumber:
		return cty.Number
	case KindBool:
		return cty.Bool
	default:
		return cty.String
	}
}

// Descriptor is the schema entry for one pipeline input.
type Descriptor struct {
	Name     string
	Kind     Kind
	Optional bool
	// Output marks a directory the pipeline writes its results into.
	Output bool
	// Default is always typed; it is a null value when the parameter has no default.
	Default cty.Value
	// SectionTitle is the section label exactly as declared. An empty title
	// continues the section of the preceding parameter.
	SectionTitle string
	// Section is the effective UI grouping label.
	Section     string
	Description string
}

// TypeName renders the declared type the way it is written in a manifest,
// e.g. "optional(number)".
func (d *Descriptor) TypeName() string {
	if d.Optional {
		return "optional(" + string(d.Kind) + ")"
	}
	return string(d.Kind)
}

// HasDefault reports whether the parameter declares a non-null default.
func (d *Descriptor) HasDefault() bool {
	return !d.Default.IsNull()
}

// Task is a resource request for one of the workflow's platform tasks.
type Task struct {
	Name       string
	CPU        float64
	MemoryGiB  float64
	StorageGiB int
}

// Workflow holds the registration metadata of the wrapped pipeline.
type Workflow struct {
	Name        string
	DisplayName string
	Description string
	Tasks       []Task
}

// Task returns the resource request for the named task.
func (w Workflow) Task(name string) (Task, bool) {
	for _, t := range w.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// Catalog is an ordered, read-only set of parameter descriptors.
type Catalog struct {
	workflow    Workflow
	descriptors []*Descriptor
	index       map[string]*Descriptor
}

// Workflow returns the workflow metadata declared alongside the parameters.
func (c *Catalog) Workflow() Workflow {
	return c.workflow
}

// Len returns the number of parameters.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// Get looks up a descriptor by parameter name.
func (c *Catalog) Get(name string) (*Descriptor, bool) {
	d, ok := c.index[name]
	return d, ok
}

// Names returns the parameter names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		names[i] = d.Name
	}
	return names
}

// Descriptors returns the descriptors in declaration order. The slice is a
// copy; the descriptors themselves must not be modified.
func (c *Catalog) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Sections returns the distinct effective section labels in the order they
// first appear.
func (c *Catalog) Sections() []string {
	var sections []string
	seen := make(map[string]struct{})
	for _, d := range c.descriptors {
		if d.Section == "" {
			continue
		}
		if _, ok := seen[d.Section]; ok {
			continue
		}
		seen[d.Section] = struct{}{}
		sections = append(sections, d.Section)
	}
	return sections
}
