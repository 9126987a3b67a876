package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Schema is the JSON document a UI or API uses to render the launch form.
type Schema struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description,omitempty"`
	Tasks       []TaskSchema      `json:"tasks,omitempty"`
	Sections    []string          `json:"sections"`
	Parameters  []ParameterSchema `json:"parameters"`
}

// TaskSchema is the resource request of one platform task.
type TaskSchema struct {
	Name       string  `json:"name"`
	CPU        float64 `json:"cpu"`
	MemoryGiB  float64 `json:"memory_gib"`
	StorageGiB int     `json:"storage_gib"`
}

// ParameterSchema describes a single form field.
type ParameterSchema struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Kind        Kind            `json:"kind"`
	Optional    bool            `json:"optional"`
	Output      bool            `json:"output,omitempty"`
	Section     string          `json:"section,omitempty"`
	Description string          `json:"description,omitempty"`
	Default     json.RawMessage `json:"default"`
}

// Schema builds the form schema for the catalog.
func (c *Catalog) Schema() (*Schema, error) {
	s := &Schema{
		Name:        c.workflow.Name,
		DisplayName: c.workflow.DisplayName,
		Description: c.workflow.Description,
		Sections:    c.Sections(),
		Parameters:  make([]ParameterSchema, 0, len(c.descriptors)),
	}
	for _, t := range c.workflow.Tasks {
		s.Tasks = append(s.Tasks, TaskSchema(t))
	}

	for _, d := range c.descriptors {
		def, err := ctyjson.Marshal(d.Default, d.Kind.CtyType())
		if err != nil {
			return nil, fmt.Errorf("failed to encode default of parameter %q: %w", d.Name, err)
		}
		s.Parameters = append(s.Parameters, ParameterSchema{
			Name:        d.Name,
			Type:        d.TypeName(),
			Kind:        d.Kind,
			Optional:    d.Optional,
			Output:      d.Output,
			Section:     d.Section,
			Description: d.Description,
			Default:     def,
		})
	}
	return s, nil
}

// WriteSchema writes the indented JSON form schema to w.
func (c *Catalog) WriteSchema(w io.Writer) error {
	s, err := c.Schema()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
