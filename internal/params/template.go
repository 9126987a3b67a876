// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file renders a starter parameters file from the catalog.
package params

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/nfgenomeannotator/internal/catalog"
)

// WriteTemplate writes an HCL parameters file listing every catalog
// parameter with its default, grouped under section comments. Required
// parameters without a default are written as null and must be filled in
// before the file resolves.
func WriteTemplate(w io.Writer, c *catalog.Catalog) error {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	wf := c.Workflow()
	body.AppendUnstructuredTokens(comment(fmt.Sprintf("Parameters for %s (%s).", wf.DisplayName, wf.Name)))

	section := ""
	for _, d := range c.Descriptors() {
		if d.Section != section {
			section = d.Section
			body.AppendNewline()
			body.AppendUnstructuredTokens(comment("--- " + section + " ---"))
		}

		body.AppendNewline()
		if d.Description != "" {
			body.AppendUnstructuredTokens(comment(d.Description))
		}
		label := d.TypeName()
		if d.Output {
			label += ", output"
		}
		if !d.Optional && !d.HasDefault() {
			label += ", required"
		}
		body.AppendUnstructuredTokens(comment(label))
		body.SetAttributeValue(d.Name, d.Default)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write parameters template: %w", err)
	}
	return nil
}

func comment(text string) hclwrite.Tokens {
	text = strings.Join(strings.Fields(text), " ")
	return hclwrite.Tokens{
		{Type: hclsyntax.TokenComment, Bytes: []byte("# " + text + "\n")},
	}
}
