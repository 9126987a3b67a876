// Package catalog declares the input parameters of the wrapped
// nf-core/genomeannotator pipeline.
//
// The catalog is parsed once from an embedded HCL manifest and is read-only
// afterwards. It is consumed twice: by the schema export that drives form
// rendering, and by the launcher when it turns parameter values into
// command-line flags.
package catalog
