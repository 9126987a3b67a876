// Package config defines the launcher's runtime configuration: where the
// storage dispatcher lives, how the pipeline engine is invoked, which
// directory is mirrored into shared storage and where the engine log goes.
//
// Default returns the values the genomeannotator workflow was built with.
// Deployments override individual fields with HCL `launcher` blocks loaded
// by Load; the resulting Config is passed explicitly to the launcher.
package config
