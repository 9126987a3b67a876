// Package app wires the launcher together: it loads the launcher
// configuration, builds the HTTP clients and engine runner, and executes the
// requested workflow phase, decoupled from any specific entrypoint like a CLI.
package app
