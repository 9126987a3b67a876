//go:build !unix

package nextflow

import "os/exec"

// Without POSIX process groups the default exec.CommandContext cancellation
// kills the engine process only.
func configureCommandProcess(cmd *exec.Cmd) {}
