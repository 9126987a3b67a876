package launcher

import "time"

// Phase is a step of the launcher's lifecycle, exposed through the health
// check.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseInitialize Phase = "initialize"
	PhaseMirror     Phase = "mirror"
	PhaseRun        Phase = "run"
	PhaseUpload     Phase = "upload"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// defaultUploadTimeout bounds the log upload when the config sets none.
// The upload runs detached from the run's context so a cancelled run still
// publishes its log.
const defaultUploadTimeout = 2 * time.Minute
