// Package pipeline runs the per-message enrichment sequence: extract
// insights, merge them into the profile, assemble relevant context,
// generate a response, and adjust its style. Progress is reported as an
// ordered stream of phase events.
package pipeline

import "fmt"

// Phase identifies a pipeline stage.
type Phase string

const (
	PhaseExtracting Phase = "extracting"
	PhaseMerging    Phase = "merging"
	PhaseGenerating Phase = "generating"
	PhaseAdjusting  Phase = "adjusting"
	PhaseComplete   Phase = "complete"
)

// Status is the progress state carried by an event.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Event is one ordered progress notification emitted during a run.
type Event struct {
	Phase   Phase          `json:"phase"`
	Status  Status         `json:"status"`
	Summary string         `json:"summary"`
	Payload map[string]any `json:"payload,omitempty"`
}

// EmitFunc delivers one event to the caller. A non-nil return cancels
// the run: no further phases execute and no further writes happen.
type EmitFunc func(Event) error

// Degradation records a phase that fell back to reduced output instead
// of failing the run.
type Degradation struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason"`
}

// PhaseError is an unrecoverable failure attributed to a single phase.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("pipeline phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
