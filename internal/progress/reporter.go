package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/confidant-ai/confidant/internal/pipeline"
)

// Reporter renders pipeline phase events for a terminal user.
type Reporter interface {
	Start()
	Phase(event pipeline.Event)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive
// terminal, or a PlainReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &PlainReporter{}
	}
	return &TerminalReporter{}
}

// phaseSteps is the number of phases shown by the progress bar.
var phaseSteps = []pipeline.Phase{
	pipeline.PhaseExtracting,
	pipeline.PhaseMerging,
	pipeline.PhaseGenerating,
	pipeline.PhaseAdjusting,
}

// TerminalReporter displays a progress bar that advances per phase.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start() {
	r.bar = progressbar.NewOptions(len(phaseSteps),
		progressbar.OptionSetDescription("Thinking"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Phase(event pipeline.Event) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(event.Summary)
	if event.Status != pipeline.StatusComplete {
		return
	}
	for i, phase := range phaseSteps {
		if phase == event.Phase {
			_ = r.bar.Set(i + 1)
			return
		}
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// PlainReporter prints line-by-line progress suitable for CI logs.
type PlainReporter struct{}

func (r *PlainReporter) Start() {
	fmt.Fprintln(os.Stderr, "Processing message")
}

func (r *PlainReporter) Phase(event pipeline.Event) {
	fmt.Fprintf(os.Stderr, "[%s/%s] %s\n", event.Phase, event.Status, event.Summary)
}

func (r *PlainReporter) Finish() {
	fmt.Fprintln(os.Stderr, "Done")
}
