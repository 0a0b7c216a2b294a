package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/confidant-ai/confidant/internal/audit"
	"github.com/confidant-ai/confidant/internal/insight"
	"github.com/confidant-ai/confidant/internal/llm"
	"github.com/confidant-ai/confidant/internal/profile"
)

// DefaultPhaseTimeout bounds each phase's outbound call.
const DefaultPhaseTimeout = 60 * time.Second

// Request carries one incoming message through the pipeline.
type Request struct {
	UserID  string `json:"user_id"`
	ChatID  string `json:"chat_id,omitempty"`
	Content string `json:"content"`
	History []Turn `json:"message_history,omitempty"`
	// SystemPrompt overrides the context-aware generation prompt when set.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// Result is the terminal outcome of a successful run.
type Result struct {
	Response     string          `json:"response"`
	Insight      insight.Insight `json:"insight"`
	Degradations []Degradation   `json:"degradations,omitempty"`
}

// Runner is the pipeline state machine. Each Run is strictly
// sequential; concurrent runs are independent and safe.
type Runner struct {
	Extractor *insight.Extractor
	Assembler *Assembler
	Generator *Generator
	Adjustor  *Adjustor

	// Audits records merge outcomes when set. Audit failures are
	// logged and never affect the run.
	Audits *audit.Store

	// PhaseTimeout bounds each phase's outbound call. Zero disables
	// the limit. Expiry in an LLM phase degrades that phase; expiry
	// in the merge phase fails the run.
	PhaseTimeout time.Duration
}

// NewRunner wires a pipeline from a provider, a model, and the profile
// store.
func NewRunner(provider llm.Provider, model string, profiles *profile.Store) *Runner {
	return &Runner{
		Extractor:    insight.NewExtractor(provider, model),
		Assembler:    NewAssembler(profiles),
		Generator:    NewGenerator(provider, model),
		Adjustor:     NewAdjustor(provider, model),
		PhaseTimeout: DefaultPhaseTimeout,
	}
}

// Run processes one message, emitting ordered phase events along the
// way. A successful run ends with a "complete" event carrying the reply
// and the extracted insight. The only unrecoverable failure is the
// profile merge: it produces exactly one error event and stops the run.
// Emit errors and context cancellation stop the run between phases.
func (r *Runner) Run(ctx context.Context, req Request, emit EmitFunc) (*Result, error) {
	result := &Result{}

	// Phase 1: extract insights. Failures degrade to an empty insight.
	if err := r.begin(ctx, emit, PhaseExtracting, "Analyzing your message"); err != nil {
		return nil, err
	}
	extraction := r.extract(ctx, req.Content)
	if extraction.Degraded {
		log.Printf("[pipeline] extraction degraded for user %s: %s", req.UserID, extraction.Reason)
		result.Degradations = append(result.Degradations, Degradation{Phase: PhaseExtracting, Reason: extraction.Reason})
	}
	result.Insight = extraction.Insight
	if err := r.complete(ctx, emit, PhaseExtracting, "Finished analyzing", map[string]any{
		"topics":    len(extraction.Insight.Topics),
		"people":    len(extraction.Insight.People),
		"interests": len(extraction.Insight.Interests),
		"stories":   len(extraction.Insight.Stories),
		"degraded":  extraction.Degraded,
	}); err != nil {
		return nil, err
	}

	// Phase 2: merge into the profile and read back relevant context.
	// This is the only phase whose failure aborts the run.
	if err := r.begin(ctx, emit, PhaseMerging, "Updating your profile"); err != nil {
		return nil, err
	}
	pc, err := r.assemble(ctx, req.UserID, extraction.Insight)
	if err != nil {
		log.Printf("[pipeline] merge failed for user %s: %v", req.UserID, err)
		phaseErr := &PhaseError{Phase: PhaseMerging, Err: err}
		if emitErr := emit(Event{
			Phase:   PhaseMerging,
			Status:  StatusError,
			Summary: "Failed to update your profile",
			Payload: map[string]any{"failingPhase": string(PhaseMerging), "message": err.Error()},
		}); emitErr != nil {
			return nil, fmt.Errorf("emitting error event: %w", emitErr)
		}
		return nil, phaseErr
	}
	r.recordMerge(ctx, req, extraction.Insight)
	if err := r.complete(ctx, emit, PhaseMerging, "Profile updated", map[string]any{
		"relevant_interests": len(pc.Interests),
		"relevant_people":    len(pc.People),
		"relevant_stories":   len(pc.Stories),
	}); err != nil {
		return nil, err
	}

	// Phase 3: generate a draft. Failures degrade to an apology.
	if err := r.begin(ctx, emit, PhaseGenerating, "Drafting a response"); err != nil {
		return nil, err
	}
	draft, deg := r.generate(ctx, req, pc)
	if deg != nil {
		log.Printf("[pipeline] generation degraded for user %s: %s", req.UserID, deg.Reason)
		result.Degradations = append(result.Degradations, *deg)
	}
	if err := r.complete(ctx, emit, PhaseGenerating, "Draft ready", map[string]any{
		"degraded": deg != nil,
	}); err != nil {
		return nil, err
	}

	// Phase 4: adjust style. Failures degrade to the unchanged draft.
	if err := r.begin(ctx, emit, PhaseAdjusting, "Matching your style"); err != nil {
		return nil, err
	}
	final, deg := r.adjust(ctx, draft, pc.Style())
	if deg != nil {
		log.Printf("[pipeline] adjustment degraded for user %s: %s", req.UserID, deg.Reason)
		result.Degradations = append(result.Degradations, *deg)
	}
	result.Response = final
	if err := r.complete(ctx, emit, PhaseAdjusting, "Response styled", map[string]any{
		"degraded": deg != nil,
	}); err != nil {
		return nil, err
	}

	if err := emit(Event{
		Phase:   PhaseComplete,
		Status:  StatusComplete,
		Summary: "Done",
		Payload: map[string]any{
			"replyText": result.Response,
			"insight":   result.Insight,
		},
	}); err != nil {
		return nil, fmt.Errorf("emitting event: %w", err)
	}

	return result, nil
}

// RunToCompletion drives the pipeline without incremental status,
// returning only the terminal result.
func (r *Runner) RunToCompletion(ctx context.Context, req Request) (*Result, error) {
	return r.Run(ctx, req, func(Event) error { return nil })
}

func (r *Runner) extract(ctx context.Context, message string) insight.Extraction {
	ctx, cancel := r.phaseContext(ctx)
	defer cancel()
	return r.Extractor.Extract(ctx, message)
}

func (r *Runner) assemble(ctx context.Context, userID string, ins insight.Insight) (ProfileContext, error) {
	ctx, cancel := r.phaseContext(ctx)
	defer cancel()
	return r.Assembler.Assemble(ctx, userID, ins)
}

func (r *Runner) generate(ctx context.Context, req Request, pc ProfileContext) (string, *Degradation) {
	ctx, cancel := r.phaseContext(ctx)
	defer cancel()
	return r.Generator.Draft(ctx, req.Content, req.History, req.SystemPrompt, pc)
}

func (r *Runner) adjust(ctx context.Context, draft string, style map[string]any) (string, *Degradation) {
	ctx, cancel := r.phaseContext(ctx)
	defer cancel()
	return r.Adjustor.Adjust(ctx, draft, style)
}

func (r *Runner) phaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.PhaseTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.PhaseTimeout)
}

// begin checks for cancellation and emits the phase's start event.
func (r *Runner) begin(ctx context.Context, emit EmitFunc, phase Phase, summary string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", phase, err)
	}
	if err := emit(Event{Phase: phase, Status: StatusInProgress, Summary: summary}); err != nil {
		return fmt.Errorf("emitting event: %w", err)
	}
	return nil
}

func (r *Runner) complete(ctx context.Context, emit EmitFunc, phase Phase, summary string, payload map[string]any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled during %s: %w", phase, err)
	}
	if err := emit(Event{Phase: phase, Status: StatusComplete, Summary: summary, Payload: payload}); err != nil {
		return fmt.Errorf("emitting event: %w", err)
	}
	return nil
}

// recordMerge writes an audit entry for a successful merge. Best effort.
func (r *Runner) recordMerge(ctx context.Context, req Request, ins insight.Insight) {
	if r.Audits == nil {
		return
	}
	entry := audit.Entry{
		ActorType:        audit.ActorSystem,
		ActorID:          "pipeline",
		Action:           audit.ActionInsightMerged,
		UserID:           req.UserID,
		ChatID:           req.ChatID,
		Summary:          mergeSummary(ins),
		AffectedEntities: affectedEntities(ins),
	}
	if err := r.Audits.Log(ctx, entry); err != nil {
		log.Printf("[pipeline] audit log failed for user %s: %v", req.UserID, err)
	}
}

func mergeSummary(ins insight.Insight) string {
	return fmt.Sprintf("Merged %d interests, %d people, %d stories, %d traits",
		len(ins.Interests), len(ins.People), len(ins.Stories), len(ins.PersonalityTraits))
}

func affectedEntities(ins insight.Insight) []string {
	var entities []string
	for _, i := range ins.Interests {
		entities = append(entities, "interest:"+i.Name)
	}
	for _, p := range ins.People {
		entities = append(entities, "person:"+p.Name)
	}
	for _, s := range ins.Stories {
		entities = append(entities, "story:"+s.Title)
	}
	return entities
}
