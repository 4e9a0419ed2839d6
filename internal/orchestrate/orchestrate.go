// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate runs a deep research request end to end: plan, research,
// refine, research new sections, synthesize, assemble, and emit.
//
// Every run ends in exactly one of DONE, CANCELLED, or FAILED. A DONE run
// emits one deep_research_result event, a CANCELLED run one
// generation_cancelled event, and a FAILED run one task_error event; each is
// followed by exactly one persisted assistant message. The cancellation token
// is checked before every phase and every unit of work within a phase.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deep-research/internal/cancel"
	"github.com/pdiddy/deep-research/internal/events"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

// State is a step of the run state machine.
type State string

const (
	StateStart              State = "START"
	StatePlanInitial        State = "PLAN_INITIAL"
	StateResearchInitial    State = "RESEARCH_INITIAL"
	StatePlanRefine         State = "PLAN_REFINE"
	StateResearchAdditional State = "RESEARCH_ADDITIONAL"
	StateSynthesizeSections State = "SYNTHESIZE_SECTIONS"
	StateAssemble           State = "ASSEMBLE"
	StateEmitResult         State = "EMIT_RESULT"
	StateDone               State = "DONE"
	StateCancelled          State = "CANCELLED"
	StateFailed             State = "FAILED"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

var (
	// ErrEmptyPlan means the initial plan could not be generated.
	ErrEmptyPlan = errors.New("could not generate a research plan for this query")

	// ErrEmptyReportPlan means the report plan could not be generated from
	// the collected research.
	ErrEmptyReportPlan = errors.New("could not organize the collected research into report sections")
)

const (
	cancelledMessage   = "Deep research was cancelled. No report was generated."
	missingSectionBody = "*This section is unavailable.*"
)

// Planner produces research and report plans. An empty plan signals
// failure; a non-nil error carries its cause.
type Planner interface {
	Initial(ctx context.Context, query string) (types.Plan, error)
	Refined(ctx context.Context, query string, research *types.CollectedResearch) (types.Plan, error)
}

// Researcher resolves one objective into formatted source strings.
type Researcher interface {
	Run(ctx context.Context, objective string) []string
}

// Synthesizer writes one report section.
type Synthesizer interface {
	Section(ctx context.Context, name, description string, records []string) types.ReportSection
}

// Assembler builds the final document.
type Assembler interface {
	Summarize(ctx context.Context, body string) string
	NextSteps(ctx context.Context, body string) string
	Finalize(ctx context.Context, summary, body, nextSteps string) string
}

// Persister appends messages to a session's history.
type Persister interface {
	SaveArtifact(ctx context.Context, sessionID, role, text string) error
}

// Deps are the collaborators of an Orchestrator. Emitter, Persister, and
// Token may be nil.
type Deps struct {
	Planner     Planner
	Researcher  Researcher
	Synthesizer Synthesizer
	Assembler   Assembler
	Emitter     events.Emitter
	Persister   Persister
	Token       cancel.Token
}

// Request is one deep research request.
type Request struct {
	SessionID string
	ChatID    string
	Query     string
}

// Outcome is the result of a run.
type Outcome struct {
	SessionID   string
	Query       string
	State       State
	Report      string
	InitialPlan types.Plan
	ReportPlan  types.Plan
	Sources     *types.CollectedResearch
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Orchestrator sequences the research pipeline.
type Orchestrator struct {
	deps        Deps
	concurrency int
	log         *zap.Logger
}

// New returns an Orchestrator. A concurrency above one runs the units of a
// research or synthesis phase in parallel, bounded by that limit.
func New(deps Deps, concurrency int, log *zap.Logger) *Orchestrator {
	if deps.Emitter == nil {
		deps.Emitter = events.Discard
	}
	if deps.Token == nil {
		deps.Token = cancel.Never
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{deps: deps, concurrency: concurrency, log: log}
}

// run carries the mutable state of one request.
type run struct {
	req     Request
	out     *Outcome
	log     *zap.Logger
	initial types.Plan
	report  types.Plan
	sources *types.CollectedResearch
}

// Run executes req to a terminal state. It never panics and never returns
// without emitting the terminal event.
func (o *Orchestrator) Run(ctx context.Context, req Request) (out Outcome) {
	out = Outcome{
		SessionID: req.SessionID,
		Query:     req.Query,
		State:     StateStart,
		Sources:   types.NewCollectedResearch(),
		StartedAt: time.Now().UTC(),
	}
	r := &run{
		req:     req,
		out:     &out,
		log:     o.log.With(zap.String("session", req.SessionID)),
		sources: out.Sources,
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("research run panicked", zap.Any("panic", rec), zap.String("state", string(out.State)))
			if !out.State.Terminal() {
				o.fail(ctx, r, fmt.Errorf("unexpected failure during %s: %v", out.State, rec), "")
			}
		}
		out.FinishedAt = time.Now().UTC()
		r.log.Info("research run finished", zap.String("state", string(out.State)),
			zap.Duration("elapsed", out.FinishedAt.Sub(out.StartedAt)))
	}()

	r.log.Info("research run started", zap.String("query", req.Query), zap.Int("concurrency", o.concurrency))
	state := StatePlanInitial
	for !state.Terminal() {
		out.State = state
		if o.deps.Token.IsCancelled() {
			state = o.cancelled(ctx, r)
			break
		}
		r.log.Debug("entering state", zap.String("state", string(state)))
		state = o.step(ctx, r, state)
	}
	out.State = state
	return out
}

// step runs one state and returns the next.
func (o *Orchestrator) step(ctx context.Context, r *run, state State) State {
	switch state {
	case StatePlanInitial:
		o.status(r, "Planning research steps...")
		initial, err := o.deps.Planner.Initial(ctx, r.req.Query)
		r.initial = initial
		r.out.InitialPlan = initial
		if len(initial) == 0 {
			o.fail(ctx, r, planError(ErrEmptyPlan, err), "")
			return StateFailed
		}
		o.status(r, fmt.Sprintf("Research plan ready with %d steps.", len(r.initial)))
		return StateResearchInitial

	case StateResearchInitial:
		if !o.research(ctx, r, r.initial) {
			return o.cancelled(ctx, r)
		}
		return StatePlanRefine

	case StatePlanRefine:
		o.status(r, "Organizing findings into report sections...")
		report, err := o.deps.Planner.Refined(ctx, r.req.Query, r.sources)
		r.report = report
		r.out.ReportPlan = report
		if len(report) == 0 {
			o.fail(ctx, r, planError(ErrEmptyReportPlan, err), EvidenceDump(r.req.Query, r.sources))
			return StateFailed
		}
		return StateResearchAdditional

	case StateResearchAdditional:
		added := newSections(r.initial, r.report, r.sources)
		if len(added) == 0 {
			r.log.Debug("report plan adds no sections")
			return StateSynthesizeSections
		}
		o.status(r, fmt.Sprintf("Researching %d new sections...", len(added)))
		if !o.research(ctx, r, added) {
			return o.cancelled(ctx, r)
		}
		return StateSynthesizeSections

	case StateSynthesizeSections:
		sections, ok := o.synthesize(ctx, r)
		if !ok {
			return o.cancelled(ctx, r)
		}
		r.out.Report = AssembleBody(r.report, sections)
		return StateAssemble

	case StateAssemble:
		report, ok := o.assemble(ctx, r, r.out.Report)
		if !ok {
			return o.cancelled(ctx, r)
		}
		r.out.Report = report
		return StateEmitResult

	case StateEmitResult:
		o.deps.Emitter.Emit(types.EventDeepResearchResult, map[string]any{"report": r.out.Report}, r.req.SessionID)
		o.persist(ctx, r, r.out.Report)
		return StateDone
	}
	return StateFailed
}

// planError joins a planning sentinel with the gateway failure behind it,
// so configuration problems keep their LLM_ERROR category in the message.
func planError(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// research runs the researcher for each entry and appends results in plan
// order. It reports false when cancelled before all units started.
func (o *Orchestrator) research(ctx context.Context, r *run, entries types.Plan) bool {
	results := make([][]string, len(entries))
	ran := o.eachUnit(ctx, entries, func(ctx context.Context, i int, e types.PlanEntry) {
		o.status(r, fmt.Sprintf("Researching (%d/%d): %s", i+1, len(entries), e.Name))
		results[i] = o.researchUnit(ctx, r, e)
	})
	for i, e := range entries {
		if ran[i] {
			r.sources.Append(e.Name, results[i]...)
		}
	}
	r.log.Info("research phase finished", zap.Int("steps", len(entries)), zap.Int("records", r.sources.Len()))
	return allTrue(ran)
}

func (o *Orchestrator) researchUnit(ctx context.Context, r *run, e types.PlanEntry) (records []string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("research step panicked", zap.String("step", e.Name), zap.Any("panic", rec))
			records = []string{types.SystemError("research step %q failed: %v", e.Name, rec)}
		}
	}()
	records = o.deps.Researcher.Run(ctx, objective(e))
	if len(records) == 0 {
		records = []string{types.SystemError("research step %q returned no sources", e.Name)}
	}
	r.log.Info("research step complete", zap.String("step", e.Name), zap.Int("records", len(records)))
	return records
}

func objective(e types.PlanEntry) string {
	return e.Name + ": " + e.Description
}

// synthesize writes every report-plan section. The map is keyed by name.
func (o *Orchestrator) synthesize(ctx context.Context, r *run) (map[string]types.ReportSection, bool) {
	results := make([]types.ReportSection, len(r.report))
	ran := o.eachUnit(ctx, r.report, func(ctx context.Context, i int, e types.PlanEntry) {
		o.status(r, fmt.Sprintf("Writing section (%d/%d): %s", i+1, len(r.report), e.Name))
		results[i] = o.sectionUnit(ctx, r, e)
	})
	if !allTrue(ran) {
		return nil, false
	}
	sections := make(map[string]types.ReportSection, len(results))
	for _, s := range results {
		sections[s.Name] = s
	}
	return sections, true
}

func (o *Orchestrator) sectionUnit(ctx context.Context, r *run, e types.PlanEntry) (section types.ReportSection) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("section synthesis panicked", zap.String("section", e.Name), zap.Any("panic", rec))
			section = types.ReportSection{
				Name: e.Name,
				Body: fmt.Sprintf("## %s\n\n*Error generating this section: %v*", e.Name, rec),
			}
		}
	}()
	section = o.deps.Synthesizer.Section(ctx, e.Name, e.Description, r.sources.Get(e.Name))
	section.Name = e.Name
	return section
}

// eachUnit calls fn for every entry, checking the cancellation token before
// each one. With concurrency above one, units run in parallel up to that
// limit. The returned slice marks which units ran.
func (o *Orchestrator) eachUnit(ctx context.Context, entries types.Plan, fn func(context.Context, int, types.PlanEntry)) []bool {
	ran := make([]bool, len(entries))
	if o.concurrency == 1 {
		for i, e := range entries {
			if o.deps.Token.IsCancelled() {
				break
			}
			fn(ctx, i, e)
			ran[i] = true
		}
		return ran
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			if o.deps.Token.IsCancelled() {
				return nil
			}
			fn(ctx, i, e)
			ran[i] = true
			return nil
		})
	}
	_ = g.Wait()
	return ran
}

func (o *Orchestrator) assemble(ctx context.Context, r *run, body string) (string, bool) {
	o.status(r, "Writing executive summary...")
	summary := o.deps.Assembler.Summarize(ctx, body)
	if o.deps.Token.IsCancelled() {
		return "", false
	}
	o.status(r, "Suggesting next steps...")
	next := o.deps.Assembler.NextSteps(ctx, body)
	if o.deps.Token.IsCancelled() {
		return "", false
	}
	o.status(r, "Formatting final report...")
	return o.deps.Assembler.Finalize(ctx, summary, body, next), true
}

// AssembleBody joins sections in plan order. A plan entry with no section
// gets a placeholder.
func AssembleBody(plan types.Plan, sections map[string]types.ReportSection) string {
	parts := make([]string, 0, len(plan))
	for _, e := range plan {
		s, ok := sections[e.Name]
		if !ok || strings.TrimSpace(s.Body) == "" {
			parts = append(parts, fmt.Sprintf("## %s\n\n%s", e.Name, missingSectionBody))
			continue
		}
		parts = append(parts, strings.TrimSpace(s.Body))
	}
	return strings.Join(parts, "\n\n")
}

// newSections returns report entries that need research: names absent from
// the initial plan with no evidence collected yet.
func newSections(initial, report types.Plan, sources *types.CollectedResearch) types.Plan {
	var out types.Plan
	for _, e := range report {
		if initial.Has(e.Name) || sources.Has(e.Name) || out.Has(e.Name) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EvidenceDump renders collected research as a fallback report, one heading
// per research step in collection order.
func EvidenceDump(query string, sources *types.CollectedResearch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Collected Research: %s\n\n", query)
	b.WriteString("The report could not be completed. The raw evidence gathered for each research step follows.\n")
	for _, name := range sources.Names() {
		fmt.Fprintf(&b, "\n## %s\n\n", name)
		records := sources.Get(name)
		if len(records) == 0 {
			b.WriteString("*No sources were collected for this step.*\n")
			continue
		}
		for i, rec := range records {
			fmt.Fprintf(&b, "### Source %d\n\n%s\n\n", i+1, strings.TrimSpace(rec))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (o *Orchestrator) status(r *run, msg string) {
	o.deps.Emitter.Emit(types.EventStatusUpdate, map[string]any{"message": msg}, r.req.SessionID)
}

func (o *Orchestrator) cancelled(ctx context.Context, r *run) State {
	r.log.Info("research run cancelled", zap.String("state", string(r.out.State)))
	r.out.State = StateCancelled
	r.out.Report = ""
	o.deps.Emitter.Emit(types.EventGenerationCancelled,
		map[string]any{"message": cancelledMessage, "chat_id": r.req.ChatID}, r.req.SessionID)
	o.persist(ctx, r, cancelledMessage)
	return StateCancelled
}

// fail ends the run with err. A non-empty dump is carried in the error
// event and the persisted message after the error text.
func (o *Orchestrator) fail(ctx context.Context, r *run, err error, dump string) {
	if llm.Is(err, llm.KindMissingConfig) || llm.Is(err, llm.KindInvalidAPIKey) {
		r.log.Error("research run failed on configuration", zap.String("state", string(r.out.State)), zap.Error(err))
	} else {
		r.log.Error("research run failed", zap.String("state", string(r.out.State)), zap.Error(err))
	}
	r.out.State = StateFailed
	r.out.Err = err

	text := "Error: " + err.Error()
	if dump != "" {
		text += "\n\n" + dump
		r.out.Report = dump
	}
	o.deps.Emitter.Emit(types.EventTaskError, map[string]any{"error": text}, r.req.SessionID)
	o.persist(ctx, r, text)
}

func (o *Orchestrator) persist(ctx context.Context, r *run, text string) {
	if o.deps.Persister == nil {
		return
	}
	if err := o.deps.Persister.SaveArtifact(ctx, r.req.SessionID, types.RoleAssistant, text); err != nil {
		r.log.Error("persisting run artifact", zap.Error(err))
	}
}

func allTrue(v []bool) bool {
	for _, b := range v {
		if !b {
			return false
		}
	}
	return true
}
