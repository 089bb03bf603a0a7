package trigger

import (
	"context"
	"time"

	"commutewatch/internal/types"
)

// Evaluator is the signal evaluation layer shared by both pipelines.
// Evaluate must never return a panic or propagate upstream failures; a bad
// tick resolves to a non-notifying decision.
type Evaluator interface {
	Evaluate(ctx context.Context, now time.Time, fallbackNow bool) types.Decision
}

// Gate is the externally toggled enable switch for a pipeline. The toggle
// mechanism (HTTP handlers, window-boundary schedules) lives outside the
// engine; the orchestrator only reads it.
type Gate interface {
	Enabled() bool
}

// TickOutcome labels what a single tick amounted to, for logs and metrics.
type TickOutcome string

const (
	OutcomeDisabled TickOutcome = "disabled"
	OutcomeNoWindow TickOutcome = "no_window"
	OutcomeConsumed TickOutcome = "already_consumed"
	OutcomeNoSignal TickOutcome = "no_signal"
	OutcomeError    TickOutcome = "evaluation_error"
	OutcomeNotified TickOutcome = "notified"
)

// TickMetrics abstracts the observability sink for tick outcomes.
type TickMetrics interface {
	RecordTick(kind types.TriggerKind, outcome TickOutcome)
	RecordDecision(kind types.TriggerKind, reason types.DecisionReason)
}

// Orchestrator wires the window clock and a signal evaluator to the
// notification collaborator for one trigger pipeline. It exclusively owns its
// State; the scheduler serializes ticks per pipeline, so RunTick is never
// reentered.
type Orchestrator struct {
	kind     types.TriggerKind
	zone     types.Zone
	windows  []WindowDefinition
	state    *State
	clock    types.Clock
	eval     Evaluator
	notifier types.Notifier
	gate     Gate
	metrics  TickMetrics
	logger   types.Logger
}

// OrchestratorConfig holds the configuration for creating an Orchestrator.
type OrchestratorConfig struct {
	Kind     types.TriggerKind
	Zone     types.Zone // zone hint handed to the notifier on a positive decision
	Windows  []WindowDefinition
	State    *State
	Clock    types.Clock
	Eval     Evaluator
	Notifier types.Notifier
	Gate     Gate
	Metrics  TickMetrics
	Logger   types.Logger
}

// NewOrchestrator creates an Orchestrator with the given configuration.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	state := cfg.State
	if state == nil {
		state = NewState()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Orchestrator{
		kind:     cfg.Kind,
		zone:     cfg.Zone,
		windows:  cfg.Windows,
		state:    state,
		clock:    clock,
		eval:     cfg.Eval,
		notifier: cfg.Notifier,
		gate:     cfg.Gate,
		metrics:  cfg.Metrics,
		logger:   logger.With("trigger", string(cfg.Kind)),
	}
}

// Kind returns the pipeline this orchestrator drives.
func (o *Orchestrator) Kind() types.TriggerKind { return o.kind }

// ConsumedWindows returns how many windows have fired since the last daily
// reset. Exposed for the status endpoint.
func (o *Orchestrator) ConsumedWindows() int { return o.state.Len() }

// RunTick executes one poll tick. It never returns an error and never
// panics outward: upstream failures resolve to a quiet non-notifying tick
// and a delivery failure is logged without rolling back the consumed marker.
//
// Ordering rule: the window is marked consumed after the notify call is
// issued, whether or not delivery succeeded. The design accepts "at most one
// attempt per window" over guaranteed delivery to avoid duplicate sends on
// transient channel failures.
func (o *Orchestrator) RunTick(ctx context.Context) {
	if o.gate != nil && !o.gate.Enabled() {
		o.logger.Debug("auto-trigger disabled")
		o.recordTick(OutcomeDisabled)
		return
	}

	now := o.clock.Now()
	cls := Classify(now, o.state, o.windows)

	if cls.ResetDue && o.state.Len() > 0 {
		o.logger.Info("daily reset: clearing consumed windows", "cleared", o.state.Len())
		o.state.Reset()
	}

	if cls.Active == nil {
		o.recordTick(OutcomeNoWindow)
		return
	}

	if cls.AlreadyConsumed {
		o.logger.Debug("window already consumed", "window", cls.Active.ID)
		o.recordTick(OutcomeConsumed)
		return
	}

	if cls.FallbackNow {
		o.logger.Info("fallback band active", "window", cls.Active.ID)
	}

	decision := o.eval.Evaluate(ctx, now, cls.FallbackNow)
	o.recordDecision(decision.Reason)

	if !decision.ShouldNotify {
		if decision.Reason == types.ReasonEvaluationError {
			o.recordTick(OutcomeError)
		} else {
			o.recordTick(OutcomeNoSignal)
		}
		return
	}

	o.logger.Info("triggering notification",
		"window", cls.Active.ID,
		"reason", string(decision.Reason),
	)

	if err := o.notifier.Notify(ctx, o.zone, decision); err != nil {
		// Accepted tradeoff: the window is still consumed below so a flaky
		// channel cannot cause repeated duplicate sends within one window.
		o.logger.Error("notification delivery failed",
			"window", cls.Active.ID,
			"error", err,
		)
	}

	o.state.Consume(cls.Active.ID)
	o.recordTick(OutcomeNotified)
}

func (o *Orchestrator) recordTick(outcome TickOutcome) {
	if o.metrics != nil {
		o.metrics.RecordTick(o.kind, outcome)
	}
}

func (o *Orchestrator) recordDecision(reason types.DecisionReason) {
	if o.metrics != nil {
		o.metrics.RecordDecision(o.kind, reason)
	}
}
