package trigger

import (
	"context"
	"strings"
	"time"

	"commutewatch/internal/types"
)

// KeywordSet drives the rail alert relevance match. Free-text matching
// against provider alert wording is inherent to the domain (there is no
// structured delay API), so the sets are injected configuration rather than
// hardcoded constants: wording drift is a config change, not a code change.
type KeywordSet struct {
	// Disruption keywords flag that something is wrong at all.
	Disruption []string
	// Relevance keywords tie the alert to the monitored lines, destinations,
	// and origin markers. An alert must match both sets independently.
	Relevance []string
}

// DefaultKeywordSet returns the deployment's keyword tables: Newark-bound
// lines out of Penn Station.
func DefaultKeywordSet() KeywordSet {
	return KeywordSet{
		Disruption: []string{"DELAY", "CANCEL", "SUSPEND"},
		Relevance: []string{
			"NEC", "RARV", "NJCL",
			"NEWARK", "FANWOOD", "WESTFIELD",
			"FROM PSNY", "FROM NY",
		},
	}
}

// Matches reports whether the alert text contains at least one disruption
// keyword AND at least one relevance keyword (AND of two ORs). A delay on an
// unrelated line must not match. Comparison is case-insensitive.
func (k KeywordSet) Matches(alert string) bool {
	upper := strings.ToUpper(alert)
	return containsAny(upper, k.Disruption) && containsAny(upper, k.Relevance)
}

func containsAny(upper string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// RailData abstracts the upstream rail collaborator the evaluator consumes.
type RailData interface {
	// StationAlerts returns the free-text message board for the station.
	StationAlerts(ctx context.Context, station string) ([]string, error)
	// TrainSchedule returns upcoming departures with their status fields.
	TrainSchedule(ctx context.Context, station string, limit int) ([]types.ScheduledTrain, error)
}

// RailEvaluator decides whether rail disruptions warrant notifying: either a
// relevant station alert or a delayed train on the board.
//
// Unlike the bus variant, the rail evaluator does not alter its evidence when
// the tick lands in the fallback band; the orchestrator evaluates the band
// identically for both pipelines, but rail carries no fallback escalation
// step. That asymmetry is current product behavior and is preserved as-is.
type RailEvaluator struct {
	data          RailData
	station       string
	scheduleLimit int
	keywords      KeywordSet
	logger        types.Logger
}

// RailEvaluatorConfig holds the configuration for creating a RailEvaluator.
type RailEvaluatorConfig struct {
	Data          RailData
	Station       string
	ScheduleLimit int // defaults to 10
	Keywords      KeywordSet
	Logger        types.Logger
}

// NewRailEvaluator creates a RailEvaluator with the given configuration.
// An empty keyword set falls back to DefaultKeywordSet.
func NewRailEvaluator(cfg RailEvaluatorConfig) *RailEvaluator {
	limit := cfg.ScheduleLimit
	if limit <= 0 {
		limit = 10
	}
	keywords := cfg.Keywords
	if len(keywords.Disruption) == 0 && len(keywords.Relevance) == 0 {
		keywords = DefaultKeywordSet()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &RailEvaluator{
		data:          cfg.Data,
		station:       cfg.Station,
		scheduleLimit: limit,
		keywords:      keywords,
		logger:        logger,
	}
}

// Evaluate scans station alerts and the departure board for disruptions
// relevant to the evening commute. Upstream failures never propagate; they
// produce a non-notifying evaluation_error decision.
func (e *RailEvaluator) Evaluate(ctx context.Context, now time.Time, fallbackNow bool) types.Decision {
	_ = fallbackNow // no rail fallback escalation; see type doc

	alerts, err := e.data.StationAlerts(ctx, e.station)
	if err != nil {
		e.logger.Error("station alert fetch failed", "station", e.station, "error", err)
		return types.Decision{Reason: types.ReasonEvaluationError, Err: err}
	}

	trains, err := e.data.TrainSchedule(ctx, e.station, e.scheduleLimit)
	if err != nil {
		e.logger.Error("train schedule fetch failed", "station", e.station, "error", err)
		return types.Decision{Reason: types.ReasonEvaluationError, Err: err}
	}

	var relevant []string
	for _, alert := range alerts {
		if e.keywords.Matches(alert) {
			relevant = append(relevant, alert)
		}
	}

	var delayed []types.ScheduledTrain
	for _, train := range trains {
		if train.Delayed() {
			delayed = append(delayed, train)
		}
	}

	if len(relevant) > 0 || len(delayed) > 0 {
		e.logger.Info("rail disruptions detected",
			"relevant_alerts", len(relevant),
			"delayed_trains", len(delayed),
		)
		return types.Decision{
			ShouldNotify: true,
			Reason:       types.ReasonConfirmedSignal,
			Evidence: types.Evidence{
				RelevantAlerts: relevant,
				DelayedTrains:  delayed,
				AllTrains:      trains,
			},
		}
	}

	e.logger.Debug("no significant rail disruptions", "alerts_seen", len(alerts))
	return types.Decision{
		Reason:   types.ReasonNoSignal,
		Evidence: types.Evidence{AllTrains: trains},
	}
}
