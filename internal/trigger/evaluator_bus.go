package trigger

import (
	"context"
	"time"

	"commutewatch/internal/types"
)

// DefaultLookAhead is the horizon within which scheduled arrivals are
// considered "upcoming" and included as decision evidence.
const DefaultLookAhead = 30 * time.Minute

// arrivalClockLayout is the clock format the bus provider uses for scheduled
// departure times.
const arrivalClockLayout = "03:04 PM"

// BusData abstracts the upstream bus collaborator the evaluator consumes.
// Implementations fetch already-parsed results; the evaluator never sees the
// provider's wire format.
type BusData interface {
	// ScheduleToNYC returns the next scheduled departures from the origin stop.
	ScheduleToNYC(ctx context.Context, limit int) ([]types.ScheduledArrival, error)
	// LiveVehicles returns current live trip reports, placeholders included.
	LiveVehicles(ctx context.Context) ([]types.VehicleReport, error)
}

// BusEvaluator decides whether live bus data is a strong enough signal to
// notify. Confirmed vehicles always win; the fallback band forces a
// notification even when every report is still a placeholder, so the rider
// gets at least the schedule.
type BusEvaluator struct {
	data          BusData
	lookAhead     time.Duration
	scheduleLimit int
	logger        types.Logger
}

// BusEvaluatorConfig holds the configuration for creating a BusEvaluator.
type BusEvaluatorConfig struct {
	Data          BusData
	LookAhead     time.Duration // defaults to DefaultLookAhead
	ScheduleLimit int           // defaults to 5
	Logger        types.Logger
}

// NewBusEvaluator creates a BusEvaluator with the given configuration.
func NewBusEvaluator(cfg BusEvaluatorConfig) *BusEvaluator {
	lookAhead := cfg.LookAhead
	if lookAhead <= 0 {
		lookAhead = DefaultLookAhead
	}
	limit := cfg.ScheduleLimit
	if limit <= 0 {
		limit = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &BusEvaluator{
		data:          cfg.Data,
		lookAhead:     lookAhead,
		scheduleLimit: limit,
		logger:        logger,
	}
}

// Evaluate fetches the live snapshot and decides whether to notify.
//
// Priority order:
//  1. Any confirmed vehicle (real identifier, not the placeholder sentinel)
//     produces a confirmed_signal decision with the confirmed vehicles and
//     the upcoming scheduled arrivals as evidence.
//  2. Otherwise, inside the fallback band, a fallback_escalation decision is
//     produced with ALL vehicle reports (placeholders included) so the
//     message can say "no live bus yet, but here is the schedule".
//  3. Otherwise no_signal.
//
// Upstream failures never propagate: they produce a non-notifying
// evaluation_error decision and the tick is retried naturally by the next
// poll.
func (e *BusEvaluator) Evaluate(ctx context.Context, now time.Time, fallbackNow bool) types.Decision {
	scheduled, err := e.data.ScheduleToNYC(ctx, e.scheduleLimit)
	if err != nil {
		e.logger.Error("bus schedule fetch failed", "error", err)
		return types.Decision{Reason: types.ReasonEvaluationError, Err: err}
	}

	live, err := e.data.LiveVehicles(ctx)
	if err != nil {
		e.logger.Error("live vehicle fetch failed", "error", err)
		return types.Decision{Reason: types.ReasonEvaluationError, Err: err}
	}

	var confirmed []types.VehicleReport
	for _, trip := range live {
		if trip.Confirmed() {
			confirmed = append(confirmed, trip)
			e.logger.Info("confirmed bus detected", "vehicle_id", trip.VehicleID)
		}
	}

	upcoming := e.upcomingArrivals(scheduled, now)

	if len(confirmed) > 0 {
		return types.Decision{
			ShouldNotify: true,
			Reason:       types.ReasonConfirmedSignal,
			Evidence: types.Evidence{
				LiveVehicles:     confirmed,
				UpcomingArrivals: upcoming,
			},
		}
	}

	if fallbackNow {
		e.logger.Info("fallback band reached with no confirmed vehicles")
		return types.Decision{
			ShouldNotify: true,
			Reason:       types.ReasonFallbackEscalation,
			Evidence: types.Evidence{
				LiveVehicles:     live, // placeholders included
				UpcomingArrivals: upcoming,
			},
		}
	}

	e.logger.Debug("no confirmed vehicles yet", "scheduled", len(scheduled))
	return types.Decision{
		Reason:   types.ReasonNoSignal,
		Evidence: types.Evidence{UpcomingArrivals: upcoming},
	}
}

// upcomingArrivals filters the scheduled departures down to those within the
// look-ahead horizon of now. Each provider clock time is combined with now's
// date in now's location; rows that fail to parse are skipped.
func (e *BusEvaluator) upcomingArrivals(scheduled []types.ScheduledArrival, now time.Time) []types.UpcomingArrival {
	var upcoming []types.UpcomingArrival
	for _, arrival := range scheduled {
		clock, err := time.Parse(arrivalClockLayout, arrival.Time)
		if err != nil {
			e.logger.Warn("unparseable arrival time", "time", arrival.Time, "error", err)
			continue
		}

		at := time.Date(now.Year(), now.Month(), now.Day(),
			clock.Hour(), clock.Minute(), 0, 0, now.Location())

		until := at.Sub(now)
		if until < 0 || until > e.lookAhead {
			continue
		}

		status := arrival.Remarks
		if status == "" {
			status = "On time"
		}
		upcoming = append(upcoming, types.UpcomingArrival{
			Time:        arrival.Time,
			MinutesAway: int(until.Minutes()),
			Status:      status,
		})
	}
	return upcoming
}
