package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"commutewatch/internal/types"
)

// mockBusData implements BusData with canned responses.
type mockBusData struct {
	scheduled []types.ScheduledArrival
	live      []types.VehicleReport

	scheduleErr error
	liveErr     error
}

func (m *mockBusData) ScheduleToNYC(ctx context.Context, limit int) ([]types.ScheduledArrival, error) {
	return m.scheduled, m.scheduleErr
}

func (m *mockBusData) LiveVehicles(ctx context.Context) ([]types.VehicleReport, error) {
	return m.live, m.liveErr
}

func newBusEvaluator(data BusData) *BusEvaluator {
	return NewBusEvaluator(BusEvaluatorConfig{Data: data})
}

func TestBusEvaluator_ConfirmedVehicleNotifies(t *testing.T) {
	data := &mockBusData{
		live: []types.VehicleReport{{VehicleID: "1234"}},
	}
	eval := newBusEvaluator(data)

	d := eval.Evaluate(context.Background(), at(6, 0, 0), false)

	if !d.ShouldNotify {
		t.Fatal("expected notification for confirmed vehicle")
	}
	if d.Reason != types.ReasonConfirmedSignal {
		t.Errorf("reason = %s, want %s", d.Reason, types.ReasonConfirmedSignal)
	}
	if len(d.Evidence.LiveVehicles) != 1 || d.Evidence.LiveVehicles[0].VehicleID != "1234" {
		t.Errorf("evidence missing confirmed vehicle: %+v", d.Evidence.LiveVehicles)
	}
}

func TestBusEvaluator_PlaceholdersAreNotConfirmed(t *testing.T) {
	data := &mockBusData{
		live: []types.VehicleReport{
			{VehicleID: "EMPTY"},
			{VehicleID: "empty"},
			{VehicleID: "  "},
			{VehicleID: ""},
		},
	}
	eval := newBusEvaluator(data)

	d := eval.Evaluate(context.Background(), at(6, 0, 0), false)

	if d.ShouldNotify {
		t.Fatal("placeholder vehicles must not trigger a notification")
	}
	if d.Reason != types.ReasonNoSignal {
		t.Errorf("reason = %s, want %s", d.Reason, types.ReasonNoSignal)
	}
}

func TestBusEvaluator_FallbackForcesNotification(t *testing.T) {
	// P3: zero confirmed vehicles inside the fallback band still notifies,
	// with all reports (placeholders included) as evidence.
	data := &mockBusData{
		scheduled: []types.ScheduledArrival{{Time: "06:10 AM"}},
		live:      []types.VehicleReport{{VehicleID: "EMPTY"}},
	}
	eval := newBusEvaluator(data)

	d := eval.Evaluate(context.Background(), at(5, 55, 0), true)

	if !d.ShouldNotify {
		t.Fatal("fallback band must force a notification")
	}
	if d.Reason != types.ReasonFallbackEscalation {
		t.Errorf("reason = %s, want %s", d.Reason, types.ReasonFallbackEscalation)
	}
	if len(d.Evidence.LiveVehicles) != 1 {
		t.Errorf("fallback evidence must include placeholder reports, got %+v", d.Evidence.LiveVehicles)
	}
	if len(d.Evidence.UpcomingArrivals) != 1 || d.Evidence.UpcomingArrivals[0].Time != "06:10 AM" {
		t.Errorf("fallback evidence must include the 06:10 scheduled arrival, got %+v", d.Evidence.UpcomingArrivals)
	}
}

func TestBusEvaluator_ConfirmedBeatsFallback(t *testing.T) {
	// P4: a confirmed vehicle inside the fallback band reports
	// confirmed_signal, not fallback_escalation.
	data := &mockBusData{
		live: []types.VehicleReport{{VehicleID: "5678"}, {VehicleID: "EMPTY"}},
	}
	eval := newBusEvaluator(data)

	d := eval.Evaluate(context.Background(), at(5, 55, 0), true)

	if d.Reason != types.ReasonConfirmedSignal {
		t.Errorf("reason = %s, want %s", d.Reason, types.ReasonConfirmedSignal)
	}
	// Only confirmed vehicles belong in confirmed-signal evidence.
	if len(d.Evidence.LiveVehicles) != 1 {
		t.Errorf("expected only confirmed vehicles in evidence, got %+v", d.Evidence.LiveVehicles)
	}
}

func TestBusEvaluator_LookAheadHorizon(t *testing.T) {
	now := at(6, 0, 0)
	data := &mockBusData{
		live: []types.VehicleReport{{VehicleID: "9"}},
		scheduled: []types.ScheduledArrival{
			{Time: "06:10 AM"},                     // 10m away: kept
			{Time: "06:30 AM"},                     // exactly 30m: kept
			{Time: "06:45 AM"},                     // beyond horizon: dropped
			{Time: "05:50 AM"},                     // already departed: dropped
			{Time: "not a clock"},                  // unparseable: skipped
			{Time: "06:05 AM", Remarks: "DELAYED"}, // status passthrough
		},
	}
	eval := newBusEvaluator(data)

	d := eval.Evaluate(context.Background(), now, false)

	if got := len(d.Evidence.UpcomingArrivals); got != 3 {
		t.Fatalf("expected 3 upcoming arrivals, got %d: %+v", got, d.Evidence.UpcomingArrivals)
	}
	for _, u := range d.Evidence.UpcomingArrivals {
		if u.Time == "06:05 AM" && u.Status != "DELAYED" {
			t.Errorf("remarks not carried into status: %+v", u)
		}
		if u.Time == "06:10 AM" && u.MinutesAway != 10 {
			t.Errorf("minutes away = %d, want 10", u.MinutesAway)
		}
	}
}

func TestBusEvaluator_UpstreamErrorIsSwallowed(t *testing.T) {
	// P7: a failing collaborator produces a quiet evaluation_error decision.
	for _, data := range []*mockBusData{
		{liveErr: errors.New("connection refused")},
		{scheduleErr: errors.New("token expired")},
	} {
		eval := newBusEvaluator(data)
		d := eval.Evaluate(context.Background(), at(6, 0, 0), true)

		if d.ShouldNotify {
			t.Error("upstream failure must not notify")
		}
		if d.Reason != types.ReasonEvaluationError {
			t.Errorf("reason = %s, want %s", d.Reason, types.ReasonEvaluationError)
		}
		if d.Err == nil {
			t.Error("decision must carry the upstream error")
		}
	}
}

func TestBusEvaluator_DefaultHorizon(t *testing.T) {
	eval := NewBusEvaluator(BusEvaluatorConfig{Data: &mockBusData{}})
	if eval.lookAhead != DefaultLookAhead {
		t.Errorf("default look-ahead = %v, want %v", eval.lookAhead, DefaultLookAhead)
	}
	if eval.lookAhead != 30*time.Minute {
		t.Errorf("deployment horizon must be 30 minutes, got %v", eval.lookAhead)
	}
}
