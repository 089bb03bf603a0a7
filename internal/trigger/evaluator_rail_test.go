package trigger

import (
	"context"
	"errors"
	"testing"

	"commutewatch/internal/types"
)

// mockRailData implements RailData with canned responses.
type mockRailData struct {
	alerts []string
	trains []types.ScheduledTrain

	alertsErr error
	trainsErr error
}

func (m *mockRailData) StationAlerts(ctx context.Context, station string) ([]string, error) {
	return m.alerts, m.alertsErr
}

func (m *mockRailData) TrainSchedule(ctx context.Context, station string, limit int) ([]types.ScheduledTrain, error) {
	return m.trains, m.trainsErr
}

func newRailEvaluator(data RailData) *RailEvaluator {
	return NewRailEvaluator(RailEvaluatorConfig{Data: data, Station: "NY"})
}

func TestKeywordSet_ANDOfTwoORs(t *testing.T) {
	ks := DefaultKeywordSet()

	cases := []struct {
		alert string
		want  bool
	}{
		// P6: a disruption word alone is not enough.
		{"DELAY", false},
		{"SYSTEMWIDE DELAY EXPECTED", false},
		// A relevance word alone is not enough either.
		{"NJCL TRAINS OPERATING NORMALLY", false},
		// Both sets matching independently triggers.
		{"DELAY ON NJCL TRAIN FROM PSNY", true},
		{"NJCL TRAIN DELAY FROM PSNY", true},
		{"nec service suspended", true}, // case-insensitive, SUSPEND matches as substring
		{"TRAINS TO NEWARK CANCELLED", true},
		// A delay on an unrelated line must not trigger.
		{"DELAY ON MOBO LINE TO HOBOKEN", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := ks.Matches(tc.alert); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.alert, got, tc.want)
		}
	}
}

func TestRailEvaluator_RelevantAlertNotifies(t *testing.T) {
	data := &mockRailData{
		alerts: []string{
			"ESCALATOR OUTAGE AT PSNY",         // no disruption keyword
			"NJCL TRAIN DELAY FROM PSNY",       // relevant
			"DELAY ON PATH SERVICE TO HOBOKEN", // wrong line
		},
	}
	eval := newRailEvaluator(data)

	d := eval.Evaluate(context.Background(), at(13, 35, 0), false)

	if !d.ShouldNotify || d.Reason != types.ReasonConfirmedSignal {
		t.Fatalf("expected confirmed_signal, got %+v", d)
	}
	if len(d.Evidence.RelevantAlerts) != 1 {
		t.Errorf("expected 1 relevant alert, got %v", d.Evidence.RelevantAlerts)
	}
}

func TestRailEvaluator_DelayedTrainNotifies(t *testing.T) {
	data := &mockRailData{
		trains: []types.ScheduledTrain{
			{Line: "NEC", Destination: "Trenton", Status: "ON TIME"},
			{Line: "NJCL", Destination: "Bay Head", Status: "DELAYED 15 MIN"},
		},
	}
	eval := newRailEvaluator(data)

	d := eval.Evaluate(context.Background(), at(13, 35, 0), false)

	if !d.ShouldNotify || d.Reason != types.ReasonConfirmedSignal {
		t.Fatalf("expected confirmed_signal, got %+v", d)
	}
	if len(d.Evidence.DelayedTrains) != 1 || d.Evidence.DelayedTrains[0].Line != "NJCL" {
		t.Errorf("expected the delayed NJCL train as evidence, got %+v", d.Evidence.DelayedTrains)
	}
	if len(d.Evidence.AllTrains) != 2 {
		t.Errorf("full board must ride along as evidence, got %d trains", len(d.Evidence.AllTrains))
	}
}

func TestRailEvaluator_QuietBoardIsNoSignal(t *testing.T) {
	data := &mockRailData{
		alerts: []string{"ELEVATOR OUT OF SERVICE"},
		trains: []types.ScheduledTrain{{Line: "NEC", Status: "ON TIME"}},
	}
	eval := newRailEvaluator(data)

	d := eval.Evaluate(context.Background(), at(13, 35, 0), false)

	if d.ShouldNotify || d.Reason != types.ReasonNoSignal {
		t.Fatalf("expected no_signal, got %+v", d)
	}
}

func TestRailEvaluator_NoFallbackEscalation(t *testing.T) {
	// The rail variant ignores the fallback band: identical quiet inputs
	// stay quiet whether or not the band is active.
	data := &mockRailData{}
	eval := newRailEvaluator(data)

	quiet := eval.Evaluate(context.Background(), at(13, 40, 0), false)
	banded := eval.Evaluate(context.Background(), at(13, 40, 0), true)

	if quiet.ShouldNotify || banded.ShouldNotify {
		t.Error("rail evaluator must not escalate on the fallback band")
	}
	if quiet.Reason != banded.Reason {
		t.Errorf("fallback flag changed the rail decision: %s vs %s", quiet.Reason, banded.Reason)
	}
}

func TestRailEvaluator_UpstreamErrorIsSwallowed(t *testing.T) {
	for _, data := range []*mockRailData{
		{alertsErr: errors.New("bad gateway")},
		{trainsErr: errors.New("timeout")},
	} {
		eval := newRailEvaluator(data)
		d := eval.Evaluate(context.Background(), at(13, 35, 0), false)

		if d.ShouldNotify || d.Reason != types.ReasonEvaluationError {
			t.Errorf("expected quiet evaluation_error, got %+v", d)
		}
	}
}

func TestRailEvaluator_CustomKeywords(t *testing.T) {
	data := &mockRailData{alerts: []string{"SKYLINE ROUTE DELAY"}}
	eval := NewRailEvaluator(RailEvaluatorConfig{
		Data:    data,
		Station: "NY",
		Keywords: KeywordSet{
			Disruption: []string{"DELAY"},
			Relevance:  []string{"SKYLINE"},
		},
	})

	d := eval.Evaluate(context.Background(), at(13, 35, 0), false)
	if !d.ShouldNotify {
		t.Error("injected keyword set was not used for matching")
	}
}
