package trigger

import (
	"testing"
	"time"
)

// at builds a timestamp on an arbitrary fixed date; only the time of day
// matters to the window clock.
func at(hour, min, sec int) time.Time {
	return time.Date(2026, 8, 24, hour, min, sec, 0, time.UTC)
}

func TestClassify_MorningBoundaries(t *testing.T) {
	defs := DefaultMorningWindows()
	state := NewState()

	cases := []struct {
		name   string
		now    time.Time
		wantID string // "" means no active window
	}{
		{"just before first window", at(5, 44, 59), ""},
		{"first window lower bound", at(5, 45, 0), "morning_0545_0605"},
		{"inside first window", at(5, 50, 0), "morning_0545_0605"},
		{"first window upper bound is exclusive", at(6, 5, 0), "morning_0605_0630"},
		{"inside second window", at(6, 15, 0), "morning_0605_0630"},
		{"final window upper bound is inclusive", at(6, 30, 0), "morning_0605_0630"},
		{"just after final window", at(6, 30, 1), ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cls := Classify(tc.now, state, defs)
			if tc.wantID == "" {
				if cls.Active != nil {
					t.Fatalf("expected no active window, got %s", cls.Active.ID)
				}
				return
			}
			if cls.Active == nil {
				t.Fatalf("expected window %s, got none", tc.wantID)
			}
			if cls.Active.ID != tc.wantID {
				t.Errorf("expected window %s, got %s", tc.wantID, cls.Active.ID)
			}
		})
	}
}

func TestClassify_FallbackBand(t *testing.T) {
	defs := DefaultMorningWindows()
	state := NewState()

	cases := []struct {
		now          time.Time
		wantFallback bool
	}{
		{at(5, 52, 59), false},
		{at(5, 53, 0), true},
		{at(5, 55, 0), true},
		{at(5, 57, 0), true},
		{at(5, 57, 1), false},
		{at(6, 18, 0), true}, // second window's band
		{at(6, 22, 0), true},
		{at(6, 23, 0), false},
	}

	for _, tc := range cases {
		cls := Classify(tc.now, state, defs)
		if cls.Active == nil {
			t.Fatalf("%v: expected an active window", tc.now)
		}
		if cls.FallbackNow != tc.wantFallback {
			t.Errorf("%v: fallback = %v, want %v", tc.now, cls.FallbackNow, tc.wantFallback)
		}
	}
}

func TestClassify_ConsumedWindow(t *testing.T) {
	defs := DefaultMorningWindows()
	state := NewState()
	state.Consume("morning_0545_0605")

	cls := Classify(at(5, 50, 0), state, defs)
	if cls.Active == nil || !cls.AlreadyConsumed {
		t.Fatalf("expected consumed active window, got %+v", cls)
	}

	// The sibling window is unaffected.
	cls = Classify(at(6, 10, 0), state, defs)
	if cls.Active == nil || cls.AlreadyConsumed {
		t.Fatalf("expected unconsumed second window, got %+v", cls)
	}
}

func TestClassify_ResetDueOnlyAfterLastEnd(t *testing.T) {
	defs := DefaultMorningWindows()
	state := NewState()

	// Before the first window: outside, but the day is still ahead.
	if cls := Classify(at(4, 0, 0), state, defs); cls.ResetDue {
		t.Error("reset must not be due before the first window")
	}

	// After the last window's end: reset is due.
	if cls := Classify(at(7, 0, 0), state, defs); !cls.ResetDue {
		t.Error("reset must be due after the last window's end")
	}

	// Exactly at the last end the window is still active (inclusive bound).
	if cls := Classify(at(6, 30, 0), state, defs); cls.ResetDue || cls.Active == nil {
		t.Error("last end instant must classify as active, not reset")
	}
}

func TestClassify_IsPure(t *testing.T) {
	defs := DefaultAfternoonWindows()
	state := NewState()
	state.Consume("afternoon_1330_1350")

	Classify(at(15, 0, 0), state, defs) // reset due, but Classify must not apply it

	if !state.Consumed("afternoon_1330_1350") {
		t.Error("Classify mutated trigger state")
	}
}

func TestClassify_EmptyTable(t *testing.T) {
	cls := Classify(at(6, 0, 0), NewState(), nil)
	if cls.Active != nil || cls.ResetDue {
		t.Errorf("empty table must classify to nothing, got %+v", cls)
	}
}

func TestState_Lifecycle(t *testing.T) {
	s := NewState()
	if s.Consumed("w") {
		t.Error("fresh state must have no consumed windows")
	}
	s.Consume("w")
	if !s.Consumed("w") || s.Len() != 1 {
		t.Error("Consume did not record the window")
	}
	s.Discard("w")
	if s.Consumed("w") {
		t.Error("Discard did not clear the window")
	}
	s.Consume("a")
	s.Consume("b")
	s.Reset()
	if s.Len() != 0 {
		t.Error("Reset did not clear all windows")
	}
}
