// Package trigger implements the time-windowed auto-trigger decision engine:
// the logic that decides, on the polling cadence, whether "now" is the right
// moment to notify. It is composed of three layers: the window clock (pure
// time classification), the signal evaluators (bus and rail variants), and
// the orchestrator that wires them to the notification collaborator while
// enforcing at-most-once-per-window delivery.
package trigger

import "time"

// TimeOfDay is a wall-clock time expressed as seconds since local midnight.
// Window boundaries compare against the tick's local time of day, so a
// window table behaves identically on every calendar day.
type TimeOfDay int

// At constructs a TimeOfDay from an hour and minute.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay((hour*60 + minute) * 60)
}

// timeOfDay extracts the TimeOfDay of t in t's own location.
func timeOfDay(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// add returns the TimeOfDay shifted by d, without wrapping. Windows never
// cross midnight, so callers only shift within a day.
func (t TimeOfDay) add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Second)
}

// WindowDefinition is an immutable named daily time interval during which a
// trigger pipeline is eligible to fire. Windows defined for the same pipeline
// must not overlap; that is a precondition of the table, not something the
// clock resolves.
type WindowDefinition struct {
	ID    string
	Start TimeOfDay
	End   TimeOfDay

	// FallbackOffset is the sub-time within [Start, End] at which escalation
	// occurs; FallbackTolerance widens it into a band on both sides.
	FallbackOffset    TimeOfDay
	FallbackTolerance time.Duration
}

// fallbackNow reports whether t falls inside the fallback band
// [FallbackOffset-FallbackTolerance, FallbackOffset+FallbackTolerance],
// inclusive on both ends.
func (w WindowDefinition) fallbackNow(t TimeOfDay) bool {
	return t >= w.FallbackOffset.add(-w.FallbackTolerance) &&
		t <= w.FallbackOffset.add(w.FallbackTolerance)
}

// Classification is the window clock's verdict for a single tick.
type Classification struct {
	// Active is the window containing "now", or nil when no window is active.
	Active *WindowDefinition

	// AlreadyConsumed is true when the active window has already produced a
	// notification since the last daily reset.
	AlreadyConsumed bool

	// FallbackNow is true when "now" falls inside the active window's
	// fallback band.
	FallbackNow bool

	// ResetDue is true when "now" is after every window's end for the day.
	// The orchestrator must clear consumed markers before the next
	// evaluation; the reset is lazy, driven by the next out-of-window tick
	// rather than a timer.
	ResetDue bool
}

// Classify determines which window (if any) contains now, whether it has
// already been consumed, whether the fallback band applies, and whether the
// daily reset condition holds. Windows are checked in table order; at most
// one is active.
//
// Interval semantics: every window is half-open [Start, End) except the final
// window of the table, which is closed at End. The asymmetry closes the
// 1-tick gap that a half-open upper bound would leave at the end of the last
// window of the day.
//
// Classify is pure given (now, state, defs): it never mutates state.
func Classify(now time.Time, state *State, defs []WindowDefinition) Classification {
	if len(defs) == 0 {
		return Classification{}
	}

	t := timeOfDay(now)

	for i := range defs {
		w := &defs[i]
		final := i == len(defs)-1

		inside := t >= w.Start && t < w.End
		if final {
			inside = t >= w.Start && t <= w.End
		}
		if !inside {
			continue
		}

		return Classification{
			Active:          w,
			AlreadyConsumed: state.Consumed(w.ID),
			FallbackNow:     w.fallbackNow(t),
		}
	}

	// Outside every window. Past the last window's end means the day's
	// eligibility cycle is over and consumed markers should be cleared.
	last := defs[len(defs)-1]
	return Classification{ResetDue: t > last.End}
}
