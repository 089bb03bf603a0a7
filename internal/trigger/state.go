package trigger

// State tracks which windows have already produced a notification "today".
// Each orchestrator owns exactly one State instance and is the only writer;
// ticks for a pipeline are serialized by the scheduler, so no locking is
// required. The state lives for the process lifetime and is logically reset
// once per day by the orchestrator when the window clock signals ResetDue.
type State struct {
	consumed map[string]struct{}
}

// NewState returns an empty trigger state.
func NewState() *State {
	return &State{consumed: make(map[string]struct{})}
}

// Consume marks the window as having produced its one notification for the
// day.
func (s *State) Consume(windowID string) {
	s.consumed[windowID] = struct{}{}
}

// Consumed reports whether the window has already produced a notification
// since the last reset.
func (s *State) Consumed(windowID string) bool {
	_, ok := s.consumed[windowID]
	return ok
}

// Discard clears the consumed marker for a single window.
func (s *State) Discard(windowID string) {
	delete(s.consumed, windowID)
}

// Reset clears every consumed marker, making all windows eligible again.
func (s *State) Reset() {
	clear(s.consumed)
}

// Len returns the number of consumed windows. Exposed for status reporting.
func (s *State) Len() int {
	return len(s.consumed)
}
