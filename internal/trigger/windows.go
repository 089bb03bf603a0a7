package trigger

import "time"

// Deployment window tables. These are fixed per deployment; changing them
// means shipping a code change.

// DefaultMorningWindows returns the morning bus window table: two abutting
// windows covering 05:45-06:30, each with a mid-window fallback band so at
// least one alert goes out per window even when no live bus ever appears.
func DefaultMorningWindows() []WindowDefinition {
	return []WindowDefinition{
		{
			ID:                "morning_0545_0605",
			Start:             At(5, 45),
			End:               At(6, 5),
			FallbackOffset:    At(5, 55),
			FallbackTolerance: 2 * time.Minute,
		},
		{
			ID:                "morning_0605_0630",
			Start:             At(6, 5),
			End:               At(6, 30),
			FallbackOffset:    At(6, 20),
			FallbackTolerance: 2 * time.Minute,
		},
	}
}

// DefaultAfternoonWindows returns the afternoon rail window table: a single
// 13:30-13:50 window checking for disruptions that would affect the evening
// commute out of Penn Station. The fallback band is defined for clock
// symmetry but the rail evaluator carries no fallback escalation step.
func DefaultAfternoonWindows() []WindowDefinition {
	return []WindowDefinition{
		{
			ID:                "afternoon_1330_1350",
			Start:             At(13, 30),
			End:               At(13, 50),
			FallbackOffset:    At(13, 40),
			FallbackTolerance: 2 * time.Minute,
		},
	}
}
