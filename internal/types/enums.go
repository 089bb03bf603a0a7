package types

// TriggerKind identifies one of the two auto-trigger pipelines.
type TriggerKind string

const (
	TriggerMorningBus    TriggerKind = "morning_bus"
	TriggerAfternoonRail TriggerKind = "afternoon_rail"
)

// Valid reports whether the kind names a known pipeline.
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerMorningBus, TriggerAfternoonRail:
		return true
	}
	return false
}

// DecisionReason explains why an evaluation tick did or did not notify.
type DecisionReason string

const (
	// ReasonConfirmedSignal means the upstream data showed a real signal:
	// a tracked vehicle on the bus side, a relevant alert or delayed train
	// on the rail side.
	ReasonConfirmedSignal DecisionReason = "confirmed_signal"

	// ReasonFallbackEscalation means no confirmed signal arrived but the
	// tick fell inside a window's fallback band, which forces a
	// notification so the commute is never silently unwatched.
	ReasonFallbackEscalation DecisionReason = "fallback_escalation"

	// ReasonNoSignal means the upstream data was readable and quiet.
	ReasonNoSignal DecisionReason = "no_signal"

	// ReasonEvaluationError means an upstream fetch failed; the tick
	// resolves without notifying and without consuming the window.
	ReasonEvaluationError DecisionReason = "evaluation_error"
)

// Zone is a commute location classification derived from phone coordinates
// or passed explicitly on a manual trigger.
type Zone string

const (
	ZoneHome    Zone = "home"
	ZoneNYC     Zone = "nyc"
	ZoneNewark  Zone = "newark"
	ZoneUnknown Zone = "unknown"
)

// Valid reports whether the zone is one a summary can be rendered for.
func (z Zone) Valid() bool {
	switch z {
	case ZoneHome, ZoneNYC, ZoneNewark, ZoneUnknown:
		return true
	}
	return false
}

// ChannelType identifies an outbound notification channel.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelWhatsApp ChannelType = "whatsapp"
)

// DeliveryStatus is the outcome of one channel delivery attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)
