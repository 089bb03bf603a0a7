package types

import (
	"context"
	"time"
)

// Clock abstracts wall-clock time so the trigger engine and schedulers can be
// tested deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// Logger is a minimal structured logging interface satisfied by slog-backed
// adapters. Components depend on this instead of *slog.Logger so tests can
// inject no-op or capturing loggers.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	With(args ...any) Logger
}

// Notifier is the downstream collaborator the trigger orchestrator invokes on
// a positive decision. Implementations assemble and deliver the commute
// summary for the given zone; the Decision carries the evidence that caused
// the trigger so the message can explain itself.
type Notifier interface {
	Notify(ctx context.Context, zone Zone, decision Decision) error
}

// Channel is a single outbound notification delivery mechanism
// (Telegram bot, Twilio WhatsApp). Implementations must honor the context
// deadline: a hanging provider is a failed delivery, not a suspension.
type Channel interface {
	// Type returns the channel identifier used in config, logs, and metrics.
	Type() ChannelType

	// Send delivers a rendered message. A non-nil DeliveryResult is returned
	// even on failure so the dispatcher can record the outcome.
	Send(ctx context.Context, message string) (*DeliveryResult, error)
}

// LocationStore persists the most recent phone location ping. Backed by
// Postgres when a database is configured, by process memory otherwise.
type LocationStore interface {
	Save(ctx context.Context, ping LocationPing) error
	Latest(ctx context.Context) (*LocationPing, error)
}

// DeliveryLog records notification delivery outcomes for auditing. The trigger
// engine never reads from it; state relevant to trigger decisions lives in
// memory only.
type DeliveryLog interface {
	Record(ctx context.Context, trigger TriggerKind, zone Zone, result DeliveryResult) error
}
