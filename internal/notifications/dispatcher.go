package notifications

import (
	"context"
	"sync"
	"time"

	"commutewatch/internal/types"
)

// RetryPolicy defines the exponential backoff parameters for a channel's
// delivery retries.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy is the per-channel policy for commute messages. Messages
// are time-sensitive, so the budget is short: three attempts inside roughly
// fifteen seconds.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:   3,
	BaseDelay:     1 * time.Second,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
}

// CalculateNextRetry computes the delay before the next retry attempt using
// exponential backoff: delay = min(BaseDelay * BackoffFactor^attempt, MaxDelay).
func CalculateNextRetry(policy RetryPolicy, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(policy.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= policy.BackoffFactor
	}

	d := time.Duration(delay)
	if d > policy.MaxDelay || d < 0 {
		d = policy.MaxDelay
	}
	return d
}

// DeliveryMetrics abstracts the observability sink for delivery outcomes.
type DeliveryMetrics interface {
	RecordDelivery(channel types.ChannelType, status types.DeliveryStatus)
}

// Dispatcher fans a rendered message out to every configured channel. A
// message counts as delivered when at least one channel accepted it; the
// dispatcher returns an error only when every channel failed.
type Dispatcher struct {
	channels []types.Channel
	policy   RetryPolicy
	log      types.DeliveryLog
	metrics  DeliveryMetrics
	logger   types.Logger
	sleepFn  func(time.Duration)
}

// DispatcherConfig holds the configuration for creating a Dispatcher.
type DispatcherConfig struct {
	Channels []types.Channel
	Policy   RetryPolicy
	Log      types.DeliveryLog // optional audit log
	Metrics  DeliveryMetrics   // optional
	Logger   types.Logger
}

// NewDispatcher creates a Dispatcher with the given configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	policy := cfg.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Dispatcher{
		channels: cfg.Channels,
		policy:   policy,
		log:      cfg.Log,
		metrics:  cfg.Metrics,
		logger:   logger,
		sleepFn:  time.Sleep,
	}
}

// Dispatch sends the message to all channels concurrently, retrying transient
// per-channel failures, and records every outcome. It returns a delivery
// AppError only when no channel got the message through.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger types.TriggerKind, zone types.Zone, message string) error {
	if len(d.channels) == 0 {
		return types.NewAppError(types.ErrCodeDeliveryFailed, "no delivery channels configured", nil)
	}

	results := make([]types.DeliveryResult, len(d.channels))
	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch types.Channel) {
			defer wg.Done()
			results[i] = d.sendWithRetry(ctx, ch, message)
		}(i, ch)
	}
	wg.Wait()

	delivered := 0
	for _, result := range results {
		if result.Status == types.DeliverySent {
			delivered++
		}
		if d.metrics != nil {
			d.metrics.RecordDelivery(result.Channel, result.Status)
		}
		if d.log != nil {
			if err := d.log.Record(ctx, trigger, zone, result); err != nil {
				d.logger.Warn("failed to record delivery outcome",
					"channel", string(result.Channel),
					"error", err,
				)
			}
		}
	}

	if delivered == 0 {
		return types.NewAppError(
			types.ErrCodeDeliveryFailed,
			"all delivery channels failed",
			nil,
		)
	}
	return nil
}

// sendWithRetry drives one channel through the retry policy. Non-retryable
// failures (bad credentials, malformed message) stop immediately.
func (d *Dispatcher) sendWithRetry(ctx context.Context, ch types.Channel, message string) types.DeliveryResult {
	var last types.DeliveryResult
	for attempt := 0; attempt < d.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if ctx.Err() != nil {
				last.FailureReason = ctx.Err().Error()
				return last
			}
			d.sleepFn(CalculateNextRetry(d.policy, attempt-1))
		}

		result, err := ch.Send(ctx, message)
		if result != nil {
			last = *result
		} else {
			last = types.DeliveryResult{
				Channel: ch.Type(),
				Status:  types.DeliveryFailed,
			}
			if err != nil {
				last.FailureReason = err.Error()
			}
		}

		if err == nil && last.Status == types.DeliverySent {
			return last
		}

		d.logger.Warn("delivery attempt failed",
			"channel", string(ch.Type()),
			"attempt", attempt+1,
			"error", err,
		)

		if !last.Retryable {
			return last
		}
	}
	return last
}
