package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"commutewatch/internal/types"
)

// DeliveryRecord is one delivery audit row.
type DeliveryRecord struct {
	ID            string               `json:"id"`
	Trigger       types.TriggerKind    `json:"trigger"`
	Zone          types.Zone           `json:"zone"`
	Channel       types.ChannelType    `json:"channel"`
	Status        types.DeliveryStatus `json:"status"`
	ProviderMsgID string               `json:"provider_message_id,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// DeliveryRepository appends notification delivery outcomes for auditing.
type DeliveryRepository struct {
	db DBTX
}

// NewDeliveryRepository creates a DeliveryRepository backed by the given
// database connection (pool or transaction).
func NewDeliveryRepository(db DBTX) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Record appends one delivery outcome.
func (r *DeliveryRepository) Record(ctx context.Context, trigger types.TriggerKind, zone types.Zone, result types.DeliveryResult) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO delivery_log (id, trigger_kind, zone, channel, status,
		 provider_message_id, failure_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		uuid.NewString(),
		string(trigger),
		string(zone),
		string(result.Channel),
		string(result.Status),
		nilIfEmpty(result.ProviderMessageID),
		nilIfEmpty(result.FailureReason),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record delivery", err)
	}
	return nil
}

// Recent returns the newest delivery rows, newest first, at most limit.
func (r *DeliveryRepository) Recent(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, trigger_kind, zone, channel, status,
		 COALESCE(provider_message_id, ''), COALESCE(failure_reason, ''), created_at
		 FROM delivery_log ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query delivery log", err)
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		var rec DeliveryRecord
		if err := rows.Scan(&rec.ID, &rec.Trigger, &rec.Zone, &rec.Channel, &rec.Status,
			&rec.ProviderMsgID, &rec.FailureReason, &rec.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan delivery row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate delivery log", err)
	}
	return records, nil
}

// MemoryDeliveryLog is the in-process fallback used when no database is
// configured. It keeps a bounded ring of recent outcomes.
type MemoryDeliveryLog struct {
	mu      sync.Mutex
	limit   int
	records []DeliveryRecord
}

// NewMemoryDeliveryLog creates a MemoryDeliveryLog retaining up to limit rows.
func NewMemoryDeliveryLog(limit int) *MemoryDeliveryLog {
	if limit <= 0 {
		limit = 100
	}
	return &MemoryDeliveryLog{limit: limit}
}

// Record appends one delivery outcome, evicting the oldest past the cap.
func (l *MemoryDeliveryLog) Record(ctx context.Context, trigger types.TriggerKind, zone types.Zone, result types.DeliveryResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, DeliveryRecord{
		ID:            uuid.NewString(),
		Trigger:       trigger,
		Zone:          zone,
		Channel:       result.Channel,
		Status:        result.Status,
		ProviderMsgID: result.ProviderMessageID,
		FailureReason: result.FailureReason,
		CreatedAt:     time.Now(),
	})
	if len(l.records) > l.limit {
		l.records = l.records[len(l.records)-l.limit:]
	}
	return nil
}

// Recent returns the newest rows, newest first, at most limit.
func (l *MemoryDeliveryLog) Recent(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.records)
	if limit > n {
		limit = n
	}
	out := make([]DeliveryRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
