package db

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"

	"commutewatch/internal/types"
)

// LocationRepository persists the most recent phone location ping. The table
// holds a single row keyed by a fixed id; each save overwrites it.
type LocationRepository struct {
	db DBTX
}

// NewLocationRepository creates a LocationRepository backed by the given
// database connection (pool or transaction).
func NewLocationRepository(db DBTX) *LocationRepository {
	return &LocationRepository{db: db}
}

// Save upserts the latest location ping.
func (r *LocationRepository) Save(ctx context.Context, ping types.LocationPing) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO location_pings (id, lat, lon, reported_at)
		 VALUES (1, $1, $2, COALESCE($3, NOW()))
		 ON CONFLICT (id) DO UPDATE
		 SET lat = EXCLUDED.lat, lon = EXCLUDED.lon, reported_at = EXCLUDED.reported_at`,
		ping.Lat,
		ping.Lon,
		nilIfZeroTime(ping.ReportedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save location ping", err)
	}
	return nil
}

// Latest returns the most recent ping, or a not-found AppError when no ping
// has been saved yet.
func (r *LocationRepository) Latest(ctx context.Context) (*types.LocationPing, error) {
	row := r.db.QueryRow(ctx,
		`SELECT lat, lon, reported_at FROM location_pings WHERE id = 1`,
	)

	var ping types.LocationPing
	if err := row.Scan(&ping.Lat, &ping.Lon, &ping.ReportedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundLocation, "no location ping recorded", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read location ping", err)
	}
	return &ping, nil
}

// MemoryLocationStore is the in-process fallback used when no database is
// configured.
type MemoryLocationStore struct {
	mu   sync.RWMutex
	ping *types.LocationPing
}

// NewMemoryLocationStore creates an empty MemoryLocationStore.
func NewMemoryLocationStore() *MemoryLocationStore {
	return &MemoryLocationStore{}
}

// Save stores the ping, replacing any previous one.
func (s *MemoryLocationStore) Save(ctx context.Context, ping types.LocationPing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := ping
	s.ping = &copied
	return nil
}

// Latest returns the stored ping, or a not-found AppError when none exists.
func (s *MemoryLocationStore) Latest(ctx context.Context) (*types.LocationPing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ping == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundLocation, "no location ping recorded", nil)
	}
	copied := *s.ping
	return &copied, nil
}
