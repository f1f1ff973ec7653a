package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists devices in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert creates or refreshes a device row keyed by device_id.
func (r *Repository) Upsert(ctx context.Context, d Device) (Device, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO devices (id, device_id, label, type, last_seen, active)
		VALUES ($1,$2,$3,$4,NOW(),TRUE)
		ON CONFLICT (device_id) DO UPDATE SET
			label = EXCLUDED.label,
			type = EXCLUDED.type,
			last_seen = NOW(),
			active = TRUE
		RETURNING id, last_seen, active
	`, d.ID, d.DeviceID, d.Label, d.Type)
	if err := row.Scan(&d.ID, &d.LastSeen, &d.Active); err != nil {
		return Device{}, fmt.Errorf("upsert device: %w", err)
	}
	return d, nil
}

// ListActive returns currently active devices.
func (r *Repository) ListActive(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, label, type, last_seen, active
		FROM devices
		WHERE active
		ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()
	var res []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.DeviceID, &d.Label, &d.Type, &d.LastSeen, &d.Active); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// PruneStale deactivates devices whose heartbeat is older than ttl and
// returns how many rows changed.
func (r *Repository) PruneStale(ctx context.Context, ttl time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET active = FALSE
		WHERE active AND last_seen < NOW() - ($1 * interval '1 second')
	`, ttl.Seconds())
	if err != nil {
		return 0, fmt.Errorf("prune devices: %w", err)
	}
	return res.RowsAffected()
}
