package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrovate/farmcore/internal/types"
	"github.com/jackc/pgx/v5"
)

// Statuses that count as "effectively assigned". Pending requests and
// revoked assignments do not occupy a slot.
var assignedStatuses = []string{"active", "approved"}

// ListAssignedDevices returns the caller's device assignments, newest first.
// Assignment timestamps are server-generated and effectively unique; ties
// fall back to insertion order.
func (p *PostgresClient) ListAssignedDevices(ctx context.Context, userID string) ([]types.DeviceSummary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT device_id, farm_name, location, crop_type, assigned_at
		FROM device_assignments
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY assigned_at DESC
	`, userID, assignedStatuses)

	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	devices := make([]types.DeviceSummary, 0)

	for rows.Next() {
		var d types.DeviceSummary
		if err := rows.Scan(&d.DeviceID, &d.FarmName, &d.Location, &d.CropType, &d.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

// GetActiveDevice returns the persisted active-device selection, or "" when
// the user has never selected one.
func (p *PostgresClient) GetActiveDevice(ctx context.Context, userID string) (string, error) {
	var deviceID string
	err := p.pool.QueryRow(ctx, `
		SELECT active_device_id
		FROM active_device_selections
		WHERE user_id = $1
	`, userID).Scan(&deviceID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query active device: %w", err)
	}

	return deviceID, nil
}

// SaveActiveDevice upserts the per-user active-device pointer.
func (p *PostgresClient) SaveActiveDevice(ctx context.Context, userID, deviceID string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO active_device_selections (user_id, active_device_id, last_switched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			active_device_id = EXCLUDED.active_device_id,
			last_switched_at = NOW()
	`, userID, deviceID)

	if err != nil {
		return fmt.Errorf("failed to save active device: %w", err)
	}

	return nil
}
