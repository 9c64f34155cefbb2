package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrovate/farmcore/internal/types"
	"github.com/jackc/pgx/v5"
)

// InsertSchedule stores one recurring irrigation rule for a device.
func (p *PostgresClient) InsertSchedule(ctx context.Context, deviceID string, rule types.ScheduleRule) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO irrigation_schedules (id, device_id, start_at, recurrence, duration_min, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rule.ID, deviceID, rule.StartAt, rule.Recurrence, rule.DurationMin, rule.CreatedBy, rule.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}

	return nil
}

// DeleteSchedule removes one rule. Missing rules surface as pgx.ErrNoRows.
func (p *PostgresClient) DeleteSchedule(ctx context.Context, deviceID, ruleID string) error {
	result, err := p.pool.Exec(ctx, `
		DELETE FROM irrigation_schedules
		WHERE id = $1 AND device_id = $2
	`, ruleID, deviceID)

	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (p *PostgresClient) ListSchedules(ctx context.Context, deviceID string) ([]types.ScheduleRule, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, start_at, recurrence, duration_min, created_by, created_at
		FROM irrigation_schedules
		WHERE device_id = $1
		ORDER BY created_at
	`, deviceID)

	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	rules := make([]types.ScheduleRule, 0)

	for rows.Next() {
		var r types.ScheduleRule
		if err := rows.Scan(&r.ID, &r.StartAt, &r.Recurrence, &r.DurationMin, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// UpsertThresholds stores the automatic-mode moisture bounds for a device.
func (p *PostgresClient) UpsertThresholds(ctx context.Context, deviceID string, t types.ThresholdConfig) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO moisture_thresholds (device_id, soil_moisture_low, soil_moisture_high, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (device_id)
		DO UPDATE SET
			soil_moisture_low = EXCLUDED.soil_moisture_low,
			soil_moisture_high = EXCLUDED.soil_moisture_high,
			updated_at = NOW()
	`, deviceID, t.SoilMoistureLow, t.SoilMoistureHigh)

	if err != nil {
		return fmt.Errorf("failed to upsert thresholds: %w", err)
	}

	return nil
}

func (p *PostgresClient) GetThresholds(ctx context.Context, deviceID string) (types.ThresholdConfig, error) {
	var t types.ThresholdConfig
	err := p.pool.QueryRow(ctx, `
		SELECT soil_moisture_low, soil_moisture_high
		FROM moisture_thresholds
		WHERE device_id = $1
	`, deviceID).Scan(&t.SoilMoistureLow, &t.SoilMoistureHigh)

	if errors.Is(err, pgx.ErrNoRows) {
		return types.ThresholdConfig{}, nil
	}
	if err != nil {
		return types.ThresholdConfig{}, fmt.Errorf("failed to query thresholds: %w", err)
	}

	return t, nil
}

// UpsertMode persists the irrigation mode chosen for a device.
func (p *PostgresClient) UpsertMode(ctx context.Context, deviceID string, mode types.IrrigationMode) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO irrigation_modes (device_id, mode, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (device_id)
		DO UPDATE SET
			mode = EXCLUDED.mode,
			updated_at = NOW()
	`, deviceID, string(mode))

	if err != nil {
		return fmt.Errorf("failed to upsert mode: %w", err)
	}

	return nil
}

func (p *PostgresClient) GetMode(ctx context.Context, deviceID string) (types.IrrigationMode, error) {
	var mode string
	err := p.pool.QueryRow(ctx, `
		SELECT mode
		FROM irrigation_modes
		WHERE device_id = $1
	`, deviceID).Scan(&mode)

	if errors.Is(err, pgx.ErrNoRows) {
		return types.ModeManual, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query mode: %w", err)
	}

	return types.IrrigationMode(mode), nil
}
