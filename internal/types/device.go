package types

import "time"

// DeviceSummary is the lightweight per-assignment view handed to the UI.
type DeviceSummary struct {
	DeviceID   string    `json:"device_id"`
	FarmName   string    `json:"farm_name"`
	Location   string    `json:"location"`
	CropType   string    `json:"crop_type"`
	AssignedAt time.Time `json:"assigned_at"`
}

// DeviceUsageSummary projects assignment-cap usage for display.
type DeviceUsageSummary struct {
	Current    int     `json:"current"`
	Max        int     `json:"max"`
	Available  int     `json:"available"`
	Percentage float64 `json:"percentage"`
}

// IrrigationMode selects between manual relay control and threshold-driven
// automatic mode executed on the device.
type IrrigationMode string

const (
	ModeManual IrrigationMode = "manual"
	ModeAuto   IrrigationMode = "auto"
)

// ScheduleRule is a recurring actuator trigger stored for a device.
type ScheduleRule struct {
	ID          string    `json:"id"`
	StartAt     string    `json:"start_at"`
	Recurrence  string    `json:"recurrence"`
	DurationMin int       `json:"duration_min"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ThresholdConfig holds the automatic-mode moisture bounds. No ordering is
// enforced here; the hardware tolerates any bounds.
type ThresholdConfig struct {
	SoilMoistureLow  float64 `json:"soil_moisture_low"`
	SoilMoistureHigh float64 `json:"soil_moisture_high"`
}
