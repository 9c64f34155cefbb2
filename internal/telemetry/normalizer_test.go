package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovate/farmcore/internal/telemetry"
	"github.com/agrovate/farmcore/internal/types"
)

func TestNormalize_NilRecord(t *testing.T) {
	reading, missing := telemetry.Normalize(nil)
	require.Nil(t, reading)
	require.Nil(t, missing)
}

func TestNormalize_KnownAliases(t *testing.T) {
	raw := map[string]any{
		"soil_moisture_pct": 42.0,
		"dht11_temp":        27.0,
	}

	reading, _ := telemetry.Normalize(raw)
	require.NotNil(t, reading)

	assert.Equal(t, 42.0, reading.SoilMoisturePct)
	assert.Equal(t, 27.0, reading.AirTemperature)

	// Everything else falls back to its documented default.
	assert.Equal(t, 0.0, reading.SoilMoistureRaw)
	assert.Equal(t, 0.0, reading.AirHumidity)
	assert.Equal(t, 0.0, reading.SoilTemperature)
	assert.Equal(t, 0.0, reading.AirQualityIndex)
	assert.Equal(t, 0.0, reading.Gases.CO2)
	assert.Equal(t, 0.0, reading.Gases.NH3)
	assert.Equal(t, 0.0, reading.RainLevelRaw)
	assert.False(t, reading.LightDetected)
	assert.Equal(t, types.RelayOff, reading.RelayStatus)
	assert.True(t, reading.DeviceOnline)
}

func TestNormalize_AliasCoverage(t *testing.T) {
	// Every documented alias of every numeric field must deliver its value.
	table := telemetry.DefaultAliasTable()

	numericFields := []string{
		telemetry.FieldSoilMoistureRaw,
		telemetry.FieldSoilMoisturePct,
		telemetry.FieldAirTemperature,
		telemetry.FieldAirHumidity,
		telemetry.FieldSoilTemperature,
		telemetry.FieldAirQualityIndex,
		telemetry.FieldRainLevelRaw,
	}

	read := func(r *types.CanonicalReading, field string) float64 {
		switch field {
		case telemetry.FieldSoilMoistureRaw:
			return r.SoilMoistureRaw
		case telemetry.FieldSoilMoisturePct:
			return r.SoilMoisturePct
		case telemetry.FieldAirTemperature:
			return r.AirTemperature
		case telemetry.FieldAirHumidity:
			return r.AirHumidity
		case telemetry.FieldSoilTemperature:
			return r.SoilTemperature
		case telemetry.FieldAirQualityIndex:
			return r.AirQualityIndex
		case telemetry.FieldRainLevelRaw:
			return r.RainLevelRaw
		}
		t.Fatalf("unknown field %s", field)
		return 0
	}

	for _, field := range numericFields {
		for _, alias := range table.Fields[field] {
			raw := map[string]any{alias: 7.5}
			reading, _ := telemetry.Normalize(raw)
			require.NotNil(t, reading)
			assert.Equal(t, 7.5, read(reading, field),
				"field %s via alias %s", field, alias)
		}
	}
}

func TestNormalize_FirstAliasWins(t *testing.T) {
	raw := map[string]any{
		"airTemperature": 21.0,
		"dht11_temp":     99.0,
	}

	reading, _ := telemetry.Normalize(raw)
	require.NotNil(t, reading)
	assert.Equal(t, 21.0, reading.AirTemperature)
}

func TestNormalize_NestedGases(t *testing.T) {
	raw := map[string]any{
		"gases": map[string]any{
			"gas_co2": 412.0,
			"NH3":     3.5,
		},
	}

	reading, _ := telemetry.Normalize(raw)
	require.NotNil(t, reading)
	assert.Equal(t, 412.0, reading.Gases.CO2)
	assert.Equal(t, 3.5, reading.Gases.NH3)
}

func TestNormalize_FlatGases(t *testing.T) {
	raw := map[string]any{
		"mq135_co2": 380.0,
		"gas_nh3":   1.2,
	}

	reading, _ := telemetry.Normalize(raw)
	require.NotNil(t, reading)
	assert.Equal(t, 380.0, reading.Gases.CO2)
	assert.Equal(t, 1.2, reading.Gases.NH3)
}

func TestNormalize_RelayAndLightVariants(t *testing.T) {
	cases := []struct {
		name  string
		raw   map[string]any
		relay types.RelayState
		light bool
	}{
		{"canonical strings", map[string]any{"relayStatus": "on", "lightDetected": true}, types.RelayOn, true},
		{"pump bool", map[string]any{"pump": true, "light": 1.0}, types.RelayOn, true},
		{"pump numeric off", map[string]any{"pump_status": 0.0, "ldr_light": 0.0}, types.RelayOff, false},
		{"snake strings", map[string]any{"relay_status": "off", "is_light": "true"}, types.RelayOff, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reading, _ := telemetry.Normalize(tc.raw)
			require.NotNil(t, reading)
			assert.Equal(t, tc.relay, reading.RelayStatus)
			assert.Equal(t, tc.light, reading.LightDetected)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := map[string]any{
		"soilMoistureRaw": 812.0,
		"soilMoisturePct": 64.0,
		"airTemperature":  24.5,
		"airHumidity":     58.0,
		"soilTemperature": 19.0,
		"airQualityIndex": 72.0,
		"gases":           map[string]any{"co2": 410.0, "nh3": 2.0},
		"lightDetected":   true,
		"rainLevelRaw":    120.0,
		"relayStatus":     "on",
		"timestamp":       1735689600000.0,
	}

	first, missing := telemetry.Normalize(raw)
	require.NotNil(t, first)
	assert.Empty(t, missing, "canonical record should carry every expected key")

	// Re-normalizing the canonical output must be a fixed point.
	again := map[string]any{
		"soilMoistureRaw": first.SoilMoistureRaw,
		"soilMoisturePct": first.SoilMoisturePct,
		"airTemperature":  first.AirTemperature,
		"airHumidity":     first.AirHumidity,
		"soilTemperature": first.SoilTemperature,
		"airQualityIndex": first.AirQualityIndex,
		"gases":           map[string]any{"co2": first.Gases.CO2, "nh3": first.Gases.NH3},
		"lightDetected":   first.LightDetected,
		"rainLevelRaw":    first.RainLevelRaw,
		"relayStatus":     string(first.RelayStatus),
		"timestamp":       float64(first.Timestamp),
	}

	second, _ := telemetry.Normalize(again)
	require.NotNil(t, second)
	assert.Equal(t, first, second)
}

func TestNormalize_MissingFieldDiagnostics(t *testing.T) {
	raw := map[string]any{
		"soil_moisture_pct": 42.0,
	}

	_, missing := telemetry.Normalize(raw)

	assert.Contains(t, missing, telemetry.FieldAirTemperature)
	assert.Contains(t, missing, telemetry.FieldRelayStatus)
	assert.Contains(t, missing, telemetry.FieldTimestamp)
	assert.NotContains(t, missing, telemetry.FieldSoilMoisturePct)
}
