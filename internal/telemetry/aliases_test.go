package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovate/farmcore/internal/telemetry"
)

func writeAliasFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAliasTable_OverrideMergesOntoDefaults(t *testing.T) {
	path := writeAliasFile(t, `
version: 2
fields:
  airTemperature:
    - airTemperature
    - bme280_temp
`)

	table, err := telemetry.LoadAliasTable(path)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Version)
	assert.Equal(t, []string{"airTemperature", "bme280_temp"}, table.Fields[telemetry.FieldAirTemperature])

	// Untouched fields keep the compiled-in aliases.
	assert.Equal(t, telemetry.DefaultAliasTable().Fields[telemetry.FieldAirHumidity],
		table.Fields[telemetry.FieldAirHumidity])
	assert.Equal(t, []string{"gases", "gas"}, table.Containers)
}

func TestLoadAliasTable_RejectsUnknownField(t *testing.T) {
	path := writeAliasFile(t, `
fields:
  windSpeed:
    - wind_speed
`)

	_, err := telemetry.LoadAliasTable(path)
	assert.Error(t, err)
}

func TestLoadAliasTable_MissingFile(t *testing.T) {
	_, err := telemetry.LoadAliasTable(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadAliasTable_OverrideDrivesNormalization(t *testing.T) {
	path := writeAliasFile(t, `
fields:
  soilMoisturePct:
    - soilMoisturePct
    - bodenfeuchte
`)

	table, err := telemetry.LoadAliasTable(path)
	require.NoError(t, err)

	reading, _ := telemetry.NormalizeWith(table, map[string]any{"bodenfeuchte": 55.0})
	require.NotNil(t, reading)
	assert.Equal(t, 55.0, reading.SoilMoisturePct)
}
