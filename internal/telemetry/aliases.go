package telemetry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Canonical field names. The first alias of every field is the canonical
// spelling itself, which makes normalization idempotent.
const (
	FieldSoilMoistureRaw = "soilMoistureRaw"
	FieldSoilMoisturePct = "soilMoisturePct"
	FieldAirTemperature  = "airTemperature"
	FieldAirHumidity     = "airHumidity"
	FieldSoilTemperature = "soilTemperature"
	FieldAirQualityIndex = "airQualityIndex"
	FieldGasCO2          = "co2"
	FieldGasNH3          = "nh3"
	FieldLightDetected   = "lightDetected"
	FieldRainLevelRaw    = "rainLevelRaw"
	FieldRelayStatus     = "relayStatus"
	FieldTimestamp       = "timestamp"
)

// AliasTable maps each canonical field to the ordered list of source keys
// accepted for it. First present key wins. The table is static and versioned;
// deployments with unusual firmware can override it from a YAML file.
type AliasTable struct {
	Version int                 `yaml:"version"`
	Fields  map[string][]string `yaml:"fields"`
	// Containers are the keys under which a nested gas object may appear.
	Containers []string `yaml:"gas_containers"`
}

func DefaultAliasTable() *AliasTable {
	return &AliasTable{
		Version: 1,
		Fields: map[string][]string{
			FieldSoilMoistureRaw: {"soilMoistureRaw", "soil_moisture_raw", "soil_moisture", "soilMoisture", "moisture_raw", "adc_moisture"},
			FieldSoilMoisturePct: {"soilMoisturePct", "soil_moisture_pct", "soil_moisture_percent", "moisture_pct", "moisturePercent"},
			FieldAirTemperature:  {"airTemperature", "air_temperature", "temperature", "temp", "dht11_temp", "dht22_temp"},
			FieldAirHumidity:     {"airHumidity", "air_humidity", "humidity", "dht11_humidity", "dht22_humidity"},
			FieldSoilTemperature: {"soilTemperature", "soil_temperature", "soil_temp", "ds18b20_temp"},
			FieldAirQualityIndex: {"airQualityIndex", "air_quality_index", "aqi", "air_quality", "mq135_aqi"},
			FieldGasCO2:          {"co2", "CO2", "gas_co2", "mq135_co2"},
			FieldGasNH3:          {"nh3", "NH3", "gas_nh3", "mq135_nh3"},
			FieldLightDetected:   {"lightDetected", "light_detected", "light", "ldr_light", "is_light"},
			FieldRainLevelRaw:    {"rainLevelRaw", "rain_level_raw", "rain_raw", "rain_level", "rain"},
			FieldRelayStatus:     {"relayStatus", "relay_status", "relay", "pump_status", "pump"},
			FieldTimestamp:       {"timestamp", "ts", "time", "reported_at"},
		},
		Containers: []string{"gases", "gas"},
	}
}

// LoadAliasTable reads an alias-table override from a YAML file. Missing
// fields fall back to the compiled-in table so an override only needs to
// list the fields it changes.
func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias table: %w", err)
	}

	var loaded AliasTable
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse alias table: %w", err)
	}

	table := DefaultAliasTable()
	if loaded.Version != 0 {
		table.Version = loaded.Version
	}
	for field, aliases := range loaded.Fields {
		if _, known := table.Fields[field]; !known {
			return nil, fmt.Errorf("unknown canonical field in alias table: %s", field)
		}
		table.Fields[field] = aliases
	}
	if len(loaded.Containers) > 0 {
		table.Containers = loaded.Containers
	}

	return table, nil
}
