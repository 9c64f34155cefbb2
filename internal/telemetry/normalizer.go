package telemetry

import (
	"encoding/json"
	"strconv"

	"github.com/agrovate/farmcore/internal/types"
)

// Normalize maps a raw telemetry record with arbitrary firmware field names
// onto the canonical schema using the default alias table. Returns the
// normalized reading plus diagnostics naming every expected field the record
// did not carry under any known alias. Diagnostics aid operability only; they
// never block normalization. Nil input yields nil output.
func Normalize(raw map[string]any) (*types.CanonicalReading, []string) {
	return NormalizeWith(DefaultAliasTable(), raw)
}

// NormalizeWith is Normalize with an explicit alias table. Pure function:
// same input always yields the same output.
func NormalizeWith(table *AliasTable, raw map[string]any) (*types.CanonicalReading, []string) {
	if raw == nil {
		return nil, nil
	}

	var missing []string
	num := func(field string) float64 {
		v, ok := resolve(table, raw, field)
		if !ok {
			missing = append(missing, field)
			return 0
		}
		n, ok := asNumber(v)
		if !ok {
			return 0
		}
		return n
	}

	reading := &types.CanonicalReading{
		SoilMoistureRaw: num(FieldSoilMoistureRaw),
		SoilMoisturePct: num(FieldSoilMoisturePct),
		AirTemperature:  num(FieldAirTemperature),
		AirHumidity:     num(FieldAirHumidity),
		SoilTemperature: num(FieldSoilTemperature),
		AirQualityIndex: num(FieldAirQualityIndex),
		RainLevelRaw:    num(FieldRainLevelRaw),
		RelayStatus:     types.RelayOff,
	}

	// Gas readings may sit in a nested object or flat in the record.
	reading.Gases.CO2 = gasValue(table, raw, FieldGasCO2, &missing)
	reading.Gases.NH3 = gasValue(table, raw, FieldGasNH3, &missing)

	if v, ok := resolve(table, raw, FieldLightDetected); ok {
		reading.LightDetected = asBool(v)
	} else {
		missing = append(missing, FieldLightDetected)
	}

	if v, ok := resolve(table, raw, FieldRelayStatus); ok {
		reading.RelayStatus = asRelayState(v)
	} else {
		missing = append(missing, FieldRelayStatus)
	}

	if v, ok := resolve(table, raw, FieldTimestamp); ok {
		if n, numOK := asNumber(v); numOK {
			reading.Timestamp = int64(n)
		}
	} else {
		missing = append(missing, FieldTimestamp)
	}

	// A record that made it here came from a live push.
	reading.DeviceOnline = true

	return reading, missing
}

// resolve walks the field's alias list and returns the first present value.
func resolve(table *AliasTable, raw map[string]any, field string) (any, bool) {
	for _, alias := range table.Fields[field] {
		if v, ok := raw[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

// gasValue resolves a gas field from any nested container first, then from
// the flat record.
func gasValue(table *AliasTable, raw map[string]any, field string, missing *[]string) float64 {
	for _, container := range table.Containers {
		nested, ok := raw[container].(map[string]any)
		if !ok {
			continue
		}
		if v, found := resolve(table, nested, field); found {
			n, _ := asNumber(v)
			return n
		}
	}
	if v, ok := resolve(table, raw, field); ok {
		n, _ := asNumber(v)
		return n
	}
	*missing = append(*missing, field)
	return 0
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1" || b == "on"
	default:
		n, ok := asNumber(v)
		return ok && n != 0
	}
}

func asRelayState(v any) types.RelayState {
	switch s := v.(type) {
	case string:
		if s == string(types.RelayOn) || s == "1" || s == "true" {
			return types.RelayOn
		}
		return types.RelayOff
	default:
		if asBool(v) {
			return types.RelayOn
		}
		return types.RelayOff
	}
}
