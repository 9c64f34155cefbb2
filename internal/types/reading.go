package types

// RelayState is the on/off state of the irrigation pump relay.
type RelayState string

const (
	RelayOn  RelayState = "on"
	RelayOff RelayState = "off"
)

// GasReadings holds the normalized gas sensor values.
type GasReadings struct {
	CO2 float64 `json:"co2"`
	NH3 float64 `json:"nh3"`
}

// CanonicalReading is the fixed sensor schema guaranteed to consumers,
// regardless of how the device firmware names its fields.
type CanonicalReading struct {
	SoilMoistureRaw float64     `json:"soilMoistureRaw"`
	SoilMoisturePct float64     `json:"soilMoisturePct"`
	AirTemperature  float64     `json:"airTemperature"`
	AirHumidity     float64     `json:"airHumidity"`
	SoilTemperature float64     `json:"soilTemperature"`
	AirQualityIndex float64     `json:"airQualityIndex"`
	Gases           GasReadings `json:"gases"`
	LightDetected   bool        `json:"lightDetected"`
	RainLevelRaw    float64     `json:"rainLevelRaw"`
	RelayStatus     RelayState  `json:"relayStatus"`
	Timestamp       int64       `json:"timestamp"`
	DeviceOnline    bool        `json:"deviceOnline"`
}

// ZeroReading is the reading shown while a device is offline: every sensor
// field zeroed, relay off, deviceOnline false. Offline state and the zeroed
// reading are always applied together.
func ZeroReading() CanonicalReading {
	return CanonicalReading{RelayStatus: RelayOff}
}
