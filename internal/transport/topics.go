package transport

import "fmt"

// Topic layout, one namespace per device:
//
//	<prefix>/<deviceID>/telemetry   sensor payloads (device → core)
//	<prefix>/<deviceID>/meta        {"lastSeen": n} liveness marker
//	<prefix>/<deviceID>/relay       authoritative relay status (device → core)
//	<prefix>/<deviceID>/relay/set   relay commands (core → device)
//	<prefix>/<deviceID>/mode        irrigation mode, retained
//	<prefix>/<deviceID>/schedules   schedule mirror, retained
//	<prefix>/<deviceID>/thresholds  threshold mirror, retained
type Topics struct {
	prefix string
}

func NewTopics(prefix string) Topics {
	return Topics{prefix: prefix}
}

func (t Topics) device(deviceID, suffix string) string {
	return fmt.Sprintf("%s/%s/%s", t.prefix, deviceID, suffix)
}

func (t Topics) Telemetry(deviceID string) string  { return t.device(deviceID, "telemetry") }
func (t Topics) Meta(deviceID string) string       { return t.device(deviceID, "meta") }
func (t Topics) Relay(deviceID string) string      { return t.device(deviceID, "relay") }
func (t Topics) RelaySet(deviceID string) string   { return t.device(deviceID, "relay/set") }
func (t Topics) Mode(deviceID string) string       { return t.device(deviceID, "mode") }
func (t Topics) Schedules(deviceID string) string  { return t.device(deviceID, "schedules") }
func (t Topics) Thresholds(deviceID string) string { return t.device(deviceID, "thresholds") }
