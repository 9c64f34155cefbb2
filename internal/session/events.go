package session

import "github.com/agrovate/farmcore/internal/types"

// Events is the push surface a session feeds. The websocket hub implements
// it for the UI; tests plug in a recorder.
type Events interface {
	ReadingUpdated(deviceID string, reading types.CanonicalReading)
	LivenessChanged(deviceID string, online bool)
	RelayStatus(deviceID string, state types.RelayState)
	ModeChanged(deviceID string, mode types.IrrigationMode)
	Notify(level, message string)
}

// NopEvents discards everything.
type NopEvents struct{}

func (NopEvents) ReadingUpdated(string, types.CanonicalReading) {}
func (NopEvents) LivenessChanged(string, bool)                  {}
func (NopEvents) RelayStatus(string, types.RelayState)          {}
func (NopEvents) ModeChanged(string, types.IrrigationMode)      {}
func (NopEvents) Notify(string, string)                         {}
