package websocket

import "github.com/agrovate/farmcore/internal/types"

// SessionEvents adapts the hub to the session push interface.
type SessionEvents struct {
	hub *Hub
}

func NewSessionEvents(hub *Hub) *SessionEvents {
	return &SessionEvents{hub: hub}
}

func (e *SessionEvents) ReadingUpdated(deviceID string, reading types.CanonicalReading) {
	e.hub.Broadcast(NewReadingMessage(deviceID, reading))
}

func (e *SessionEvents) LivenessChanged(deviceID string, online bool) {
	e.hub.Broadcast(NewLivenessMessage(deviceID, online))
}

func (e *SessionEvents) RelayStatus(deviceID string, state types.RelayState) {
	e.hub.Broadcast(NewRelayStatusMessage(deviceID, state))
}

func (e *SessionEvents) ModeChanged(deviceID string, mode types.IrrigationMode) {
	e.hub.Broadcast(NewModeMessage(deviceID, mode))
}

func (e *SessionEvents) Notify(level, message string) {
	e.hub.Broadcast(NewNotificationMessage(level, message))
}
