package websocket

import (
	"time"

	"github.com/agrovate/farmcore/internal/types"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Telemetry and liveness
	MessageTypeReadingUpdate  MessageType = "reading_update"
	MessageTypeLivenessChange MessageType = "liveness_change"

	// Actuator
	MessageTypeRelayStatus MessageType = "relay_status"
	MessageTypeModeChange  MessageType = "mode_change"

	// Command feedback and operator notices
	MessageTypeNotification MessageType = "notification"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type ReadingData struct {
	DeviceID string                 `json:"device_id"`
	Reading  types.CanonicalReading `json:"reading"`
}

type LivenessData struct {
	DeviceID string `json:"device_id"`
	Online   bool   `json:"online"`
}

type RelayStatusData struct {
	DeviceID string           `json:"device_id"`
	State    types.RelayState `json:"state"`
}

type ModeData struct {
	DeviceID string               `json:"device_id"`
	Mode     types.IrrigationMode `json:"mode"`
}

type NotificationData struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewReadingMessage(deviceID string, reading types.CanonicalReading) Message {
	return NewMessage(MessageTypeReadingUpdate, ReadingData{DeviceID: deviceID, Reading: reading})
}

func NewLivenessMessage(deviceID string, online bool) Message {
	return NewMessage(MessageTypeLivenessChange, LivenessData{DeviceID: deviceID, Online: online})
}

func NewRelayStatusMessage(deviceID string, state types.RelayState) Message {
	return NewMessage(MessageTypeRelayStatus, RelayStatusData{DeviceID: deviceID, State: state})
}

func NewModeMessage(deviceID string, mode types.IrrigationMode) Message {
	return NewMessage(MessageTypeModeChange, ModeData{DeviceID: deviceID, Mode: mode})
}

func NewNotificationMessage(level, message string) Message {
	return NewMessage(MessageTypeNotification, NotificationData{Level: level, Message: message})
}
