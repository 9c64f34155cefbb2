package control

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/auth"
	"github.com/agrovate/farmcore/internal/types"
)

//go:embed schema/relay-command-v1.json
var relayCommandSchemaJSON string

// Publisher is the write half of the device bus.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Channel sends relay commands for one device and tracks the relay read
// model. Commands are applied optimistically; the authoritative relay-status
// stream overwrites the optimistic value on every push (see ApplyRemote).
// A failed send is never rolled back locally: the failure notification plus
// the next authoritative push is the recovery path.
type Channel struct {
	deviceID string
	topic    string
	bus      Publisher
	schema   *jsonschema.Schema
	logger   *zap.Logger

	mu    sync.RWMutex
	relay types.RelayState
}

func NewChannel(deviceID, commandTopic string, bus Publisher, logger *zap.Logger) (*Channel, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("relay-command-v1.json",
		strings.NewReader(relayCommandSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("relay-command-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Channel{
		deviceID: deviceID,
		topic:    commandTopic,
		bus:      bus,
		schema:   schema,
		logger:   logger,
		relay:    types.RelayOff,
	}, nil
}

// Send issues one relay command on behalf of the principal. Exactly one
// command per user action; no automatic retry.
func (ch *Channel) Send(ctx context.Context, desired types.RelayState, principal auth.Principal) (types.RelayCommand, error) {
	if ch.deviceID == "" || principal.IsZero() {
		return types.RelayCommand{}, types.ErrNotReady
	}

	cmd := types.RelayCommand{
		Value:            desired,
		RequestedBy:      principal.ID,
		RequestedByEmail: principal.Email,
		Timestamp:        time.Now().UnixMilli(),
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return types.RelayCommand{}, fmt.Errorf("%w: %v", types.ErrInvalidPayload, err)
	}

	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return types.RelayCommand{}, fmt.Errorf("%w: %v", types.ErrInvalidPayload, err)
	}
	if err := ch.schema.Validate(doc); err != nil {
		return types.RelayCommand{}, fmt.Errorf("%w: %v", types.ErrInvalidPayload, err)
	}

	// Optimistic apply before the broker acknowledges, so the UI reflects
	// intent immediately.
	ch.mu.Lock()
	ch.relay = desired
	ch.mu.Unlock()

	if err := ch.bus.Publish(ch.topic, payload, false); err != nil {
		ch.logger.Error("Relay command failed",
			zap.String("device", ch.deviceID),
			zap.String("desired", string(desired)),
			zap.Error(err))
		return cmd, err
	}

	ch.logger.Info("Relay command sent",
		zap.String("device", ch.deviceID),
		zap.String("desired", string(desired)),
		zap.String("requested_by", principal.ID))

	return cmd, nil
}

// ApplyRemote overwrites the local relay state with a device-reported value.
// Device truth always wins, whether or not it matches what was requested.
func (ch *Channel) ApplyRemote(state types.RelayState) {
	ch.mu.Lock()
	ch.relay = state
	ch.mu.Unlock()
}

// Relay returns the current relay read model.
func (ch *Channel) Relay() types.RelayState {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.relay
}
