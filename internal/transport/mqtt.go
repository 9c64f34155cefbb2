package transport

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/agrovate/farmcore/internal/config"
	"github.com/agrovate/farmcore/internal/types"
)

// Handler consumes one message from a subscribed topic.
type Handler func(topic string, payload []byte)

// Subscription is a disposable handle for one open topic subscription.
// Cancelling twice is a no-op.
type Subscription interface {
	Topic() string
	Cancel() error
}

// Bus is the push-channel surface the rest of the core programs against.
type Bus interface {
	Subscribe(topic string, handler Handler) (Subscription, error)
	Publish(topic string, payload []byte, retained bool) error
	OnConnectionLost(fn func(error))
}

const publishTimeout = 10 * time.Second

// Client wraps the paho MQTT client behind the Bus interface.
type Client struct {
	client mqtt.Client
	logger *zap.Logger

	mu            sync.Mutex
	lostListeners []func(error)
}

func NewClient(cfg config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("MQTT connection lost", zap.Error(err))
		c.notifyLost(err)
	})

	c.client = mqtt.NewClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("MQTT connected", zap.String("broker", cfg.Broker))
	return c, nil
}

// Subscribe opens a QoS-1 subscription and returns its handle.
func (c *Client) Subscribe(topic string, handler Handler) (Subscription, error) {
	token := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", types.ErrSubscription, topic, token.Error())
	}

	return &subscription{client: c, topic: topic}, nil
}

// Publish writes one QoS-1 message and classifies any failure into the
// error taxonomy so callers can map it to a user message.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("%w: broker unreachable", types.ErrNetwork)
	}

	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: publish to %s timed out", types.ErrUnavailable, topic)
	}
	if err := token.Error(); err != nil {
		return classifyPublishError(topic, err)
	}

	return nil
}

// OnConnectionLost registers a listener for transport loss. Listeners are
// process-lifetime; per-session consumers must guard against firing after
// their session stopped.
func (c *Client) OnConnectionLost(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lostListeners = append(c.lostListeners, fn)
}

func (c *Client) notifyLost(err error) {
	c.mu.Lock()
	listeners := make([]func(error), len(c.lostListeners))
	copy(listeners, c.lostListeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(err)
	}
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func classifyPublishError(topic string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not authorized"), strings.Contains(msg, "bad user name"):
		return fmt.Errorf("%w: publish to %s: %v", types.ErrPermissionDenied, topic, err)
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"), errors.Is(err, mqtt.ErrNotConnected):
		return fmt.Errorf("%w: publish to %s: %v", types.ErrNetwork, topic, err)
	default:
		return fmt.Errorf("%w: publish to %s: %v", types.ErrUnavailable, topic, err)
	}
}

type subscription struct {
	client *Client
	topic  string
	once   sync.Once
	err    error
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) Cancel() error {
	s.once.Do(func() {
		token := s.client.client.Unsubscribe(s.topic)
		token.Wait()
		s.err = token.Error()
	})
	return s.err
}
