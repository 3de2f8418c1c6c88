package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/vibrant/internal/infrastructure/config"
)

// Logger is the subset of logging.Logger the client writes to.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// MessageHandler is the callback signature for received messages.
//
// Handlers run on paho's goroutines and should return quickly. A returned
// error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Hooks are fixed for the lifetime of a Client. All fields are optional.
type Hooks struct {
	// Logger receives handler errors, recovered panics and connection loss.
	Logger Logger

	// OnConnect runs after every reconnect, once subscriptions are restored.
	OnConnect func()

	// OnDisconnect runs when the broker link drops.
	OnDisconnect func(err error)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client wraps paho.mqtt.golang for the vibrant bridge. Subscriptions are
// remembered and restored on reconnect.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	paho  pahomqtt.Client
	cfg   config.MQTTConfig
	hooks Hooks

	connected atomic.Bool

	mu   sync.Mutex
	subs map[string]subscription
}

func newClient(cfg config.MQTTConfig, hooks Hooks) *Client {
	if hooks.Logger == nil {
		hooks.Logger = noopLogger{}
	}
	return &Client{cfg: cfg, hooks: hooks, subs: make(map[string]subscription)}
}

// Connect establishes a connection to the MQTT broker.
//
// The broker publishes a retained "offline" status on our behalf if the
// connection drops without a clean Close. Every successful connect
// publishes "online" to the same topic.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - hooks: Logger and connection callbacks
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrConnectionFailed if the broker is unreachable within the timeout
func Connect(cfg config.MQTTConfig, hooks Hooks) (*Client, error) {
	c := newClient(cfg, hooks)

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The on-connect handler runs asynchronously; mark connected now so
	// callers can subscribe straight away.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)

	c.mu.Lock()
	for topic, sub := range c.subs {
		c.paho.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.mu.Unlock()

	c.publishStatus(statusOnline, "")
	if c.hooks.OnConnect != nil {
		c.hooks.OnConnect()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	c.hooks.Logger.Warn("MQTT connection lost", "error", err)
	if c.hooks.OnDisconnect != nil {
		c.hooks.OnDisconnect(err)
	}
}

func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := buildStatusPayload(c.cfg.Broker.ClientID, status, reason)
	return c.paho.Publish(Topics{}.Status(), byte(c.cfg.QoS), true, payload)
}

// Close publishes a graceful "offline" status and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(statusOffline, reasonShutdown).WaitTimeout(defaultPublishTimeout)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected when the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.paho != nil && c.paho.IsConnected()
}

// wrapHandler adapts a MessageHandler to paho, with panic recovery and
// error logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.hooks.Logger.Error("MQTT handler panic recovered", "topic", topic, "panic", r)
		}
	}()
	if err := handler(topic, payload); err != nil {
		c.hooks.Logger.Warn("MQTT handler returned error", "topic", topic, "error", err)
	}
}
