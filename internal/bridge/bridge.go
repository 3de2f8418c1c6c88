package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/vibrant/internal/display"
	"github.com/nerrad567/vibrant/internal/infrastructure/mqtt"
	"github.com/nerrad567/vibrant/internal/saturation"
)

// commandTimeout bounds one command against the display.
const commandTimeout = 5 * time.Second

// Publisher publishes MQTT messages. Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// MQTTClient is the MQTT surface the bridge needs. Satisfied by *mqtt.Client.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Service is the saturation surface the bridge drives.
// Satisfied by *saturation.Service.
type Service interface {
	Outputs(ctx context.Context) ([]saturation.OutputStatus, error)
	Get(ctx context.Context, name string) (float64, error)
	Set(ctx context.Context, name string, value float64, source string) (saturation.Change, error)
}

// ChangeSource delivers applied changes. Satisfied by *saturation.Service.
type ChangeSource interface {
	OnChange(fn func(saturation.Change))
}

// Logger is the logging surface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating a bridge.
type Options struct {
	// ID identifies this host in health messages.
	ID string

	// Version is reported in health messages.
	Version string

	// HealthInterval is the health publish period. Default: 30 seconds.
	HealthInterval time.Duration

	MQTT    MQTTClient
	Service Service

	// Changes, when set, mirrors every applied change to the state topics,
	// including those made over the CLI or HTTP.
	Changes ChangeSource

	Logger Logger
}

// Bridge translates MQTT commands into saturation changes and publishes
// state and health.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt    MQTTClient
	service Service
	health  *HealthReporter
	logger  Logger
	topics  mqtt.Topics

	// Output count and backends as last listed, guarded by outputsMu.
	outputCount int
	backends    map[string]string
	outputsMu   sync.RWMutex

	mirror bool

	// Shutdown coordination
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("saturation service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		mqtt:      opts.MQTT,
		service:   opts.Service,
		logger:    logger,
		backends:  make(map[string]string),
		ctx:       ctx,
		ctxCancel: cancel,
	}
	if opts.Changes != nil {
		opts.Changes.OnChange(b.PublishChange)
		b.mirror = true
	}
	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.ID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTT,
		Outputs:   b.outputs,
		Logger:    logger,
	})
	return b, nil
}

// Start subscribes to command topics, publishes the current state of every
// output and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Error("failed to publish starting status", "error", err)
	}

	topic := b.topics.CommandSubscribe()
	if err := b.mqtt.Subscribe(topic, 1, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logger.Info("subscribed to commands", "topic", topic)

	b.publishAllStates(ctx)

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logger.Error("failed to publish healthy status", "error", err)
	}

	b.logger.Info("bridge started", "outputs", b.outputs())
	return nil
}

// Stop unsubscribes, waits for in-flight commands and stops health
// reporting.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()

		if err := b.mqtt.Unsubscribe(b.topics.CommandSubscribe()); err != nil {
			b.logger.Debug("unsubscribing commands", "error", err)
		}

		b.wg.Wait()
		b.health.Stop()
		b.logger.Info("bridge stopped")
	})
}

// PublishChange publishes an applied change on the output's state topic.
func (b *Bridge) PublishChange(c saturation.Change) {
	b.publishState(NewStateMessage(c))
}

func (b *Bridge) publishAllStates(ctx context.Context) {
	statuses, err := b.service.Outputs(ctx)
	if err != nil {
		b.logger.Error("listing outputs", "error", err)
		return
	}

	b.recordOutputs(statuses)

	for _, st := range statuses {
		if st.Saturation == nil {
			b.logger.Warn("output state unavailable", "output", st.Name, "error", st.Error)
			continue
		}
		b.publishState(StateMessage{
			Output:     st.Name,
			Timestamp:  time.Now().UTC(),
			Backend:    st.Backend,
			Saturation: *st.Saturation,
		})
	}
}

func (b *Bridge) recordOutputs(statuses []saturation.OutputStatus) {
	b.outputsMu.Lock()
	defer b.outputsMu.Unlock()
	b.outputCount = len(statuses)
	for _, st := range statuses {
		b.backends[st.Name] = st.Backend
	}
}

func (b *Bridge) outputs() int {
	b.outputsMu.RLock()
	defer b.outputsMu.RUnlock()
	return b.outputCount
}

// backendOf returns the backend of an output, listing outputs again when it
// was not known at start.
func (b *Bridge) backendOf(ctx context.Context, name string) string {
	b.outputsMu.RLock()
	backend, ok := b.backends[name]
	b.outputsMu.RUnlock()
	if ok {
		return backend
	}

	statuses, err := b.service.Outputs(ctx)
	if err != nil {
		b.logger.Debug("listing outputs", "error", err)
		return ""
	}
	b.recordOutputs(statuses)

	b.outputsMu.RLock()
	defer b.outputsMu.RUnlock()
	return b.backends[name]
}

// handleMessage is the MQTT callback for command topics. Returning an error
// only logs it in the MQTT client; acks carry the outcome.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	output, ok := mqtt.OutputFromTopic(topic)
	if !ok {
		return fmt.Errorf("invalid command topic %q", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("dropping malformed command", "topic", topic, "error", err)
		return nil
	}
	ensureID(&cmd)
	if cmd.Output == "" {
		cmd.Output = output
	}
	if cmd.Output != output {
		b.publishAckError(cmd, ErrCodeInvalidCommand,
			fmt.Sprintf("output %q does not match topic %q", cmd.Output, topic))
		return nil
	}

	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Info("received command",
		"command_id", cmd.ID,
		"output", cmd.Output,
		"command", cmd.Command)

	b.executeCommand(cmd)
	return nil
}

func (b *Bridge) executeCommand(cmd CommandMessage) {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	switch cmd.Command {
	case CommandSetSaturation:
		value, ok := saturationParam(cmd.Parameters)
		if !ok {
			b.publishAckError(cmd, ErrCodeInvalidParameters, "saturation parameter must be a number")
			return
		}
		change, err := b.service.Set(ctx, cmd.Output, value, saturation.SourceMQTT)
		if err != nil {
			b.publishAckError(cmd, errorCode(err), err.Error())
			return
		}
		b.publishAck(cmd)
		if !b.mirror {
			b.PublishChange(change)
		}

	case CommandGetSaturation:
		value, err := b.service.Get(ctx, cmd.Output)
		if err != nil {
			b.publishAckError(cmd, errorCode(err), err.Error())
			return
		}
		b.publishAck(cmd)
		b.publishState(StateMessage{
			Output:     cmd.Output,
			Timestamp:  time.Now().UTC(),
			Backend:    b.backendOf(ctx, cmd.Output),
			Saturation: value,
		})

	default:
		b.publishAckError(cmd, ErrCodeInvalidCommand, fmt.Sprintf("unknown command %q", cmd.Command))
	}
}

// errorCode maps a service error to an ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, display.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, display.ErrRange):
		return ErrCodeInvalidParameters
	case errors.Is(err, display.ErrTransport):
		return ErrCodeProtocolError
	default:
		return ErrCodeBridgeError
	}
}

func (b *Bridge) publishAck(cmd CommandMessage) {
	b.publishJSON(b.topics.Ack(cmd.Output), NewAckMessage(cmd), false)
}

func (b *Bridge) publishAckError(cmd CommandMessage, code, message string) {
	b.publishJSON(b.topics.Ack(cmd.Output), NewAckError(cmd, code, message), false)
	b.logger.Warn("command failed", "command_id", cmd.ID, "code", code, "message", message)
}

func (b *Bridge) publishState(msg StateMessage) {
	b.publishJSON(b.topics.State(msg.Output), msg, true)
}

func (b *Bridge) publishJSON(topic string, msg any, retained bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal message", "topic", topic, "error", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, 1, retained); err != nil {
		b.logger.Error("failed to publish", "topic", topic, "error", err)
	}
}
