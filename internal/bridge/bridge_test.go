package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/vibrant/internal/display"
	"github.com/nerrad567/vibrant/internal/infrastructure/mqtt"
	"github.com/nerrad567/vibrant/internal/saturation"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu         sync.Mutex
	published  []mockPublish
	handlers   map[string]mqtt.MessageHandler
	connected  bool
	unsubCount int
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubCount++
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SimulateMessage delivers a message to the handler subscribed on pattern.
func (m *MockMQTTClient) SimulateMessage(t *testing.T, pattern, topic string, payload []byte) {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no handler subscribed on %s", pattern)
	}
	if err := handler(topic, payload); err != nil {
		t.Logf("handler returned %v", err)
	}
}

func (m *MockMQTTClient) messagesOn(topic string) []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockPublish
	for _, p := range m.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// fakeService implements Service over an in-memory map.
type fakeService struct {
	mu        sync.Mutex
	values    map[string]float64
	backends  map[string]string
	setErr    error
	listeners []func(saturation.Change)
}

func newFakeService() *fakeService {
	return &fakeService{
		values:   map[string]float64{"DP-1": 1.0, "HDMI-0": 1.0},
		backends: map[string]string{"DP-1": "ctm", "HDMI-0": "nvidia"},
	}
}

func (f *fakeService) Outputs(context.Context) ([]saturation.OutputStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []saturation.OutputStatus
	for _, name := range []string{"DP-1", "HDMI-0"} {
		v := f.values[name]
		out = append(out, saturation.OutputStatus{Name: name, Backend: f.backends[name], Saturation: &v})
	}
	return out, nil
}

func (f *fakeService) Get(_ context.Context, name string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: output %q", display.ErrNotFound, name)
	}
	return v, nil
}

func (f *fakeService) Set(_ context.Context, name string, value float64, source string) (saturation.Change, error) {
	if err := display.ValidateSaturation(value); err != nil {
		return saturation.Change{}, err
	}
	f.mu.Lock()
	if f.setErr != nil {
		f.mu.Unlock()
		return saturation.Change{}, f.setErr
	}
	if _, ok := f.values[name]; !ok {
		f.mu.Unlock()
		return saturation.Change{}, fmt.Errorf("%w: output %q", display.ErrNotFound, name)
	}
	f.values[name] = value
	backend := f.backends[name]
	listeners := f.listeners
	f.mu.Unlock()

	c := saturation.Change{Output: name, Backend: backend, Saturation: value, Source: source, Timestamp: time.Now()}
	for _, fn := range listeners {
		fn(c)
	}
	return c, nil
}

func (f *fakeService) OnChange(fn func(saturation.Change)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func startBridge(t *testing.T, svc *fakeService, mirror bool) (*Bridge, *MockMQTTClient) {
	t.Helper()
	client := NewMockMQTTClient()
	opts := Options{ID: "test", Version: "dev", MQTT: client, Service: svc}
	if mirror {
		opts.Changes = svc
	}
	b, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return b, client
}

func sendCommand(t *testing.T, client *MockMQTTClient, output string, cmd CommandMessage) {
	t.Helper()
	payload, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	client.SimulateMessage(t, mqtt.Topics{}.CommandSubscribe(), mqtt.Topics{}.Command(output), payload)
}

func lastAck(t *testing.T, client *MockMQTTClient, output string) AckMessage {
	t.Helper()
	acks := client.messagesOn(mqtt.Topics{}.Ack(output))
	if len(acks) == 0 {
		t.Fatalf("no ack on %s", output)
	}
	var ack AckMessage
	if err := json.Unmarshal(acks[len(acks)-1].Payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	return ack
}

func lastState(t *testing.T, client *MockMQTTClient, output string) (StateMessage, int) {
	t.Helper()
	states := client.messagesOn(mqtt.Topics{}.State(output))
	if len(states) == 0 {
		t.Fatalf("no state on %s", output)
	}
	last := states[len(states)-1]
	if !last.Retained {
		t.Error("state message not retained")
	}
	var st StateMessage
	if err := json.Unmarshal(last.Payload, &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	return st, len(states)
}

// ─── Construction ───────────────────────────────────────────────

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{Service: newFakeService()}); err == nil {
		t.Error("New() without MQTT expected error")
	}
	if _, err := New(Options{MQTT: NewMockMQTTClient()}); err == nil {
		t.Error("New() without service expected error")
	}
}

func TestStartPublishesInitialState(t *testing.T) {
	_, client := startBridge(t, newFakeService(), false)

	for _, name := range []string{"DP-1", "HDMI-0"} {
		st, _ := lastState(t, client, name)
		if st.Saturation != 1.0 {
			t.Errorf("%s initial saturation = %v, want 1", name, st.Saturation)
		}
	}
	if len(client.messagesOn(mqtt.Topics{}.Health())) == 0 {
		t.Error("no health published on start")
	}
}

// ─── Commands ───────────────────────────────────────────────────

func TestSetSaturationCommand(t *testing.T) {
	svc := newFakeService()
	_, client := startBridge(t, svc, false)

	sendCommand(t, client, "DP-1", CommandMessage{
		ID:         "cmd-1",
		Command:    CommandSetSaturation,
		Parameters: map[string]any{ParamSaturation: 1.5},
	})

	ack := lastAck(t, client, "DP-1")
	if ack.Status != AckAccepted || ack.CommandID != "cmd-1" || ack.Output != "DP-1" {
		t.Errorf("ack = %+v", ack)
	}

	st, _ := lastState(t, client, "DP-1")
	if st.Saturation != 1.5 || st.Source != saturation.SourceMQTT {
		t.Errorf("state = %+v", st)
	}

	if v, _ := svc.Get(context.Background(), "DP-1"); v != 1.5 {
		t.Errorf("service value = %v, want 1.5", v)
	}
}

func TestSetSaturationMirroredOnce(t *testing.T) {
	svc := newFakeService()
	_, client := startBridge(t, svc, true)
	_, before := lastState(t, client, "DP-1")

	sendCommand(t, client, "DP-1", CommandMessage{
		Command:    CommandSetSaturation,
		Parameters: map[string]any{ParamSaturation: 2.0},
	})

	st, after := lastState(t, client, "DP-1")
	if after != before+1 {
		t.Errorf("published %d state messages, want 1", after-before)
	}
	if st.Saturation != 2.0 {
		t.Errorf("state saturation = %v, want 2", st.Saturation)
	}

	// Changes made elsewhere reach MQTT too.
	if _, err := svc.Set(context.Background(), "HDMI-0", 0.5, saturation.SourceAPI); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	st, _ = lastState(t, client, "HDMI-0")
	if st.Saturation != 0.5 || st.Source != saturation.SourceAPI {
		t.Errorf("mirrored state = %+v", st)
	}
}

func TestGeneratedCommandID(t *testing.T) {
	_, client := startBridge(t, newFakeService(), false)

	sendCommand(t, client, "DP-1", CommandMessage{Command: CommandGetSaturation})

	ack := lastAck(t, client, "DP-1")
	if ack.CommandID == "" {
		t.Error("ack has no command ID")
	}
}

func TestGetSaturationCommand(t *testing.T) {
	svc := newFakeService()
	svc.values["HDMI-0"] = 3.0
	_, client := startBridge(t, svc, false)

	sendCommand(t, client, "HDMI-0", CommandMessage{ID: "g", Command: CommandGetSaturation})

	if ack := lastAck(t, client, "HDMI-0"); ack.Status != AckAccepted {
		t.Errorf("ack = %+v", ack)
	}
	st, _ := lastState(t, client, "HDMI-0")
	if st.Saturation != 3.0 {
		t.Errorf("state saturation = %v, want 3", st.Saturation)
	}
	if st.Backend != "nvidia" {
		t.Errorf("state backend = %q, want nvidia", st.Backend)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
		cmd    CommandMessage
		setErr error
		code   string
	}{
		{
			name:   "unknown output",
			output: "VGA-0",
			cmd:    CommandMessage{Command: CommandGetSaturation},
			code:   ErrCodeNotFound,
		},
		{
			name:   "out of range",
			output: "DP-1",
			cmd:    CommandMessage{Command: CommandSetSaturation, Parameters: map[string]any{ParamSaturation: 5.0}},
			code:   ErrCodeInvalidParameters,
		},
		{
			name:   "missing parameter",
			output: "DP-1",
			cmd:    CommandMessage{Command: CommandSetSaturation},
			code:   ErrCodeInvalidParameters,
		},
		{
			name:   "non-numeric parameter",
			output: "DP-1",
			cmd:    CommandMessage{Command: CommandSetSaturation, Parameters: map[string]any{ParamSaturation: "high"}},
			code:   ErrCodeInvalidParameters,
		},
		{
			name:   "transport failure",
			output: "DP-1",
			cmd:    CommandMessage{Command: CommandSetSaturation, Parameters: map[string]any{ParamSaturation: 1.0}},
			setErr: fmt.Errorf("%w: no reply", display.ErrTransport),
			code:   ErrCodeProtocolError,
		},
		{
			name:   "unknown command",
			output: "DP-1",
			cmd:    CommandMessage{Command: "reboot"},
			code:   ErrCodeInvalidCommand,
		},
		{
			name:   "output mismatch",
			output: "DP-1",
			cmd:    CommandMessage{Output: "HDMI-0", Command: CommandGetSaturation},
			code:   ErrCodeInvalidCommand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.setErr = tt.setErr
			_, client := startBridge(t, svc, false)

			sendCommand(t, client, tt.output, tt.cmd)

			ack := lastAck(t, client, tt.output)
			if ack.Status != AckFailed {
				t.Fatalf("ack status = %s, want failed", ack.Status)
			}
			if ack.Error == nil || ack.Error.Code != tt.code {
				t.Errorf("ack error = %+v, want code %s", ack.Error, tt.code)
			}
		})
	}
}

func TestMalformedCommandDropped(t *testing.T) {
	_, client := startBridge(t, newFakeService(), false)

	client.SimulateMessage(t, mqtt.Topics{}.CommandSubscribe(), mqtt.Topics{}.Command("DP-1"), []byte("{not json"))

	if acks := client.messagesOn(mqtt.Topics{}.Ack("DP-1")); len(acks) != 0 {
		t.Errorf("malformed command produced %d acks", len(acks))
	}
}

func TestStopUnsubscribesAndReportsStopping(t *testing.T) {
	client := NewMockMQTTClient()
	b, err := New(Options{MQTT: client, Service: newFakeService()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	b.Stop()
	b.Stop()

	if client.unsubCount != 1 {
		t.Errorf("unsubscribed %d times, want 1", client.unsubCount)
	}

	health := client.messagesOn(mqtt.Topics{}.Health())
	var msg HealthMessage
	if err := json.Unmarshal(health[len(health)-1].Payload, &msg); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if msg.Status != HealthStopping {
		t.Errorf("final health status = %s, want stopping", msg.Status)
	}
}
