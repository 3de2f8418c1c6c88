package bridge

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/vibrant/internal/saturation"
)

// Command names accepted on the command topic.
const (
	CommandSetSaturation = "set_saturation"
	CommandGetSaturation = "get_saturation"
)

// ParamSaturation is the parameter key carrying the requested saturation.
const ParamSaturation = "saturation"

// CommandMessage is received on vibrant/command/{output}.
type CommandMessage struct {
	// ID correlates the command with its acknowledgement. One is generated
	// when the sender leaves it empty.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	// Output is taken from the topic when empty.
	Output string `json:"output,omitempty"`

	// Command is "set_saturation" or "get_saturation".
	Command string `json:"command"`

	// Parameters holds command values, e.g. {"saturation": 1.5}.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source names the sender, e.g. "home-assistant".
	Source string `json:"source,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was applied.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is published on vibrant/ack/{output}.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Output    string    `json:"output"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage is published, retained, on vibrant/state/{output}.
type StateMessage struct {
	Output     string    `json:"output"`
	Timestamp  time.Time `json:"timestamp"`
	Backend    string    `json:"backend,omitempty"`
	Saturation float64   `json:"saturation"`
	Source     string    `json:"source,omitempty"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published, retained, on vibrant/health.
type HealthMessage struct {
	Bridge         string       `json:"bridge"`
	Timestamp      time.Time    `json:"timestamp"`
	Status         HealthStatus `json:"status"`
	Version        string       `json:"version"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	OutputsManaged int          `json:"outputs_managed"`
	Reason         string       `json:"reason,omitempty"`
}

// NewAckMessage creates a successful acknowledgment for a command.
func NewAckMessage(cmd CommandMessage) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Output:    cmd.Output,
		Status:    AckAccepted,
	}
}

// NewAckError creates a failed acknowledgment for a command.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := NewAckMessage(cmd)
	ack.Status = AckFailed
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewStateMessage creates a state message from an applied change.
func NewStateMessage(c saturation.Change) StateMessage {
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return StateMessage{
		Output:     c.Output,
		Timestamp:  ts.UTC(),
		Backend:    c.Backend,
		Saturation: c.Saturation,
		Source:     c.Source,
	}
}

// NewHealthMessage creates a health message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, outputs int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		OutputsManaged: outputs,
	}
}

// ensureID fills in a command ID so the ack can always be correlated.
func ensureID(cmd *CommandMessage) {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
}

// saturationParam extracts the saturation parameter. JSON numbers decode as
// float64; anything else is rejected.
func saturationParam(params map[string]any) (float64, bool) {
	v, ok := params[ParamSaturation]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
