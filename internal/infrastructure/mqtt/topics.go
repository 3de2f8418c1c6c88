package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every vibrant topic.
//
// Hierarchy:
//
//	vibrant/command/{output}   commands to an output (subscribed)
//	vibrant/ack/{output}       command acknowledgements
//	vibrant/state/{output}     current saturation (retained)
//	vibrant/health             bridge health (retained)
//	vibrant/status             connection status and LWT (retained)
const TopicPrefix = "vibrant"

// Topics provides builders for vibrant MQTT topics.
type Topics struct{}

// Command returns the command topic for an output.
//
// Example: vibrant/command/DP-1
func (Topics) Command(output string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, output)
}

// CommandSubscribe matches the command topic of every output.
func (Topics) CommandSubscribe() string {
	return TopicPrefix + "/command/+"
}

// Ack returns the acknowledgement topic for an output.
func (Topics) Ack(output string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, output)
}

// State returns the retained state topic for an output.
func (Topics) State(output string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, output)
}

// Health returns the retained bridge health topic.
func (Topics) Health() string {
	return TopicPrefix + "/health"
}

// Status returns the retained connection status topic.
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// OutputFromTopic extracts the output name from a per-output topic such as
// vibrant/command/DP-1. It reports false for anything else.
func OutputFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[2] == "" {
		return "", false
	}
	switch parts[1] {
	case "command", "ack", "state":
		return parts[2], true
	default:
		return "", false
	}
}
