package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"command", topics.Command("DP-1"), "vibrant/command/DP-1"},
		{"command subscribe", topics.CommandSubscribe(), "vibrant/command/+"},
		{"ack", topics.Ack("HDMI-0"), "vibrant/ack/HDMI-0"},
		{"state", topics.State("eDP-1"), "vibrant/state/eDP-1"},
		{"health", topics.Health(), "vibrant/health"},
		{"status", topics.Status(), "vibrant/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestOutputFromTopic(t *testing.T) {
	tests := []struct {
		topic  string
		output string
		ok     bool
	}{
		{"vibrant/command/DP-1", "DP-1", true},
		{"vibrant/state/HDMI-A-0", "HDMI-A-0", true},
		{"vibrant/ack/eDP-1", "eDP-1", true},
		{"vibrant/health", "", false},
		{"vibrant/command/", "", false},
		{"vibrant/other/DP-1", "", false},
		{"lights/command/DP-1", "", false},
		{"vibrant/command/DP-1/extra", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			output, ok := OutputFromTopic(tt.topic)
			if output != tt.output || ok != tt.ok {
				t.Errorf("OutputFromTopic(%q) = %q, %v; want %q, %v", tt.topic, output, ok, tt.output, tt.ok)
			}
		})
	}
}
