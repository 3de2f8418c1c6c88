package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/vibrant/internal/infrastructure/mqtt"
)

func TestHealthDetermineStatus(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		outputs   int
		want      HealthStatus
	}{
		{"healthy", true, 2, HealthHealthy},
		{"mqtt down", false, 2, HealthDegraded},
		{"no outputs", true, 0, HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewMockMQTTClient()
			client.connected = tt.connected
			h := NewHealthReporter(HealthReporterConfig{
				Publisher: client,
				Outputs:   func() int { return tt.outputs },
			})

			got, _ := h.determineStatus()
			if got != tt.want {
				t.Errorf("determineStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHealthPublishesPeriodically(t *testing.T) {
	client := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "desk",
		Version:   "1.2.3",
		Interval:  10 * time.Millisecond,
		Publisher: client,
		Outputs:   func() int { return 1 },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for len(client.messagesOn(mqtt.Topics{}.Health())) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h.Stop()

	msgs := client.messagesOn(mqtt.Topics{}.Health())
	if len(msgs) < 3 {
		t.Fatalf("published %d health messages, want at least 3", len(msgs))
	}

	var first HealthMessage
	if err := json.Unmarshal(msgs[0].Payload, &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.Bridge != "desk" || first.Version != "1.2.3" || first.Status != HealthHealthy || first.OutputsManaged != 1 {
		t.Errorf("health = %+v", first)
	}
	if !msgs[0].Retained {
		t.Error("health not retained")
	}
}

func TestHealthDefaultInterval(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if h.interval != defaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, defaultHealthInterval)
	}
	if err := h.PublishNow(); err != nil {
		t.Errorf("PublishNow() without publisher error = %v", err)
	}
}
