// Package mqtt provides the MQTT client used by the vibrant bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and size checks
//   - Subscriptions that survive reconnects
//   - Last Will and Testament so subscribers see the daemon go offline
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) when the broker is not on localhost
//   - Supply credentials through VIBRANT_MQTT_USERNAME / VIBRANT_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.Hooks{Logger: log})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(mqtt.Topics{}.State("DP-1"), payload, 1, true)
package mqtt
