// Package bridge exposes output saturation over MQTT.
//
// Remote clients publish a CommandMessage to vibrant/command/{output}. The
// bridge applies it through the saturation service, answers on
// vibrant/ack/{output} and publishes the resulting value, retained, on
// vibrant/state/{output}. Changes made through any other channel (CLI, HTTP)
// reach the same state topic through PublishChange.
//
// A HealthReporter publishes a retained message on vibrant/health at a fixed
// interval. The broker's LWT on vibrant/status covers unexpected exits.
package bridge
