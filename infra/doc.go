// Package infra contains technical adapters: store backends, the MQTT
// outcome publisher, metrics sinks and Sentry monitoring. These packages
// should depend only on the interfaces defined in the core packages.
package infra
