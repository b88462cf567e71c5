// Package otel bridges authflow client metrics onto an OpenTelemetry
// meter via observable instruments. Register once per client; Close
// unregisters the callback.
package otel
