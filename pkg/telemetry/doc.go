// Package telemetry configures structured logging and Prometheus metrics for
// launchforge. Logging is zerolog throughout; metrics are registered on a
// private registry and exposed only when a caller asks for them.
package telemetry
