// Package metrics defines the Recorder interface the daemon reports through,
// with a no-op default and a Prometheus implementation behind metrics_addr.
package metrics
