// Package metrics defines the Prometheus metrics of reference extraction runs
// and exports them for the node exporter textfile collector.
package metrics
