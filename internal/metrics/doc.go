// Package metrics records packaging outcomes in a Prometheus registry.
//
// The packager is a short-lived command, so metrics are not scraped over HTTP.
// Instead the registry is written to a node-exporter textfile after each run.
package metrics
