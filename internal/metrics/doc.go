// Package metrics writes the outcome of an SLA run in Prometheus text
// exposition format, for collection via node_exporter's textfile collector.
// The file is written atomically (temp file + rename) so a scrape never
// sees a partial write.
package metrics
