// Package metrics exposes proxy activity in the Prometheus exposition format.
//
// A Collector owns its own prometheus.Registry so that tests and embedded
// proxies never collide on the global default registry.
//
// Metrics:
//
//   - mockroute_requests_total: requests handled (labels: disposition, method, status)
//   - mockroute_request_duration_seconds: time to respond, delays included (labels: disposition)
//   - mockroute_upstream_errors_total: failed outbound calls (labels: target)
//   - mockroute_config_reloads_total: configuration reload attempts (labels: result)
//
// RegisterRuntime adds Go runtime and process metrics to the same registry.
//
// # Usage
//
//	collector := metrics.NewCollector(nil)
//	collector.ObserveRequest("forward-to-remote", "GET", 200, elapsed)
//	http.Handle("/metrics", collector.Handler())
//
// All Collector methods are safe on a nil receiver, which records nothing.
package metrics
