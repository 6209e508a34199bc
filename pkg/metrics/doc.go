// Package metrics provides Prometheus instrumentation for restflow
// components.
//
// A Registry bundles the collectors the request pipeline and the resource
// manager report into:
//
//   - restflow_request_requests_total: requests sent, by method
//   - restflow_request_errors_total: failed requests, by method and status
//   - restflow_request_duration_seconds: request latency, by method
//   - restflow_cache_hits_total / restflow_cache_misses_total
//   - restflow_throttle_wait_seconds: time spent waiting on the rate limiter
//   - restflow_identity_map_size: live instances per resource type
//
// Create one with a Prometheus registerer and an optional namespace
// overriding the default "restflow":
//
//	reg := metrics.NewRegistry(prometheus.DefaultRegisterer, "")
//
// All observer methods are safe on a nil *Registry, so instrumentation is
// optional throughout the library.
package metrics
