// Package metrics counts HTTP traffic and validation failures for
// thermavg-server and exposes them in the Prometheus exposition format.
//
// Registry.Middleware wraps the server mux: every request is counted by
// route, method and status code, timed, and logged at debug level. Paths
// outside the registered route set are counted under route="other".
// Metrics live on a private prometheus.Registry together with the Go
// runtime and process collectors. Registry.ServeHTTP serves GET /metrics
// through promhttp, which negotiates text or protobuf encoding.
//
// Families:
//
//	thermavg_http_requests_total{route,method,code}      counter
//	thermavg_http_request_duration_seconds{route}        histogram
//	thermavg_validation_failures_total{kind}             counter
//	thermavg_stream_clients                              gauge
//	thermavg_start_time_seconds                          gauge
package metrics
