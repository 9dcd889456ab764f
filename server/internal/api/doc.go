// Package api implements the HTTP API for thermavg-server.
//
// New(banner, metrics, streams) returns an http.Handler that serves:
//
//	GET  /                         — plain-text banner
//	GET  /api/v1/health            — status, uptime, connected stream clients
//	GET  /api/v1/celsius?value=F   — Fahrenheit → Celsius (also POST {"value": F})
//	GET  /api/v1/fahrenheit?value=C — Celsius → Fahrenheit (also POST {"value": C})
//	POST /api/v1/moving-averages   — {"series": [...], "window": n}
//
// JSON endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for unsupported methods
//   - Return 400 {"error", "kind"} when input is rejected, where kind is
//     invalid_argument, out_of_range or bad_request (malformed body)
//
// Rejected inputs are counted in the metrics registry by kind. JSON types
// are defined in types.go. No external HTTP framework is used.
package api
