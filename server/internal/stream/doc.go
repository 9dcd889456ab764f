// Package stream implements the WebSocket moving-average stream for
// thermavg-server.
//
// A client connects to /ws/stream?window=N (N defaults to the configured
// window and must lie in [2, max]; anything else is rejected with 400 before
// the upgrade). The hub answers with a "ready" message, then for every text
// frame of the form {"value": x}:
//
//	{"event": "reading", "count": k, "average": a}
//
// where count is the number of readings accepted so far and average is the
// rounded mean of the last N readings, or null until N have arrived.
// Readings that are not finite numbers produce
//
//	{"event": "error", "error": "..."}
//
// and are not added to the window. Every interval the hub broadcasts
//
//	{"event": "heartbeat", "clients": n, "generated_at": "<RFC3339>"}
//
// When API key auth is on, the handshake carries the key in the configured
// header or, for browser clients that cannot set headers, in the api_key
// query parameter: /ws/stream?window=N&api_key=KEY.
//
// New(defaultWindow, maxWindow, interval) creates a Hub. Hub.Run(ctx) drives
// the heartbeat and closes every connection when ctx is cancelled.
package stream
