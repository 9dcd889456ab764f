package stream

// Event names carried in the "event" field of every message.
const (
	EventReady     = "ready"
	EventReading   = "reading"
	EventError     = "error"
	EventHeartbeat = "heartbeat"
)

// Ready is sent once, right after the upgrade.
type Ready struct {
	Event  string `json:"event"`
	Window int    `json:"window"`
}

// Reading acknowledges one accepted value. Average is nil until the window
// has filled.
type Reading struct {
	Event   string   `json:"event"`
	Count   int      `json:"count"`
	Average *float64 `json:"average"`
}

// Error reports a rejected frame.
type Error struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// Heartbeat is broadcast to every client on each tick.
type Heartbeat struct {
	Event       string `json:"event"`
	Clients     int    `json:"clients"`
	GeneratedAt string `json:"generated_at"` // RFC3339
}

// inbound is the frame a client sends.
type inbound struct {
	Value any `json:"value"`
}
