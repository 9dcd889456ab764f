package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	StreamClients int     `json:"stream_clients"`
}

// ConversionResponse is the payload for /api/v1/celsius and /api/v1/fahrenheit.
type ConversionResponse struct {
	Input  float64 `json:"input"`
	Result float64 `json:"result"`
	Unit   string  `json:"unit"` // unit of Result: "celsius" | "fahrenheit"
}

// MovingAveragesResponse is the payload for POST /api/v1/moving-averages.
type MovingAveragesResponse struct {
	Window   int       `json:"window"`
	Averages []float64 `json:"averages"`
}

// valueRequest is the POST body for the conversion endpoints. Value is left
// untyped so that strings and nulls reach the validator.
type valueRequest struct {
	Value any `json:"value"`
}

// movingAveragesRequest is the POST body for /api/v1/moving-averages.
type movingAveragesRequest struct {
	Series any `json:"series"`
	Window any `json:"window"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
