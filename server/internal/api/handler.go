package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/thermavg/thermavg/server/internal/conversion"
	"github.com/thermavg/thermavg/server/internal/metrics"
)

// Route paths served by Handler.
const (
	RouteRoot           = "/"
	RouteHealth         = "/api/v1/health"
	RouteCelsius        = "/api/v1/celsius"
	RouteFahrenheit     = "/api/v1/fahrenheit"
	RouteMovingAverages = "/api/v1/moving-averages"
)

// Routes lists every path Handler serves, for metrics labelling.
var Routes = []string{RouteRoot, RouteHealth, RouteCelsius, RouteFahrenheit, RouteMovingAverages}

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 1 << 20

// kindBadRequest labels bodies that are not valid JSON.
const kindBadRequest = "bad_request"

// ClientCounter reports connected stream clients.
type ClientCounter interface {
	Count() int
}

// Handler is the HTTP handler for the banner and all /api/v1/* endpoints.
type Handler struct {
	banner  string
	metrics *metrics.Registry
	streams ClientCounter
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes. streams may be nil when
// the stream endpoint is not mounted.
func New(banner string, reg *metrics.Registry, streams ClientCounter) *Handler {
	h := &Handler{banner: banner, metrics: reg, streams: streams, mux: http.NewServeMux()}

	h.mux.HandleFunc(RouteRoot, h.root) // subtree, catches everything unmatched
	h.mux.HandleFunc(RouteHealth, h.health)
	h.mux.HandleFunc(RouteCelsius, h.convert(conversion.ToCelsius, "celsius"))
	h.mux.HandleFunc(RouteFahrenheit, h.convert(conversion.ToFahrenheit, "fahrenheit"))
	h.mux.HandleFunc(RouteMovingAverages, h.movingAverages)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// root returns GET /, the informational banner.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != RouteRoot {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.banner)) //nolint:errcheck
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: h.metrics.Uptime().Seconds(),
	}
	if h.streams != nil {
		resp.StreamClients = h.streams.Count()
	}
	jsonResp(w, http.StatusOK, resp)
}

// convert builds the handler for one temperature conversion. GET reads
// ?value=, POST reads {"value": x}.
func (h *Handler) convert(fn func(float64) (float64, error), unit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			v   float64
			err error
		)
		switch r.Method {
		case http.MethodGet:
			v, err = queryValue(r)
		case http.MethodPost:
			var req valueRequest
			if !h.decode(w, r, &req) {
				return
			}
			v, err = conversion.Number(req.Value)
		default:
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err != nil {
			h.reject(w, err)
			return
		}

		out, err := fn(v)
		if err != nil {
			h.reject(w, err)
			return
		}
		jsonResp(w, http.StatusOK, ConversionResponse{Input: v, Result: out, Unit: unit})
	}
}

// movingAverages returns POST /api/v1/moving-averages. The series is
// validated before the window.
func (h *Handler) movingAverages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req movingAveragesRequest
	if !h.decode(w, r, &req) {
		return
	}

	series, err := conversion.Series(req.Series)
	if err != nil {
		h.reject(w, err)
		return
	}
	window, err := conversion.Window(req.Window)
	if err != nil {
		h.reject(w, err)
		return
	}
	avgs, err := conversion.MovingAverages(series, window)
	if err != nil {
		h.reject(w, err)
		return
	}
	jsonResp(w, http.StatusOK, MovingAveragesResponse{Window: window, Averages: avgs})
}

// --- helpers ----------------------------------------------------------------

// queryValue parses ?value= as a float. Missing or unparseable values are
// invalid arguments; "NaN" and "Inf" parse and are rejected downstream.
func queryValue(r *http.Request) (float64, error) {
	q := r.URL.Query()
	if !q.Has("value") {
		return 0, fmt.Errorf("%w: query parameter value is required", conversion.ErrInvalidArgument)
	}
	raw := q.Get("value")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q is not a finite number", conversion.ErrInvalidArgument, raw)
	}
	return v, nil
}

// decode reads a JSON body into v. On failure it writes a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.metrics.ObserveFailure(kindBadRequest)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonResp(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large", Kind: kindBadRequest})
			return false
		}
		jsonResp(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body: " + err.Error(), Kind: kindBadRequest})
		return false
	}
	return true
}

// reject answers 400 for a validation error and counts it.
func (h *Handler) reject(w http.ResponseWriter, err error) {
	kind := conversion.Kind(err)
	if kind == "" {
		kind = kindBadRequest
	}
	h.metrics.ObserveFailure(kind)
	jsonResp(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: kind})
}

// jsonResp encodes v before touching the response, so a value that cannot
// be encoded becomes a 500 rather than an empty success.
func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("api: encode response", "err", err)
		code = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "internal error: response could not be encoded"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n')) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
