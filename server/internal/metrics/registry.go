package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "thermavg"

// otherRoute labels requests whose path is not a registered route.
const otherRoute = "other"

// Registry holds request and validation metrics on a private
// prometheus.Registry, so several servers (or tests) never share state.
//
// All exported methods are safe for concurrent use.
type Registry struct {
	routes map[string]struct{}
	start  time.Time
	now    func() time.Time // injectable for deterministic tests

	reg       *prometheus.Registry
	handler   http.Handler
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	failures  *prometheus.CounterVec

	mu            sync.RWMutex
	streamClients func() int
}

// New returns a Registry that labels requests by the given route paths.
// Go runtime and process collectors are registered alongside the
// service's own families.
func New(routes ...string) *Registry {
	r := &Registry{
		routes: make(map[string]struct{}, len(routes)),
		now:    time.Now,
		reg:    prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Rejected inputs by error kind.",
			},
			[]string{"kind"},
		),
	}
	for _, rt := range routes {
		r.routes[rt] = struct{}{}
	}
	r.start = r.now()

	startTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "start_time_seconds",
		Help:      "Unix time the server started.",
	})
	startTime.Set(float64(r.start.UnixNano()) / 1e9)

	clients := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Connected stream clients.",
	}, r.sampleStreamClients)

	r.reg.MustRegister(
		r.requests,
		r.durations,
		r.failures,
		startTime,
		clients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.handler = promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		ErrorLog:      errorLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
	return r
}

// Route maps a request path to its route label.
func (r *Registry) Route(path string) string {
	if _, ok := r.routes[path]; ok {
		return path
	}
	return otherRoute
}

// ObserveRequest records one completed request.
func (r *Registry) ObserveRequest(route, method string, code int, d time.Duration) {
	r.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	r.durations.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveFailure records one rejected input of the given kind
// ("invalid_argument", "out_of_range", "bad_request").
func (r *Registry) ObserveFailure(kind string) {
	r.failures.WithLabelValues(kind).Inc()
}

// SetStreamClients installs the function sampled for the stream client gauge.
func (r *Registry) SetStreamClients(fn func() int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streamClients = fn
}

func (r *Registry) sampleStreamClients() float64 {
	r.mu.RLock()
	fn := r.streamClients
	r.mu.RUnlock()
	if fn == nil {
		return 0
	}
	return float64(fn())
}

// Gather implements prometheus.Gatherer. Families with no samples yet are
// left out.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.reg.Gather()
}

// ServeHTTP serves GET /metrics in the format negotiated from the Accept header.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.handler.ServeHTTP(w, req)
}

// Uptime returns how long ago the registry was created.
func (r *Registry) Uptime() time.Duration {
	return r.now().Sub(r.start)
}

// errorLogger routes promhttp's gather and encode errors to slog.
type errorLogger struct{}

func (errorLogger) Println(v ...interface{}) {
	slog.Error("metrics: serve failed", "err", fmt.Sprint(v...))
}
