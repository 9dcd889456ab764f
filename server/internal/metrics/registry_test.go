package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// scrape serves GET /metrics from reg and parses the text exposition.
func scrape(t *testing.T, reg *Registry) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	reg.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v\n%s", err, rr.Body.String())
	}
	return mfs
}

// labelValue returns the value of the named label on m, or "".
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestRoute(t *testing.T) {
	reg := New("/", "/api/v1/celsius")
	if got := reg.Route("/api/v1/celsius"); got != "/api/v1/celsius" {
		t.Errorf("Route(celsius) = %q", got)
	}
	if got := reg.Route("/random/path"); got != "other" {
		t.Errorf("Route(unknown) = %q, want other", got)
	}
}

func TestGather_EmptyRegistry(t *testing.T) {
	reg := New()
	mfs := scrape(t, reg)

	if _, ok := mfs["thermavg_http_requests_total"]; ok {
		t.Error("requests family should be omitted before any request")
	}
	if _, ok := mfs["thermavg_start_time_seconds"]; !ok {
		t.Error("start_time family missing")
	}
	clients, ok := mfs["thermavg_stream_clients"]
	if !ok {
		t.Fatal("stream_clients family missing")
	}
	if v := clients.GetMetric()[0].GetGauge().GetValue(); v != 0 {
		t.Errorf("stream_clients: got %v, want 0", v)
	}
}

func TestObserveRequest_CountsByLabels(t *testing.T) {
	reg := New("/api/v1/celsius")
	reg.ObserveRequest("/api/v1/celsius", "GET", 200, 10*time.Millisecond)
	reg.ObserveRequest("/api/v1/celsius", "GET", 200, 30*time.Millisecond)
	reg.ObserveRequest("/api/v1/celsius", "GET", 400, time.Millisecond)

	mfs := scrape(t, reg)
	req := mfs["thermavg_http_requests_total"]
	if req == nil {
		t.Fatal("requests family missing")
	}
	if len(req.GetMetric()) != 2 {
		t.Fatalf("requests metrics: got %d, want 2", len(req.GetMetric()))
	}
	for _, m := range req.GetMetric() {
		want := 1.0
		if labelValue(m, "code") == "200" {
			want = 2
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Errorf("code=%s: got %v, want %v", labelValue(m, "code"), got, want)
		}
		if labelValue(m, "route") != "/api/v1/celsius" || labelValue(m, "method") != "GET" {
			t.Errorf("labels: got %v", m.GetLabel())
		}
	}

	dur := mfs["thermavg_http_request_duration_seconds"]
	if dur == nil {
		t.Fatal("duration family missing")
	}
	if dur.GetType() != dto.MetricType_HISTOGRAM {
		t.Errorf("duration type: got %v, want HISTOGRAM", dur.GetType())
	}
	h := dur.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 3 {
		t.Errorf("duration count: got %d, want 3", h.GetSampleCount())
	}
	if got := h.GetSampleSum(); got < 0.040 || got > 0.042 {
		t.Errorf("duration sum: got %v, want ≈0.041", got)
	}
	// 1ms and 10ms land in the 0.01 bucket; 30ms does not.
	for _, b := range h.GetBucket() {
		if b.GetUpperBound() == 0.01 && b.GetCumulativeCount() != 2 {
			t.Errorf("bucket le=0.01: got %d, want 2", b.GetCumulativeCount())
		}
	}
}

func TestObserveFailure(t *testing.T) {
	reg := New()
	reg.ObserveFailure("invalid_argument")
	reg.ObserveFailure("invalid_argument")
	reg.ObserveFailure("out_of_range")

	mfs := scrape(t, reg)
	f := mfs["thermavg_validation_failures_total"]
	if f == nil {
		t.Fatal("failures family missing")
	}
	got := map[string]float64{}
	for _, m := range f.GetMetric() {
		got[labelValue(m, "kind")] = m.GetCounter().GetValue()
	}
	if got["invalid_argument"] != 2 || got["out_of_range"] != 1 {
		t.Errorf("failures: got %v", got)
	}
}

func TestSetStreamClients(t *testing.T) {
	reg := New()
	reg.SetStreamClients(func() int { return 3 })
	mfs := scrape(t, reg)
	if v := mfs["thermavg_stream_clients"].GetMetric()[0].GetGauge().GetValue(); v != 3 {
		t.Errorf("stream_clients: got %v, want 3", v)
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	New().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestGather_IncludesRuntimeCollectors(t *testing.T) {
	mfs, err := New().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"go_goroutines", "thermavg_start_time_seconds", "thermavg_stream_clients"} {
		if !names[want] {
			t.Errorf("family %s missing", want)
		}
	}
}

func TestServeHTTP_Protobuf(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/vnd.google.protobuf;proto=io.prometheus.client.MetricFamily;encoding=delimited")
	New().ServeHTTP(rr, req)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/vnd.google.protobuf") {
		t.Errorf("Content-Type: got %q, want protobuf", ct)
	}
}

func TestUptime(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := New()
	reg.start = base
	reg.now = func() time.Time { return base.Add(90 * time.Second) }
	if got := reg.Uptime(); got != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", got)
	}
}
