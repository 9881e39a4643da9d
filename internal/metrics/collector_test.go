package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter_IncAndValue(t *testing.T) {
	c := NewMetricsCollector()
	ctr := c.Counter("test_total", "test counter", "")
	ctr.Inc()
	ctr.Add(2)
	if ctr.Value() != 3 {
		t.Fatalf("expected 3, got %d", ctr.Value())
	}
}

func TestCounter_SameNameSameInstance(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("dup_total", "x", "")
	b := c.Counter("dup_total", "x", "")
	a.Inc()
	if b.Value() != 1 {
		t.Fatal("same name should return the same counter")
	}
}

func TestHistogram_Observe(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("lat_seconds", "latency", "", []float64{1, 5})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(10)

	if h.count != 3 {
		t.Fatalf("expected count 3, got %d", h.count)
	}
	if h.buckets[0].count != 1 || h.buckets[1].count != 2 {
		t.Fatalf("unexpected bucket counts: %+v", h.buckets)
	}
}

func TestHandler_RendersPrometheusText(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("viv_test_total", "a test counter", "").Add(7)
	c.Gauge("viv_test_gauge", "a test gauge", "").Set(42)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "# TYPE viv_test_total counter") {
		t.Fatalf("missing counter TYPE line: %q", body)
	}
	if !strings.Contains(body, "viv_test_total 7") {
		t.Fatalf("missing counter sample: %q", body)
	}
	if !strings.Contains(body, "viv_test_gauge 42") {
		t.Fatalf("missing gauge sample: %q", body)
	}
	if !strings.Contains(body, "vivekabot_uptime_seconds") {
		t.Fatalf("missing uptime metric: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
