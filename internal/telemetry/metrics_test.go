package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// value returns the value of the single sample of family name whose labels
// include all of want.
func value(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	sample:
		for _, s := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range s.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue sample
				}
			}
			switch {
			case s.GetCounter() != nil:
				return s.GetCounter().GetValue()
			case s.GetGauge() != nil:
				return s.GetGauge().GetValue()
			case s.GetHistogram() != nil:
				return float64(s.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return 0
}

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.Tick(time.Millisecond, 0.42)
	m.Tick(time.Millisecond, 0.43)
	m.Arrival("Kitchen")
	m.LookupFailure()
	m.Publish("mqtt", nil)
	m.Publish("mqtt", errors.New("down"))
	m.Publish("mqtt", errors.New("down"))
	m.SetState(true, false)

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"homesim_ticks_total", nil, 2},
		{"homesim_tick_duration_seconds", nil, 2},
		{"homesim_progress", nil, 0.43},
		{"homesim_arrivals_total", map[string]string{"room": "Kitchen"}, 1},
		{"homesim_lookup_failures_total", nil, 1},
		{"homesim_actuator_publish_total", map[string]string{"sink": "mqtt", "result": "ok"}, 1},
		{"homesim_actuator_publish_total", map[string]string{"sink": "mqtt", "result": "error"}, 2},
		{"homesim_paused", nil, 1},
		{"homesim_halted", nil, 0},
	}
	for _, c := range checks {
		if got := value(t, m, c.name, c.labels); got != c.want {
			t.Errorf("%s%v = %v, want %v", c.name, c.labels, got, c.want)
		}
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.LookupFailure()
	if got := value(t, b, "homesim_lookup_failures_total", nil); got != 0 {
		t.Errorf("second registry saw %v failures", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Tick(time.Second, 1)
	m.Arrival("x")
	m.LookupFailure()
	m.Publish("log", nil)
	m.SetState(true, true)
	h := m.WrapHandler("/x", http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestWrapHandlerAndExposition(t *testing.T) {
	m := NewMetrics()
	h := m.WrapHandler("/api/v1/status", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if got := value(t, m, "homesim_http_requests_total", map[string]string{"route": "/api/v1/status", "status": "418"}); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "homesim_http_requests_total") {
		t.Error("exposition missing homesim_http_requests_total")
	}
}
