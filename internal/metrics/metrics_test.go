package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistersMetrics(t *testing.T) {
	m := New("proteus")

	m.CacheHits.WithLabelValues("IF-MIB", "ifEntry").Inc()
	m.LivePolls.WithLabelValues("IF-MIB", "ifEntry").Inc()
	m.PollDuration.WithLabelValues("IF-MIB", "ifEntry").Observe(0.25)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 3 {
		t.Errorf("Expected 3 metric families with samples, got %d", len(families))
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New("proteus")
	m.CacheMisses.WithLabelValues("IF-MIB", "ifEntry").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "proteus_cache_misses_total") {
		t.Errorf("Metric missing from handler output:\n%s", body)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a := New("proteus")
	b := New("proteus")

	a.CacheHits.WithLabelValues("IF-MIB", "ifEntry").Inc()

	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("Expected empty registry, got %d families", len(families))
	}
}
