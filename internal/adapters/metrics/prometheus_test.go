package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorWith(prometheus.NewRegistry(), "")

	c.IncBackendCalls("query", true)
	c.IncBackendCalls("query", false)
	c.IncBackendCalls("query", true)
	c.IncExports("parks", true)
	c.IncSkippedRecords("parse")
	c.IncSkippedRecords("parse")
	c.IncIconLookups("batch", false)
	c.IncIconLookups("shared", true)
	c.SetLayersConfigured(4)
	c.ObserveBackendDuration("query", 10*time.Millisecond)
	c.IncStorageOperations("write", true)
	c.ObserveStorageDuration("write", time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"backend success", testutil.ToFloat64(c.backendCalls.WithLabelValues("query", "success")), 2},
		{"backend error", testutil.ToFloat64(c.backendCalls.WithLabelValues("query", "error")), 1},
		{"exports", testutil.ToFloat64(c.exports.WithLabelValues("parks", "success")), 1},
		{"skipped", testutil.ToFloat64(c.skippedRecords.WithLabelValues("parse")), 2},
		{"batch misses", testutil.ToFloat64(c.iconLookups.WithLabelValues("batch", "miss")), 1},
		{"batch hits", testutil.ToFloat64(c.iconLookups.WithLabelValues("batch", "hit")), 0},
		{"shared hits", testutil.ToFloat64(c.iconLookups.WithLabelValues("shared", "hit")), 1},
		{"layers", testutil.ToFloat64(c.layersConfigured), 4},
		{"storage", testutil.ToFloat64(c.storageOperations.WithLabelValues("write", "success")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	c := NewCollectorWith(prometheus.NewRegistry(), "test")

	router := mux.NewRouter()
	router.Use(c.Middleware)
	router.HandleFunc("/api/v1/layers/{layerId}/points", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/layers/"+id+"/points", nil))
	}

	got := testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/layers/{layerId}/points", "4xx"))
	if got != 3 {
		t.Errorf("requests for route template = %v, want 3", got)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		301: "3xx",
		429: "4xx",
		502: "5xx",
		42:  "unknown",
	}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}
