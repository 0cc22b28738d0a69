package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobrunner/geofacet/internal/config"
)

func TestOriginHost(t *testing.T) {
	tests := map[string]string{
		"https://maps.example.org":          "maps.example.org",
		"https://maps.example.org:8443":     "maps.example.org",
		"http://localhost:3000":             "localhost",
		"https://maps.example.org/a/b":      "maps.example.org",
		"maps.example.org":                  "maps.example.org",
		"http://192.168.1.1:8080":           "192.168.1.1",
		"https://deep.tiles.example.org:80": "deep.tiles.example.org",
	}
	for origin, want := range tests {
		if got := originHost(origin); got != want {
			t.Errorf("originHost(%q) = %q, want %q", origin, got, want)
		}
	}
}

func TestMatchOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		pattern string
		want    bool
	}{
		{"https://maps.example.org", "https://maps.example.org", true},
		{"http://maps.example.org", "https://maps.example.org", false},
		{"https://maps.example.org:8080", "https://maps.example.org:9090", false},
		{"https://maps.example.org", "*.example.org", true},
		{"https://a.b.example.org", "*.example.org", true},
		{"https://example.org", "*.example.org", false},
		{"https://notexample.org", "*.example.org", false},
		{"https://anything.test", "*", true},
		{"", "https://maps.example.org", false},
	}
	for _, tt := range tests {
		if got := matchOrigin(tt.origin, tt.pattern); got != tt.want {
			t.Errorf("matchOrigin(%q, %q) = %v, want %v", tt.origin, tt.pattern, got, tt.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "allowed GET",
			origins:    []string{"https://maps.example.org"},
			origin:     "https://maps.example.org",
			method:     http.MethodGet,
			wantOrigin: "https://maps.example.org",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "allowed preflight",
			origins:    []string{"*.example.org"},
			origin:     "https://editor.example.org",
			method:     http.MethodOptions,
			wantOrigin: "https://editor.example.org",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "foreign origin",
			origins:    []string{"https://maps.example.org"},
			origin:     "https://evil.test",
			method:     http.MethodPost,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "no origin",
			origins:    []string{"https://maps.example.org"},
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{config: config.ServerConfig{CORS: config.CORSConfig{AllowedOrigins: tt.origins}}}

			nextCalled := false
			handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/v1/layers", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if nextCalled != tt.wantNext {
				t.Errorf("next called = %v, want %v", nextCalled, tt.wantNext)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" {
				if got := rr.Header().Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
					t.Errorf("Allow-Methods = %q", got)
				}
				if got := rr.Header().Get("Vary"); got != "Origin" {
					t.Errorf("Vary = %q", got)
				}
			}
		})
	}
}
