package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/geofacet/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("an explicit missing config file should fail")
	}

	t.Chdir(t.TempDir())
	cfg, err = Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Search.TagField != "DataLayer_text" || cfg.Search.UIDField != "uid" || cfg.Search.FacetLimit != 100 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Export.Filename != domain.DefaultExportFilename || cfg.Export.Sink != "local" {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Export.Schedule.Interval != 0 {
		t.Errorf("schedule should be disabled by default, got %v", cfg.Export.Schedule.Interval)
	}
	if cfg.Icons.Redis.TTL != time.Hour {
		t.Errorf("icons.redis.ttl = %v", cfg.Icons.Redis.TTL)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
search:
  host: http://meili:7700
  index: carto
  marker_fields: [addr_text, name_text]
layers:
  driver: postgres
  dsn: postgres://geo@db/geo?sslmode=disable
export:
  schedule:
    interval: 1h
    layers: [parks]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEOFACET_SERVER_PORT", "9090")
	t.Setenv("GEOFACET_SEARCH_INDEX", "override")

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("env should override port, got %d", cfg.Server.Port)
	}
	if cfg.Search.Index != "override" {
		t.Errorf("env should override file, got %q", cfg.Search.Index)
	}
	if cfg.Search.Host != "http://meili:7700" || len(cfg.Search.MarkerFields) != 2 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Layers.Driver != "postgres" {
		t.Errorf("layers.driver = %q", cfg.Layers.Driver)
	}
	if cfg.Export.Schedule.Interval != time.Hour || cfg.Export.Schedule.Layers[0] != "parks" {
		t.Errorf("schedule = %+v", cfg.Export.Schedule)
	}
}

func validConfig() Config {
	return Config{
		Server:  ServerConfig{Port: 8080},
		Search:  SearchConfig{Host: "http://localhost:7700", Index: "geofacet"},
		Layers:  LayersConfig{Driver: "sqlite", DSN: ":memory:"},
		Export:  ExportConfig{Sink: "local", LocalPath: "./exports", Filename: domain.DefaultExportFilename},
		Logging: LoggingConfig{Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"search host", func(c *Config) { c.Search.Host = "" }, "search.host"},
		{"facet limit", func(c *Config) { c.Search.FacetLimit = -1 }, "search.facet_limit"},
		{"driver", func(c *Config) { c.Layers.Driver = "mysql" }, "layers.driver"},
		{"dsn", func(c *Config) { c.Layers.DSN = "" }, "layers.dsn"},
		{"filename with path", func(c *Config) { c.Export.Filename = "../x.json" }, "export.filename"},
		{"sink", func(c *Config) { c.Export.Sink = "ftp" }, "export.sink"},
		{"s3 bucket", func(c *Config) { c.Export.Sink = "s3" }, "export.s3.bucket"},
		{"azure", func(c *Config) { c.Export.Sink = "azure"; c.Export.Azure.Container = "c" }, "export.azure"},
		{"http", func(c *Config) { c.Export.Sink = "http" }, "export.http.base_url"},
		{"schedule without layers", func(c *Config) { c.Export.Schedule.Interval = time.Minute }, "export.schedule.layers"},
		{"tls domains", func(c *Config) { c.TLS.Enabled = true; c.TLS.Email = "a@b.c" }, "tls.domains"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	valid := validConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestCORSEnabled(t *testing.T) {
	c := CORSConfig{}
	if c.Enabled() {
		t.Error("empty CORS config should be disabled")
	}
	c.AllowedOrigins = []string{"*"}
	if !c.Enabled() {
		t.Error("CORS with origins should be enabled")
	}
}
