// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/geofacet/internal/domain"
)

// EnvPrefix prefixes every environment override (GEOFACET_SEARCH_HOST, ...).
const EnvPrefix = "GEOFACET"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Search  SearchConfig  `mapstructure:"search"`
	Layers  LayersConfig  `mapstructure:"layers"`
	Icons   IconsConfig   `mapstructure:"icons"`
	Export  ExportConfig  `mapstructure:"export"`
	Map     MapConfig     `mapstructure:"map"`
	TLS     TLSConfig     `mapstructure:"tls"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// SearchConfig holds the search backend and index field conventions.
type SearchConfig struct {
	Host         string   `mapstructure:"host"`
	APIKey       string   `mapstructure:"api_key"`
	Index        string   `mapstructure:"index"`
	TagField     string   `mapstructure:"tag_field"`
	UIDField     string   `mapstructure:"uid_field"`
	ResultLimit  int      `mapstructure:"result_limit"`
	FacetLimit   int      `mapstructure:"facet_limit"`
	MarkerFields []string `mapstructure:"marker_fields"`
}

// LayersConfig holds the layer configuration store settings.
type LayersConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite, postgres
	DSN          string `mapstructure:"dsn"`
	Migrate      bool   `mapstructure:"migrate"`
	Snapshot     string `mapstructure:"snapshot"` // optional YAML imported at startup
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// IconsConfig holds the icon catalog settings.
type IconsConfig struct {
	Catalog  string        `mapstructure:"catalog"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the shared icon cache settings. An empty address
// disables the cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ExportConfig holds export sink and schedule configuration.
type ExportConfig struct {
	Sink      string         `mapstructure:"sink"` // local, s3, azure, http
	Filename  string         `mapstructure:"filename"`
	LocalPath string         `mapstructure:"local_path"`
	S3        S3Config       `mapstructure:"s3"`
	Azure     AzureConfig    `mapstructure:"azure"`
	HTTP      HTTPConfig     `mapstructure:"http"`
	Schedule  ScheduleConfig `mapstructure:"schedule"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Prefix           string `mapstructure:"prefix"`
}

// HTTPConfig holds HTTP PUT sink configuration.
type HTTPConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
}

// ScheduleConfig holds the periodic export settings. A zero interval
// disables the schedule.
type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Layers   []string      `mapstructure:"layers"`
}

// MapConfig holds map rendering settings.
type MapConfig struct {
	LimitVertex int `mapstructure:"limit_vertex"`
}

// TLSConfig holds TLS/CertMagic configuration.
type TLSConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Domains  []string     `mapstructure:"domains"`
	Email    string       `mapstructure:"email"`
	CacheDir string       `mapstructure:"cache_dir"`
	Staging  bool         `mapstructure:"staging"` // Use Let's Encrypt staging
	DNS      TLSDNSConfig `mapstructure:"dns"`
}

// TLSDNSConfig holds the Azure DNS settings for DNS-01 challenges.
type TLSDNSConfig struct {
	SubscriptionID string `mapstructure:"subscription_id"`
	ResourceGroup  string `mapstructure:"resource_group"`
	ClientID       string `mapstructure:"client_id"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values on v.
func Defaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors.allowed_origins", []string{})

	// Search defaults
	v.SetDefault("search.host", "http://localhost:7700")
	v.SetDefault("search.index", "geofacet")
	v.SetDefault("search.tag_field", "DataLayer_text")
	v.SetDefault("search.uid_field", "uid")
	v.SetDefault("search.result_limit", 1000)
	v.SetDefault("search.facet_limit", 100)
	v.SetDefault("search.marker_fields", []string{})

	// Layer store defaults
	v.SetDefault("layers.driver", "sqlite")
	v.SetDefault("layers.dsn", "./data/layers.db")
	v.SetDefault("layers.migrate", true)

	// Icon defaults
	v.SetDefault("icons.catalog", "./config/icons.yaml")
	v.SetDefault("icons.watch", true)
	v.SetDefault("icons.debounce", 500*time.Millisecond)
	v.SetDefault("icons.redis.ttl", time.Hour)

	// Export defaults
	v.SetDefault("export.sink", "local")
	v.SetDefault("export.filename", domain.DefaultExportFilename)
	v.SetDefault("export.local_path", "./exports")
	v.SetDefault("export.http.timeout", time.Minute)
	v.SetDefault("export.schedule.interval", time.Duration(0))
	v.SetDefault("export.schedule.layers", []string{})

	// Map defaults
	v.SetDefault("map.limit_vertex", 500)

	// TLS defaults
	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.cache_dir", "./.certmagic")
	v.SetDefault("tls.staging", false)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load loads configuration from defaults, an optional config file and the
// environment, in increasing precedence. Flags bound to v win over all three.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	Defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/geofacet")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func invalid(field, format string, args ...any) error {
	return &domain.ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", "invalid port %d", c.Server.Port)
	}

	if c.Search.Host == "" {
		return invalid("search.host", "search backend host is required")
	}
	if c.Search.Index == "" {
		return invalid("search.index", "search index is required")
	}
	if c.Search.ResultLimit < 0 {
		return invalid("search.result_limit", "must not be negative")
	}
	if c.Search.FacetLimit < 0 {
		return invalid("search.facet_limit", "must not be negative")
	}

	switch c.Layers.Driver {
	case "sqlite", "postgres":
	default:
		return invalid("layers.driver", "unknown driver %q", c.Layers.Driver)
	}
	if c.Layers.DSN == "" {
		return invalid("layers.dsn", "layer store DSN is required")
	}

	if c.Export.Filename == "" || strings.ContainsAny(c.Export.Filename, `/\`) {
		return invalid("export.filename", "must be a plain file name")
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	if c.Export.Schedule.Interval < 0 {
		return invalid("export.schedule.interval", "must not be negative")
	}
	if c.Export.Schedule.Interval > 0 && len(c.Export.Schedule.Layers) == 0 {
		return invalid("export.schedule.layers", "scheduled export needs at least one layer")
	}

	if c.Map.LimitVertex < 0 {
		return invalid("map.limit_vertex", "must not be negative")
	}

	if c.TLS.Enabled {
		if len(c.TLS.Domains) == 0 {
			return invalid("tls.domains", "TLS enabled but no domains specified")
		}
		if c.TLS.Email == "" {
			return invalid("tls.email", "TLS enabled but no email specified")
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return invalid("logging.format", "unknown format %q", c.Logging.Format)
	}

	return nil
}

func (c *Config) validateSink() error {
	switch c.Export.Sink {
	case "local":
		if c.Export.LocalPath == "" {
			return invalid("export.local_path", "local export path is required")
		}
	case "s3":
		if c.Export.S3.Bucket == "" {
			return invalid("export.s3.bucket", "S3 bucket is required")
		}
		if c.Export.S3.Region == "" {
			return invalid("export.s3.region", "S3 region is required")
		}
	case "azure":
		if c.Export.Azure.Container == "" {
			return invalid("export.azure.container", "azure container is required")
		}
		if c.Export.Azure.AccountName == "" && c.Export.Azure.ConnectionString == "" {
			return invalid("export.azure", "azure account name or connection string is required")
		}
	case "http":
		if c.Export.HTTP.BaseURL == "" {
			return invalid("export.http.base_url", "HTTP base URL is required")
		}
	default:
		return invalid("export.sink", "unknown sink type %q", c.Export.Sink)
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
