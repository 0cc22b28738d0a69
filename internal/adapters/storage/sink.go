package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

// Config selects and configures the export sink.
type Config struct {
	Type      output.StorageType
	LocalPath string
	S3        S3Config
	Azure     AzureConfig
	HTTP      HTTPConfig
}

// New creates the sink selected by cfg.Type.
func New(ctx context.Context, cfg Config) (output.ExportSink, error) {
	switch cfg.Type {
	case output.StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath), nil
	case output.StorageTypeS3:
		return NewS3Storage(ctx, cfg.S3)
	case output.StorageTypeAzure:
		return NewAzureStorage(cfg.Azure)
	case output.StorageTypeHTTP:
		return NewHTTPStorage(cfg.HTTP), nil
	default:
		return nil, &domain.ConfigError{Field: "export.sink", Message: fmt.Sprintf("unsupported sink type %q", cfg.Type)}
	}
}

// Instrumented records operation counts and durations of a sink.
type Instrumented struct {
	next    output.ExportSink
	metrics output.MetricsCollector
}

// NewInstrumented wraps next with metrics.
func NewInstrumented(next output.ExportSink, metrics output.MetricsCollector) *Instrumented {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &Instrumented{next: next, metrics: metrics}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	s.metrics.IncStorageOperations(op, err == nil)
	s.metrics.ObserveStorageDuration(op, time.Since(start))
}

// Write implements output.ExportSink.
func (s *Instrumented) Write(ctx context.Context, key string, content []byte) (err error) {
	defer func(start time.Time) { s.observe("write", start, err) }(time.Now())
	return s.next.Write(ctx, key, content)
}

// Open implements output.ExportSink.
func (s *Instrumented) Open(ctx context.Context, key string) (rc io.ReadCloser, err error) {
	defer func(start time.Time) { s.observe("open", start, err) }(time.Now())
	return s.next.Open(ctx, key)
}

// Exists implements output.ExportSink.
func (s *Instrumented) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer func(start time.Time) { s.observe("exists", start, err) }(time.Now())
	return s.next.Exists(ctx, key)
}
