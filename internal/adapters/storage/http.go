package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPStorage implements output.ExportSink against a WebDAV-style server
// accepting PUT uploads.
type HTTPStorage struct {
	client   *http.Client
	baseURL  string
	username string
	password string
}

// HTTPConfig holds HTTP sink configuration.
type HTTPConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
}

// NewHTTPStorage creates a new HTTP sink.
func NewHTTPStorage(cfg HTTPConfig) *HTTPStorage {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}

	return &HTTPStorage{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
	}
}

func (s *HTTPStorage) newRequest(ctx context.Context, method, key string, body io.Reader) (*http.Request, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/"+cleaned, body)
	if err != nil {
		return nil, err
	}
	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	return req, nil
}

// Write uploads content with PUT.
func (s *HTTPStorage) Write(ctx context.Context, key string, content []byte) error {
	req, err := s.newRequest(ctx, http.MethodPut, key, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ExportContentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload returned status %d for %s", resp.StatusCode, key)
	}
	return nil
}

// Open returns a reader for the given object.
func (s *HTTPStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	req, err := s.newRequest(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, key)
	}
	return resp.Body, nil
}

// Exists checks if an object exists via a HEAD request.
func (s *HTTPStorage) Exists(ctx context.Context, key string) (bool, error) {
	req, err := s.newRequest(ctx, http.MethodHead, key, nil)
	if err != nil {
		return false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("HEAD returned status %d for %s", resp.StatusCode, key)
	}
}
