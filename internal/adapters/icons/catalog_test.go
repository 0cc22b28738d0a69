package icons

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/geofacet/internal/domain"
)

const testCatalog = `
default: /images/default.png
types:
  Point:
    default: /images/point/default.png
    icons:
      park: /images/point/park.png
      shop: /images/point/shop.png
  polygon:
    icons:
      zone: /images/polygon/zone.png
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "icons.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCatalogResolveIcon(t *testing.T) {
	c, err := NewCatalog(writeCatalog(t, testCatalog), testLogger())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	tests := []struct {
		name   string
		typ    string
		iconID string
		want   string
	}{
		{"exact icon", "Point", "park", "/images/point/park.png"},
		{"type is case insensitive", "point", "shop", "/images/point/shop.png"},
		{"unknown icon uses type default", "Point", "bench", "/images/point/default.png"},
		{"empty icon uses type default", "Point", "", "/images/point/default.png"},
		{"type without default uses global default", "Polygon", "lake", "/images/default.png"},
		{"unknown type uses global default", "Polyline", "route", "/images/default.png"},
		{"polygon icon", "Polygon", "zone", "/images/polygon/zone.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ResolveIcon(context.Background(), tt.typ, tt.iconID)
			if err != nil {
				t.Fatalf("ResolveIcon() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveIcon(%q, %q) = %q, want %q", tt.typ, tt.iconID, got, tt.want)
			}
		})
	}
}

func TestCatalogWithoutDefaults(t *testing.T) {
	c, err := NewCatalog(writeCatalog(t, "types:\n  point:\n    icons:\n      park: /p.png\n"), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.ResolveIcon(context.Background(), "Point", "bench")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveIcon() error = %v, want ErrNotFound", err)
	}
}

func TestCatalogReload(t *testing.T) {
	path := writeCatalog(t, testCatalog)
	c, err := NewCatalog(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("default: /images/other.png\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got, _ := c.ResolveIcon(context.Background(), "Point", "park"); got != "/images/other.png" {
		t.Errorf("after reload ResolveIcon() = %q", got)
	}

	// A broken file keeps the previous catalog.
	if err := os.WriteFile(path, []byte("types: [::"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := c.Reload(); !errors.Is(err, domain.ErrParse) {
		t.Errorf("Reload() error = %v, want ErrParse", err)
	}
	if got, _ := c.ResolveIcon(context.Background(), "Point", "park"); got != "/images/other.png" {
		t.Errorf("after failed reload ResolveIcon() = %q", got)
	}
}

func TestNewCatalogMissingFile(t *testing.T) {
	_, err := NewCatalog(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("NewCatalog() error = %v, want StorageError", err)
	}
}
