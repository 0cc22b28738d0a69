package application

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// countingMetrics records the storage and icon metrics it receives.
type countingMetrics struct {
	output.NoOpMetrics
	mu           sync.Mutex
	storageOps   map[string]int
	storageTimes map[string]int
	iconLookups  map[string]int // by cache layer
}

func (m *countingMetrics) IncStorageOperations(op string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storageOps == nil {
		m.storageOps = make(map[string]int)
	}
	m.storageOps[op]++
}

func (m *countingMetrics) ObserveStorageDuration(op string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storageTimes == nil {
		m.storageTimes = make(map[string]int)
	}
	m.storageTimes[op]++
}

func (m *countingMetrics) IncIconLookups(cache string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.iconLookups == nil {
		m.iconLookups = make(map[string]int)
	}
	m.iconLookups[cache]++
}

// mockBackend implements output.SearchBackend for testing.
type mockBackend struct {
	mu       sync.Mutex
	records  map[string][]domain.SearchRecord // by expression
	faceted  map[string]*domain.FacetedResult // by expression
	queryErr error
	pingErr  error

	queries        []string
	limits         []int
	facetedQueries []domain.FacetedQuery
}

func (m *mockBackend) Query(_ context.Context, expression string, limit int) ([]domain.SearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, expression)
	m.limits = append(m.limits, limit)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.records[expression], nil
}

func (m *mockBackend) FacetedQuery(_ context.Context, q domain.FacetedQuery) (*domain.FacetedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facetedQueries = append(m.facetedQueries, q)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if r, ok := m.faceted[q.Expression]; ok {
		return r, nil
	}
	return &domain.FacetedResult{}, nil
}

func (m *mockBackend) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockBackend) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// mockIcons implements output.IconLookup for testing.
type mockIcons struct {
	mu    sync.Mutex
	calls map[domain.IconKey]int
	err   error
}

func (m *mockIcons) ResolveIcon(_ context.Context, typ, iconID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[domain.IconKey]int)
	}
	m.calls[domain.IconKey{Type: typ, IconID: iconID}]++
	if m.err != nil {
		return "", m.err
	}
	if iconID == "" {
		return "/images/" + strings.ToLower(typ) + "/default.png", nil
	}
	return "/images/" + strings.ToLower(typ) + "/" + iconID + ".png", nil
}

func (m *mockIcons) callCount(typ, iconID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[domain.IconKey{Type: typ, IconID: iconID}]
}

// mockFields implements FieldLookup for testing.
type mockFields struct {
	values map[string]string
	err    error
	calls  int
}

func (m *mockFields) FieldValues(_ context.Context, _, _ string) (map[string]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.values, nil
}

// mockLayers implements output.LayerRepository for testing.
type mockLayers struct {
	layers     map[string]domain.LayerConfig
	order      []string
	layerTypes map[string]domain.LayerType
	maps       map[string]domain.MapTemplate
	mapLayers  map[string][]string        // map id -> layer ids
	bindings   map[string]domain.MapLayer // "<map id>/<layer id>"
	editable   map[string]string          // map id -> layer id
	basemaps   map[string]domain.Basemap
	listErr    error
}

func (m *mockLayers) ListLayers(_ context.Context) ([]domain.LayerConfig, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.LayerConfig, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.layers[id])
	}
	return out, nil
}

func (m *mockLayers) FindLayerConfig(_ context.Context, id string) (*domain.LayerConfig, error) {
	l, ok := m.layers[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "data layer", ID: id, Err: domain.ErrLayerNotFound}
	}
	return &l, nil
}

func (m *mockLayers) FindLayerType(_ context.Context, id string) (*domain.LayerType, error) {
	lt, ok := m.layerTypes[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "layer type", ID: id, Err: domain.ErrLayerTypeNotFound}
	}
	return &lt, nil
}

func (m *mockLayers) FindMapTemplate(_ context.Context, id string) (*domain.MapTemplate, error) {
	mt, ok := m.maps[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "map", ID: id, Err: domain.ErrMapNotFound}
	}
	return &mt, nil
}

func (m *mockLayers) ListMapLayers(_ context.Context, mapID string) ([]domain.LayerConfig, error) {
	var out []domain.LayerConfig
	for _, id := range m.mapLayers[mapID] {
		out = append(out, m.layers[id])
	}
	return out, nil
}

func (m *mockLayers) FindMapLayer(_ context.Context, mapID, layerID string) (*domain.MapLayer, error) {
	b, ok := m.bindings[mapID+"/"+layerID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "map layer", ID: mapID + "/" + layerID}
	}
	return &b, nil
}

func (m *mockLayers) FindEditableLayer(_ context.Context, mapID string) (*domain.LayerConfig, error) {
	id, ok := m.editable[mapID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "editable layer", ID: mapID, Err: domain.ErrLayerNotFound}
	}
	l := m.layers[id]
	return &l, nil
}

func (m *mockLayers) FindBasemap(_ context.Context, id string) (*domain.Basemap, error) {
	b, ok := m.basemaps[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "basemap", ID: id, Err: domain.ErrBasemapNotFound}
	}
	return &b, nil
}

// mockSink implements output.ExportSink for testing.
type mockSink struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writeErr error
}

func (m *mockSink) Write(_ context.Context, key string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = append([]byte(nil), content...)
	return nil
}

func (m *mockSink) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(m.objects[key])), nil
}

func (m *mockSink) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

// mockExporter implements input.ExportService for testing.
type mockExporter struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

func (m *mockExporter) ExportLayer(_ context.Context, layerID string) (*domain.ExportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, layerID)
	if err := m.fail[layerID]; err != nil {
		return nil, err
	}
	return &domain.ExportResult{LayerID: layerID, Key: layerID + "/" + domain.DefaultExportFilename}, nil
}

func (m *mockExporter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ output.SearchBackend = (*mockBackend)(nil)
var _ output.LayerRepository = (*mockLayers)(nil)
var _ output.ExportSink = (*mockSink)(nil)
