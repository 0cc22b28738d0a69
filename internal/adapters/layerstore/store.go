// Package layerstore provides the SQL-backed layer and map configuration
// repository. SQLite and PostgreSQL are supported through database/sql.
package layerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/jobrunner/geofacet/internal/domain"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the database connection settings.
type Config struct {
	Driver       string
	DSN          string
	Migrate      bool
	MaxOpenConns int
	MaxIdleConns int
}

// Store implements output.LayerRepository on a SQL database.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the configured database and applies migrations when
// enabled.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	driverName, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: cfg.Driver, Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Operation: "ping", Key: cfg.Driver, Err: err}
	}

	s := New(db, cfg.Driver, logger)
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// New wraps an existing connection.
func New(db *sql.DB, driver string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		driver: driver,
		logger: logger.With("component", "layerstore"),
	}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverSQLite, "sqlite3":
		return "sqlite3", nil
	case DriverPostgres:
		return "postgres", nil
	default:
		return "", &domain.ConfigError{Field: "layers.driver", Message: fmt.Sprintf("unsupported driver %q", driver)}
	}
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

const (
	layerColumns    = `l.id, l.tag, l.title, l.popup_template, l.editable, l.layer_type_id, l.created_at`
	mapColumns      = `id, title, description, basemap_id, center_lon, center_lat, zoom`
	bindingColumns  = `map_id, layer_id, layer_type_id, color, thickness, opacity`
	layerTypeColumn = `id, title, kind, icon`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLayer(row rowScanner) (domain.LayerConfig, error) {
	var l domain.LayerConfig
	err := row.Scan(&l.ID, &l.Tag, &l.Title, &l.PopupTemplate, &l.Editable, &l.LayerTypeID, &l.CreatedAt)
	return l, err
}

func (s *Store) queryLayers(ctx context.Context, op, query string, args ...any) ([]domain.LayerConfig, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, &domain.StorageError{Operation: op, Err: err}
	}
	defer func() { _ = rows.Close() }()

	layers := []domain.LayerConfig{}
	for rows.Next() {
		l, err := scanLayer(rows)
		if err != nil {
			return nil, &domain.StorageError{Operation: op, Err: err}
		}
		layers = append(layers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Operation: op, Err: err}
	}
	return layers, nil
}

// ListLayers returns every data layer ordered by title.
func (s *Store) ListLayers(ctx context.Context) ([]domain.LayerConfig, error) {
	return s.queryLayers(ctx, "list layers",
		`SELECT `+layerColumns+` FROM layers l ORDER BY l.title, l.id`)
}

// FindLayerConfig returns a data layer by ID.
func (s *Store) FindLayerConfig(ctx context.Context, id string) (*domain.LayerConfig, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+layerColumns+` FROM layers l WHERE l.id = ?`), id)
	l, err := scanLayer(row)
	if err != nil {
		return nil, notFoundOr(err, "layer", id, domain.ErrLayerNotFound, "find layer")
	}
	return &l, nil
}

// FindLayerType returns a layer type by ID.
func (s *Store) FindLayerType(ctx context.Context, id string) (*domain.LayerType, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+layerTypeColumn+` FROM layer_types WHERE id = ?`), id)

	var (
		lt   domain.LayerType
		kind string
	)
	if err := row.Scan(&lt.ID, &lt.Title, &kind, &lt.Icon); err != nil {
		return nil, notFoundOr(err, "layer type", id, domain.ErrLayerTypeNotFound, "find layer type")
	}

	k, err := domain.ParseGeometryKind(kind)
	if err != nil {
		return nil, fmt.Errorf("layer type %s: %w", id, err)
	}
	lt.Kind = k
	return &lt, nil
}

// FindMapTemplate returns a map by ID.
func (s *Store) FindMapTemplate(ctx context.Context, id string) (*domain.MapTemplate, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+mapColumns+` FROM map_templates WHERE id = ?`), id)

	var m domain.MapTemplate
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.BasemapID, &m.CenterLon, &m.CenterLat, &m.Zoom); err != nil {
		return nil, notFoundOr(err, "map", id, domain.ErrMapNotFound, "find map")
	}
	return &m, nil
}

// ListMapLayers returns the data layers bound to a map in binding order.
func (s *Store) ListMapLayers(ctx context.Context, mapID string) ([]domain.LayerConfig, error) {
	return s.queryLayers(ctx, "list map layers",
		`SELECT `+layerColumns+` FROM layers l
		 JOIN map_layers ml ON ml.layer_id = l.id
		 WHERE ml.map_id = ?
		 ORDER BY ml.position, l.id`, mapID)
}

// FindMapLayer returns the binding of a data layer to a map.
func (s *Store) FindMapLayer(ctx context.Context, mapID, layerID string) (*domain.MapLayer, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+bindingColumns+` FROM map_layers WHERE map_id = ? AND layer_id = ?`),
		mapID, layerID)

	var b domain.MapLayer
	if err := row.Scan(&b.MapID, &b.LayerID, &b.LayerTypeID, &b.Color, &b.Thickness, &b.Opacity); err != nil {
		return nil, notFoundOr(err, "map layer", mapID+"/"+layerID, domain.ErrLayerNotFound, "find map layer")
	}
	return &b, nil
}

// FindEditableLayer returns the first editable data layer bound to a map.
func (s *Store) FindEditableLayer(ctx context.Context, mapID string) (*domain.LayerConfig, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+layerColumns+` FROM layers l
		 JOIN map_layers ml ON ml.layer_id = l.id
		 WHERE ml.map_id = ? AND l.editable = ?
		 ORDER BY ml.position, l.id
		 LIMIT 1`), mapID, true)

	l, err := scanLayer(row)
	if err != nil {
		return nil, notFoundOr(err, "editable layer", mapID, domain.ErrLayerNotFound, "find editable layer")
	}
	return &l, nil
}

// FindBasemap returns a basemap by ID.
func (s *Store) FindBasemap(ctx context.Context, id string) (*domain.Basemap, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, title, url FROM basemaps WHERE id = ?`), id)

	var b domain.Basemap
	if err := row.Scan(&b.ID, &b.Title, &b.URL); err != nil {
		return nil, notFoundOr(err, "basemap", id, domain.ErrBasemapNotFound, "find basemap")
	}
	return &b, nil
}

// CountLayers returns the number of configured data layers.
func (s *Store) CountLayers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM layers`).Scan(&n); err != nil {
		return 0, &domain.StorageError{Operation: "count layers", Err: err}
	}
	return n, nil
}

func notFoundOr(err error, kind, id string, sentinel error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Kind: kind, ID: id, Err: sentinel}
	}
	return &domain.StorageError{Operation: op, Key: id, Err: err}
}
