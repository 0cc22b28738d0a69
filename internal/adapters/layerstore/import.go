package layerstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jobrunner/geofacet/internal/domain"
)

// Snapshot is a YAML description of layers and maps loaded with Import.
type Snapshot struct {
	LayerTypes []LayerTypeEntry `yaml:"layer_types"`
	Layers     []LayerEntry     `yaml:"layers"`
	Basemaps   []BasemapEntry   `yaml:"basemaps"`
	Maps       []MapEntry       `yaml:"maps"`
}

// LayerTypeEntry describes a layer type.
type LayerTypeEntry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Kind  string `yaml:"kind"`
	Icon  string `yaml:"icon"`
}

// LayerEntry describes a data layer.
type LayerEntry struct {
	ID            string `yaml:"id"`
	Tag           string `yaml:"tag"`
	Title         string `yaml:"title"`
	PopupTemplate string `yaml:"popup_template"`
	Editable      bool   `yaml:"editable"`
	LayerType     string `yaml:"layer_type"`
}

// BasemapEntry describes a background tile layer.
type BasemapEntry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// MapEntry describes a map and its layer bindings. Bindings keep their list
// order.
type MapEntry struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Basemap     string         `yaml:"basemap"`
	Center      [2]float64     `yaml:"center"`
	Zoom        int            `yaml:"zoom"`
	Layers      []BindingEntry `yaml:"layers"`
}

// BindingEntry binds a layer to the enclosing map.
type BindingEntry struct {
	Layer     string  `yaml:"layer"`
	LayerType string  `yaml:"layer_type"`
	Color     string  `yaml:"color"`
	Thickness int     `yaml:"thickness"`
	Opacity   float64 `yaml:"opacity"`
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.StorageError{Operation: "read", Key: path, Err: err}
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, &domain.ParseError{Input: path, Reason: "invalid layer snapshot", Err: err}
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks identifiers, kinds and cross references.
func (s *Snapshot) Validate() error {
	types := make(map[string]bool, len(s.LayerTypes))
	for _, lt := range s.LayerTypes {
		if lt.ID == "" {
			return &domain.ValidationError{Field: "layer_types.id", Message: "must not be empty"}
		}
		if _, err := domain.ParseGeometryKind(lt.Kind); err != nil {
			return fmt.Errorf("layer type %s: %w", lt.ID, err)
		}
		types[lt.ID] = true
	}

	layers := make(map[string]bool, len(s.Layers))
	for _, l := range s.Layers {
		if l.ID == "" || l.Tag == "" {
			return &domain.ValidationError{Field: "layers", Value: l.ID, Message: "id and tag are required"}
		}
		if l.LayerType != "" && !types[l.LayerType] {
			return &domain.ValidationError{Field: "layers.layer_type", Value: l.LayerType, Message: "unknown layer type"}
		}
		layers[l.ID] = true
	}

	for _, m := range s.Maps {
		if m.ID == "" {
			return &domain.ValidationError{Field: "maps.id", Message: "must not be empty"}
		}
		for _, b := range m.Layers {
			if !layers[b.Layer] {
				return &domain.ValidationError{Field: "maps.layers.layer", Value: b.Layer, Message: "unknown layer"}
			}
			if !types[b.LayerType] {
				return &domain.ValidationError{Field: "maps.layers.layer_type", Value: b.LayerType, Message: "unknown layer type"}
			}
		}
	}
	return nil
}

// Import upserts every entry of the snapshot in one transaction. Bindings of
// the imported maps are replaced.
func (s *Store) Import(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Operation: "import", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, s.rebind(query), args...)
		return err
	}

	for _, lt := range snap.LayerTypes {
		if err := exec(`INSERT INTO layer_types (id, title, kind, icon) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET title = excluded.title, kind = excluded.kind, icon = excluded.icon`,
			lt.ID, lt.Title, lt.Kind, lt.Icon); err != nil {
			return &domain.StorageError{Operation: "import layer type", Key: lt.ID, Err: err}
		}
	}

	now := time.Now().UTC()
	for _, l := range snap.Layers {
		if err := exec(`INSERT INTO layers (id, tag, title, popup_template, editable, layer_type_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET tag = excluded.tag, title = excluded.title,
				popup_template = excluded.popup_template, editable = excluded.editable,
				layer_type_id = excluded.layer_type_id`,
			l.ID, l.Tag, l.Title, l.PopupTemplate, l.Editable, l.LayerType, now); err != nil {
			return &domain.StorageError{Operation: "import layer", Key: l.ID, Err: err}
		}
	}

	for _, b := range snap.Basemaps {
		if err := exec(`INSERT INTO basemaps (id, title, url) VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET title = excluded.title, url = excluded.url`,
			b.ID, b.Title, b.URL); err != nil {
			return &domain.StorageError{Operation: "import basemap", Key: b.ID, Err: err}
		}
	}

	for _, m := range snap.Maps {
		if err := exec(`INSERT INTO map_templates (id, title, description, basemap_id, center_lon, center_lat, zoom)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET title = excluded.title, description = excluded.description,
				basemap_id = excluded.basemap_id, center_lon = excluded.center_lon,
				center_lat = excluded.center_lat, zoom = excluded.zoom`,
			m.ID, m.Title, m.Description, m.Basemap, m.Center[0], m.Center[1], m.Zoom); err != nil {
			return &domain.StorageError{Operation: "import map", Key: m.ID, Err: err}
		}

		if err := exec(`DELETE FROM map_layers WHERE map_id = ?`, m.ID); err != nil {
			return &domain.StorageError{Operation: "import map layers", Key: m.ID, Err: err}
		}
		for pos, b := range m.Layers {
			if err := exec(`INSERT INTO map_layers (map_id, layer_id, layer_type_id, position, color, thickness, opacity)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				m.ID, b.Layer, b.LayerType, pos, b.Color, b.Thickness, b.Opacity); err != nil {
				return &domain.StorageError{Operation: "import map layer", Key: m.ID + "/" + b.Layer, Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Operation: "import", Err: err}
	}

	s.logger.Info("imported layer snapshot",
		"layer_types", len(snap.LayerTypes),
		"layers", len(snap.Layers),
		"basemaps", len(snap.Basemaps),
		"maps", len(snap.Maps),
	)
	return nil
}
