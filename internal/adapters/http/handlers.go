package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/geofacet/internal/application"
	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/geo"
)

const maxGeometryBody = 1 << 20

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.services.Health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":        boolToStatus(details.Healthy),
		"ready":         details.Ready,
		"layers_loaded": details.LayersLoaded,
		"components":    details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.services.Health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.services.Health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListLayers returns all configured data layers.
func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	layers, err := s.services.Points.ListLayers(r.Context())
	if err != nil {
		s.handleServiceError(w, "list layers", err)
		return
	}

	response := make([]map[string]interface{}, len(layers))
	for i := range layers {
		response[i] = formatLayer(&layers[i])
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"layers": response,
		"count":  len(layers),
	})
}

// handleLayerPoints returns the point models of one layer.
func (s *Server) handleLayerPoints(w http.ResponseWriter, r *http.Request) {
	layerID := mux.Vars(r)["layerId"]

	points, err := s.services.Points.LayerPoints(r.Context(), layerID)
	if err != nil {
		s.handleServiceError(w, "layer points", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"layer_id": layerID,
		"points":   points,
		"count":    len(points),
	})
}

// handleExportLayer writes the export of one layer to the sink.
func (s *Server) handleExportLayer(w http.ResponseWriter, r *http.Request) {
	layerID := mux.Vars(r)["layerId"]

	result, err := s.services.Exports.ExportLayer(r.Context(), layerID)
	if err != nil {
		s.handleServiceError(w, "export layer", err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleDownloadExport streams a written export from the sink.
func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	rc, err := s.services.Downloads.OpenExport(r.Context(), key)
	if err != nil {
		s.handleServiceError(w, "download export", err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("export download interrupted", "key", key, "error", err)
	}
}

// handleRunExports triggers a scheduled export run.
func (s *Server) handleRunExports(w http.ResponseWriter, r *http.Request) {
	if s.services.Scheduler == nil {
		s.writeError(w, http.StatusNotFound, "Export scheduler not available")
		return
	}

	result, err := s.services.Scheduler.TriggerExport(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
			return
		}
		s.logger.Error("export run failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Export run failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleLoadMap returns the rendering model of a map.
func (s *Server) handleLoadMap(w http.ResponseWriter, r *http.Request) {
	mapID := mux.Vars(r)["mapId"]

	view, err := s.services.Maps.LoadMap(r.Context(), mapID)
	if err != nil {
		s.handleServiceError(w, "load map", err)
		return
	}

	s.writeJSON(w, http.StatusOK, formatMapView(view))
}

// handleMarkerDescriptions lists the markers usable in a layer's popup template.
func (s *Server) handleMarkerDescriptions(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		s.writeError(w, http.StatusBadRequest, "tag parameter required")
		return
	}

	markers, err := s.services.Markers.MarkerDescriptions(r.Context(), tag)
	if err != nil {
		s.handleServiceError(w, "marker descriptions", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tag":     tag,
		"markers": markers,
		"count":   len(markers),
	})
}

// handleMarkerValues returns the marker values of one record.
func (s *Server) handleMarkerValues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag, uid := q.Get("tag"), q.Get("uid")
	if tag == "" || uid == "" {
		s.writeError(w, http.StatusBadRequest, "tag and uid parameters required")
		return
	}

	markers, err := s.services.Markers.MarkerValues(r.Context(), tag, uid)
	if err != nil {
		s.handleServiceError(w, "marker values", err)
		return
	}

	values := make(map[string]string, len(markers))
	for _, m := range markers {
		values[m.ID] = m.Value
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tag":    tag,
		"uid":    uid,
		"values": values,
	})
}

// GeometryRequest is the body of a geometry build request.
type GeometryRequest struct {
	Kind        string   `json:"kind"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Address     string   `json:"address,omitempty"`
	Coordinates string   `json:"coordinates,omitempty"`
}

// handleBuildGeometry encodes a geometry drawn by a client.
func (s *Server) handleBuildGeometry(w http.ResponseWriter, r *http.Request) {
	var req GeometryRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxGeometryBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := buildGeometry(req)
	if err != nil {
		s.handleServiceError(w, "build geometry", err)
		return
	}

	encoded, err := geo.Encode(g)
	if err != nil {
		s.handleServiceError(w, "build geometry", err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, encoded)
}

func buildGeometry(req GeometryRequest) (domain.Geometry, error) {
	kind, err := domain.ParseGeometryKind(req.Kind)
	if err != nil {
		return domain.Geometry{}, err
	}

	if kind != domain.KindPoint {
		g, err := geo.DecodePolygon(req.Coordinates, kind)
		if err != nil {
			return domain.Geometry{}, err
		}
		for _, c := range g.Path {
			if err := c.Validate(); err != nil {
				return domain.Geometry{}, err
			}
		}
		g.Properties.Address = req.Address
		return g, nil
	}

	if req.X == nil || req.Y == nil {
		return domain.Geometry{}, &domain.ValidationError{
			Field:      "x,y",
			Constraint: "required",
			Message:    "a point needs x and y",
		}
	}
	c := domain.NewCoordinate(*req.X, *req.Y)
	if err := c.Validate(); err != nil {
		return domain.Geometry{}, err
	}
	return domain.NewPoint(c, domain.GeometryProperties{Address: req.Address}), nil
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// handleSwaggerUI serves a Swagger UI page for the OpenAPI document.
func (s *Server) handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, swaggerUIPage)
}

func formatLayer(l *domain.LayerConfig) map[string]interface{} {
	return map[string]interface{}{
		"id":             l.ID,
		"tag":            l.Tag,
		"title":          l.Title,
		"popup_template": l.PopupTemplate,
		"editable":       l.Editable,
		"layer_type_id":  l.LayerTypeID,
		"created_at":     l.CreatedAt.Format(time.RFC3339),
	}
}

func formatMapView(v *domain.MapView) map[string]interface{} {
	center := v.Map.Center()
	out := map[string]interface{}{
		"map": map[string]interface{}{
			"id":          v.Map.ID,
			"title":       v.Map.Title,
			"description": v.Map.Description,
			"center":      center.Pair(),
			"zoom":        v.Map.Zoom,
		},
		"basemap_url":  v.BasemapURL,
		"limit_vertex": v.LimitVertex,
		"points":       v.Points,
		"count":        len(v.Points),
	}
	if v.Extent != nil {
		out["extent"] = map[string]float64{
			"min_lon": v.Extent.MinLon,
			"min_lat": v.Extent.MinLat,
			"max_lon": v.Extent.MaxLon,
			"max_lat": v.Extent.MaxLat,
		}
	}
	if v.EditableLayer != nil {
		out["editable_layer"] = formatLayer(v.EditableLayer)
	}
	return out
}

// handleServiceError maps domain errors to HTTP status codes.
func (s *Server) handleServiceError(w http.ResponseWriter, op string, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrParse):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case isBackendError(err):
		s.logger.Error(op+" failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "Search backend unavailable")
	default:
		s.logger.Error(op+" failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Request failed")
	}
}

func isBackendError(err error) bool {
	var backendErr *domain.BackendError
	return errors.As(err, &backendErr) || errors.Is(err, domain.ErrUnavailable)
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
