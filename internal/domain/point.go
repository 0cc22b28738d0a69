package domain

// PointModel is the export-ready unit built from one geometry field of one
// search record. It is assembled once and never mutated.
type PointModel struct {
	Geometry   string     `json:"geojson"`
	EntityID   string     `json:"id"`
	FieldCode  string     `json:"code"`
	Type       string     `json:"type"`
	LayerTitle string     `json:"data_layer_title,omitempty"`
	Popup      *string    `json:"data_layer_popup,omitempty"`
	Binding    *MapLayer  `json:"layer_properties,omitempty"`
	LayerType  *LayerType `json:"layer_type,omitempty"`
}

// HasLayer returns true if the point was built with a layer configuration.
func (p *PointModel) HasLayer() bool {
	return p.Popup != nil
}

// PopupText returns the resolved popup, or "" when there is none.
func (p *PointModel) PopupText() string {
	if p.Popup == nil {
		return ""
	}
	return *p.Popup
}
