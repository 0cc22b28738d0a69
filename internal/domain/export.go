package domain

import "time"

// DefaultExportFilename is the file name of a layer export.
const DefaultExportFilename = "ExtractCartoLayer.json"

// ExportResult describes one written layer export.
type ExportResult struct {
	SessionID  string    `json:"session_id"`
	LayerID    string    `json:"layer_id"`
	Key        string    `json:"key"`
	Features   int       `json:"features"`
	Skipped    int       `json:"skipped"`
	Bytes      int       `json:"bytes"`
	ExportedAt time.Time `json:"exported_at"`
}
