package domain

import "strings"

// Dynamic field suffixes used by the index naming convention.
const (
	GeoJSONFieldSuffix = "_geojson"
	TextFieldSuffix    = "_text"
)

// Field is one dynamic field of a search record.
type Field struct {
	Key   string
	Value string
}

// SearchRecord is a single result from the search backend. Fields keep the
// order in which the backend reported them.
type SearchRecord struct {
	ID     string
	Fields []Field
}

// Get returns the value of the field with the given key.
func (r SearchRecord) Get(key string) (string, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// FieldsWithSuffix returns, in order, the fields whose key ends with suffix.
func (r SearchRecord) FieldsWithSuffix(suffix string) []Field {
	var out []Field
	for _, f := range r.Fields {
		if strings.HasSuffix(f.Key, suffix) {
			out = append(out, f)
		}
	}
	return out
}

// TextValues returns the text-suffixed fields as a key/value map.
func (r SearchRecord) TextValues() map[string]string {
	out := make(map[string]string)
	for _, f := range r.FieldsWithSuffix(TextFieldSuffix) {
		out[f.Key] = f.Value
	}
	return out
}

// Identity is what a composite record identifier encodes.
type Identity struct {
	Prefix   string
	EntityID string
	Type     string
}

// ParseIdentifier splits "<prefix>_<entityId>_<type>".
//
// Type is everything after the last underscore and EntityID everything
// strictly between the first and the last one, so "1_2_3_Point" yields
// entity "2_3".
func ParseIdentifier(id string) (Identity, error) {
	first := strings.IndexByte(id, '_')
	last := strings.LastIndexByte(id, '_')
	if first < 0 || first == last {
		return Identity{}, &MalformedIdentifierError{Identifier: id}
	}
	return Identity{
		Prefix:   id[:first],
		EntityID: id[first+1 : last],
		Type:     id[last+1:],
	}, nil
}

// FieldCode strips the dynamic suffix from a field key
// ("coordonnee_geojson" -> "coordonnee"). Keys without an underscore are
// returned unchanged.
func FieldCode(key string) string {
	if i := strings.LastIndexByte(key, '_'); i >= 0 {
		return key[:i]
	}
	return key
}
