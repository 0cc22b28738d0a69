package geo

import (
	"bytes"
	"encoding/json"
)

// CRS84 is the coordinate reference system named in every collection.
const CRS84 = "urn:ogc:def:crs:OGC:1.3:CRS84"

const featureSeparator = ",\n"

// FeatureCollection wraps already encoded features into a FeatureCollection
// document. Features keep their order and are joined by a comma and a line
// break, with no separator after the last one. An empty input yields
// "features":[].
func FeatureCollection(features []string, name string) []byte {
	quotedName, _ := json.Marshal(name)

	var buf bytes.Buffer
	buf.WriteString("{\n")
	buf.WriteString("   \"type\":\"FeatureCollection\",\n")
	buf.WriteString("   \"name\":")
	buf.Write(quotedName)
	buf.WriteString(",\n")
	buf.WriteString("   \"crs\":{\n")
	buf.WriteString("      \"type\":\"name\",\n")
	buf.WriteString("      \"properties\":{\n")
	buf.WriteString("         \"name\":\"" + CRS84 + "\"\n")
	buf.WriteString("      }\n")
	buf.WriteString("   },\n")
	buf.WriteString("   \"features\":[")
	for i, f := range features {
		if i > 0 {
			buf.WriteString(featureSeparator)
		}
		buf.WriteString(f)
	}
	buf.WriteString("]\n}\n")
	return buf.Bytes()
}
