package shelf

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Document is a schemaless record: a tree of maps, slices, strings,
// booleans, numbers, and nil, decoded straight off the JSON wire format.
// Numbers decode as json.Number rather than float64 so integer and
// floating-point literals stay distinguishable for schema fingerprinting
// (see schema.go) and round-trip back to their original representation.
type Document = map[string]any

// marshalValue serializes v through the goccy/go-json fast backend.
// Record, history and document encoding go through this seam; manifest.go,
// schema.go and util.go also import goccy/go-json directly for indented
// output, canonical scalar encoding and the json.Number type.
func marshalValue(v any) ([]byte, error) {
	return json.Marshal(v)
}

// decodeDocument parses a single JSON object, preserving number literals
// as json.Number.
func decodeDocument(line []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeGeneric parses arbitrary JSON (not necessarily an object),
// preserving number literals, for use by the manifest's unknown-field
// round trip.
func decodeGeneric(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
