package shelf

import (
	"os"
	"time"

	json "github.com/goccy/go-json"
)

const manifestVersion = "1.0"

// Manifest is a collection's persistent metadata record. Unknown fields
// round-trip: Manifest decodes into a generic map first, lifts out the
// fields it knows about, and keeps the rest in extra so a future version
// (or an external collaborator) that adds fields never loses them on the
// next save — the same "decode generic, extract known, preserve the
// rest" shape the teacher's header uses for its fixed-width record,
// generalized here to a growable JSON object.
type Manifest struct {
	Version     string `json:"version"`
	Collection  string `json:"collection"`
	Strict      bool   `json:"strict"`
	CreatedAt   string `json:"created_at"`
	DocCount    int    `json:"doc_count"`
	SchemaCount int    `json:"schema_count"`
	SchemaID    string `json:"schema_id,omitempty"`

	extra map[string]any
}

func newManifest(collection string, strict bool) *Manifest {
	return &Manifest{
		Version:    manifestVersion,
		Collection: collection,
		Strict:     strict,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// MarshalJSON re-merges extra's unknown fields with the known fields on
// every write so round-tripping a manifest written by a newer version
// never drops data.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+7)
	for k, v := range m.extra {
		out[k] = v
	}
	out["version"] = m.Version
	out["collection"] = m.Collection
	out["strict"] = m.Strict
	out["created_at"] = m.CreatedAt
	out["doc_count"] = m.DocCount
	out["schema_count"] = m.SchemaCount
	if m.SchemaID != "" {
		out["schema_id"] = m.SchemaID
	} else {
		delete(out, "schema_id")
	}
	return json.Marshal(out)
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := decodeGeneric(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["version"].(string); ok {
		m.Version = v
	}
	if v, ok := raw["collection"].(string); ok {
		m.Collection = v
	}
	if v, ok := raw["strict"].(bool); ok {
		m.Strict = v
	}
	if v, ok := raw["created_at"].(string); ok {
		m.CreatedAt = v
	}
	if v, ok := raw["doc_count"]; ok {
		m.DocCount = intFromJSON(v)
	}
	if v, ok := raw["schema_count"]; ok {
		m.SchemaCount = intFromJSON(v)
	}
	if v, ok := raw["schema_id"].(string); ok {
		m.SchemaID = v
	}
	for _, known := range []string{"version", "collection", "strict", "created_at", "doc_count", "schema_count", "schema_id"} {
		delete(raw, known)
	}
	m.extra = raw
	return nil
}

func intFromJSON(v any) int {
	n, ok := toFloat(v)
	if !ok {
		return 0
	}
	return int(n)
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := decodeGeneric(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

func saveManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
