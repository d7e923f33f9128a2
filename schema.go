package shelf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// ExtractSchema walks a decoded document and returns its structural type
// tree: scalars become one of "string", "boolean", "integer", "number",
// "null", or "unknown"; mappings become a field-to-schema map; sequences
// become a single-element slice carrying the first element's schema, or
// an empty slice when the sequence itself is empty. Values, not just
// shapes, are discarded — two documents with the same field names and
// types but different content produce the same schema.
func ExtractSchema(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ExtractSchema(val)
		}
		return out
	case []any:
		if len(t) == 0 {
			return []any{}
		}
		return []any{ExtractSchema(t[0])}
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		if isIntegerLiteral(string(t)) {
			return "integer"
		}
		return "number"
	case float64:
		if t == float64(int64(t)) {
			return "integer"
		}
		return "number"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

func isIntegerLiteral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

// canonicalJSON renders v as compact JSON with every object's keys sorted
// lexicographically, so structurally identical schemas always produce
// byte-identical output regardless of field insertion order.
func canonicalJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := canonicalJSON(t[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := canonicalJSON(e)
			if err != nil {
				return nil, err
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(t)
	}
}

// Fingerprint returns the hex SHA-256 digest of doc's canonical schema.
// Documents with the same field names, nesting, and scalar kinds always
// fingerprint identically; differing values never affect the result.
//
// SHA-256 is the one concern in this module that stays on the standard
// library rather than one of the pack's hash libraries (xxh3, FNV,
// blake2b): the algorithm is pinned by the format itself, not a stylistic
// choice, so swapping it would silently change every stored fingerprint.
func Fingerprint(doc Document) (string, error) {
	schema := ExtractSchema(doc)
	canon, err := canonicalJSON(schema)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
