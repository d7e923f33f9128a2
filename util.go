package shelf

import (
	"reflect"

	json "github.com/goccy/go-json"
)

// toFloat normalizes the numeric encodings a Document value may carry
// (json.Number from the log, or a plain Go number supplied by a caller
// building a predicate/projection in memory) into a float64 for
// comparison. ok is false for non-numeric or unparsable values.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	default:
		return 0, false
	}
}

// valuesEqual compares a and b for equality, treating any combination of
// json.Number and native Go numeric types as equal when their numeric
// value matches, and falling back to reflect.DeepEqual otherwise.
func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// cloneDoc makes a shallow copy of doc so a pending write returned from
// Get cannot be mutated by the caller out from under the collection.
func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// featureTag classifies a decoded value the way a map-style dataset's
// Features() reports inferred column types: "string", "bool", "int64",
// "float64", "list", "dict", "null", or "object".
func featureTag(v any) string {
	switch t := v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number:
		if isIntegerLiteral(string(t)) {
			return "int64"
		}
		return "float64"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	case nil:
		return "null"
	default:
		return "object"
	}
}
