package progress

import (
	"encoding/json"
	"math"

	"go.mongodb.org/mongo-driver/bson"
)

// SchemaVersion is stamped on every document the service writes.
const SchemaVersion = 2

const (
	FieldObjectID      = "_id"
	FieldUID           = "uid"
	FieldUpdated       = "updated"
	FieldTimeStamp     = "timeStamp"
	FieldSchemaVersion = "schemaVersion"
	FieldID            = "id"
)

// Document is a resource document as stored under its uid. Values are plain
// JSON/BSON values; nested objects may be map[string]any or bson.M.
type Document map[string]any

// Marker is the client supplied freshness clock. TimeStamp is zero when the
// client did not send one.
type Marker struct {
	Updated   int64 `json:"updated"`
	TimeStamp int64 `json:"timeStamp,omitempty"`
}

func (m Marker) HasTimeStamp() bool {
	return m.TimeStamp > 0
}

// MarkerOf reads the stored marker of doc. Missing values read as zero.
func MarkerOf(doc Document) Marker {
	updated, _ := Int64(doc[FieldUpdated])
	timeStamp, _ := Int64(doc[FieldTimeStamp])
	return Marker{Updated: updated, TimeStamp: timeStamp}
}

// Apply writes the marker fields into doc.
func (m Marker) Apply(doc Document) {
	doc[FieldUpdated] = m.Updated
	if m.HasTimeStamp() {
		doc[FieldTimeStamp] = m.TimeStamp
	}
}

// Int64 converts any integral number representation produced by the JSON or
// BSON decoders into an int64.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// AsMap returns v as a plain map when it is any kind of object value.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return m, true
	case bson.M:
		return m, true
	case bson.D:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	default:
		return nil, false
	}
}

// AsSlice returns v as a plain slice when it is any kind of array value.
func AsSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case bson.A:
		return s, true
	case []map[string]any:
		out := make([]any, 0, len(s))
		for _, e := range s {
			out = append(out, e)
		}
		return out, true
	default:
		return nil, false
	}
}

// SameID reports whether two element ids are equal, treating every integral
// numeric representation as the same value.
func SameID(a, b any) bool {
	if ai, ok := Int64(a); ok {
		bi, ok := Int64(b)
		return ok && ai == bi
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	return aok && bok && as == bs
}

// Clone deep copies a document so callers never share nested state.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return Document(cloneMap(doc))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := AsMap(v); ok {
		return cloneMap(m)
	}
	if s, ok := AsSlice(v); ok {
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
