package grant

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Normalize converts v into its canonical stored form. Ordered documents keep
// their field order. Maps with string keys, of any value type, are converted
// to documents sorted by key. Slices and arrays are normalized element by
// element, except byte sequences which the driver encodes as binary.
// Everything else is returned unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bson.D:
		out := make(bson.D, len(val))
		for i, e := range val {
			out[i] = bson.E{Key: e.Key, Value: Normalize(e.Value)}
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return v
		}
		return sortedDoc(rv)
	case reflect.Slice:
		if rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		return normalizeList(rv)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		return normalizeList(rv)
	default:
		return v
	}
}

func sortedDoc(m reflect.Value) bson.D {
	keys := make([]string, 0, m.Len())
	values := make(map[string]any, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		values[k] = iter.Value().Interface()
	}
	sort.Strings(keys)

	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: Normalize(values[k])})
	}
	return out
}

func normalizeList(s reflect.Value) bson.A {
	out := make(bson.A, s.Len())
	for i := range out {
		out[i] = Normalize(s.Index(i).Interface())
	}
	return out
}

// isNil reports whether v is nil or a typed nil the driver would encode as
// null.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// reservedKey returns the first document key of the normalized value v that
// starts with '$', searching nested documents and arrays.
func reservedKey(v any) (string, bool) {
	switch val := v.(type) {
	case bson.D:
		for _, e := range val {
			if strings.HasPrefix(e.Key, "$") {
				return e.Key, true
			}
			if k, ok := reservedKey(e.Value); ok {
				return k, true
			}
		}
	case bson.A:
		for _, e := range val {
			if k, ok := reservedKey(e); ok {
				return k, true
			}
		}
	}
	return "", false
}

// Encode returns the relaxed Extended JSON encoding of the normalized value.
func Encode(v any) (string, error) {
	data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: Normalize(v)}}, false, false)
	if err != nil {
		return "", fmt.Errorf("failed to encode value %v: %w", v, err)
	}
	s := strings.TrimPrefix(string(data), `{"v":`)
	return strings.TrimSuffix(s, "}"), nil
}

// ParseValue parses an Extended JSON value. Object keys keep their source
// order.
func ParseValue(s string) (any, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(`{"v":`+s+`}`), false, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse value %q: %w", s, err)
	}
	if len(doc) != 1 {
		return nil, fmt.Errorf("failed to parse value %q: expected a single value", s)
	}
	return Normalize(doc[0].Value), nil
}

// ParseTriple parses a request body of the form
// {"identifier": ..., "action": ..., "target": ...}.
func ParseTriple(data []byte) (Triple, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return Triple{}, fmt.Errorf("failed to parse triple: %w", err)
	}

	var t Triple
	for _, e := range doc {
		switch e.Key {
		case "identifier":
			t.Identifier = Normalize(e.Value)
		case "action":
			t.Action = Normalize(e.Value)
		case "target":
			t.Target = Normalize(e.Value)
		default:
			return Triple{}, fmt.Errorf("failed to parse triple: unknown field %q", e.Key)
		}
	}
	return t, t.Validate()
}
