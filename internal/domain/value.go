package domain

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the variants an attribute value can hold.
type ValueKind int

const (
	kindInvalid ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindStringList
)

// Value is a single session attribute: a string, number, boolean or list of
// strings. Progress indicators, story context and personality adaptations are
// all maps of these, which keeps merge semantics well-defined and lets one
// JSON codec serve both the Redis cache and the database columns.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

// String creates a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// StringList creates a string-list value
func StringList(ss []string) Value { return Value{kind: KindStringList, list: ss} }

// Kind returns the variant held by the value
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload and whether the value holds one
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the numeric payload and whether the value holds one
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the boolean payload and whether the value holds one
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsStringList returns the list payload and whether the value holds one
func (v Value) AsStringList() ([]string, bool) {
	return v.list, v.kind == KindStringList
}

// MarshalJSON writes the value as a plain JSON scalar or string array.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindStringList:
		if v.list == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.list)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON reads a plain JSON scalar or string array back into the
// matching variant. Anything else (objects, nested or mixed arrays, null) is
// rejected so malformed payloads are caught at the boundary.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return fmt.Errorf("unsupported attribute value: null")
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil && list != nil {
		*v = StringList(list)
		return nil
	}
	return fmt.Errorf("unsupported attribute value: %s", string(data))
}

// Attrs is an open mapping of session attributes keyed by name.
type Attrs map[string]Value

// Merge overwrites the receiver's entries key-wise with those of other. The
// receiver must be non-nil.
func (a Attrs) Merge(other Attrs) {
	for k, v := range other {
		a[k] = v
	}
}

// Clone returns a shallow copy. A nil map clones to an empty one.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// GetString returns the string at key, or the empty string if the key is
// absent or holds a different variant.
func (a Attrs) GetString(key string) string {
	s, _ := a[key].AsString()
	return s
}
