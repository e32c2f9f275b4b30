package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the shape carried by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is a loosely shaped answer: user submissions and stored correct answers
// arrive as a string, a number, a boolean, an ordered id list or a keyed map.
// The zero Value is null (unanswered).
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	Bool   bool
	List   []string
	Map    map[string]string
}

func Text(s string) Value           { return Value{Kind: KindText, Text: s} }
func Number(n float64) Value        { return Value{Kind: KindNumber, Number: n} }
func Bool(b bool) Value             { return Value{Kind: KindBool, Bool: b} }
func List(items ...string) Value    { return Value{Kind: KindList, List: items} }
func Map(m map[string]string) Value { return Value{Kind: KindMap, Map: m} }

// IsNull reports whether v carries no answer.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsBlank reports whether v is null or a whitespace-only string.
func (v Value) IsBlank() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(v.Text) == ""
	}
	return false
}

// Equal is strict equality: kinds must match.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindText:
		return v.Text == o.Text
	case KindNumber:
		return v.Number == o.Number
	case KindBool:
		return v.Bool == o.Bool
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, a := range v.Map {
			if b, ok := o.Map[k]; !ok || a != b {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for display and for comparisons against text.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindList:
		return strings.Join(v.List, ",")
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+v.Map[k])
		}
		return strings.Join(parts, ",")
	}
	return ""
}

// Interface returns v as the generic shape produced by encoding/json.
func (v Value) Interface() any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number
	case KindBool:
		return v.Bool
	case KindList:
		out := make([]any, len(v.List))
		for i, s := range v.List {
			out[i] = s
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, s := range v.Map {
			out[k] = s
		}
		return out
	}
	return nil
}

// ValueOf converts a decoded JSON value into a Value. Scalars inside lists and
// maps are stringified; nested containers are rejected.
func ValueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return Text(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case []string:
		return List(t...), nil
	case map[string]string:
		return Map(t), nil
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := scalarString(item)
			if !ok {
				return Value{}, fmt.Errorf("list element of type %T not supported", item)
			}
			items = append(items, s)
		}
		return List(items...), nil
	case map[string]any:
		m := make(map[string]string, len(t))
		for k, item := range t {
			s, ok := scalarString(item)
			if !ok {
				return Value{}, fmt.Errorf("map entry %q of type %T not supported", k, item)
			}
			m[k] = s
		}
		return Map(m), nil
	}
	return Value{}, fmt.Errorf("value of type %T not supported", raw)
}

func scalarString(raw any) (string, bool) {
	switch t := raw.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	}
	return "", false
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// MarshalYAML lets yaml.v3 print the underlying shape.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}
