package scene

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/iancoleman/orderedmap"
)

// JSON returns the on-disk form of the value: plain JSON scalars and
// containers, with raw expressions stored as {"__raw__": text}.
func (v Value) JSON() any {
	switch v.Kind {
	case KindNone:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString, KindSkip:
		return v.Str
	case KindRaw:
		raw := orderedmap.New()
		raw.Set(RawKey, v.Str)
		return raw
	case KindList, KindTuple:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = item.JSON()
		}
		if v.Kind == KindTuple {
			tuple := orderedmap.New()
			tuple.Set(TupleKey, items)
			return tuple
		}
		return items
	case KindDict:
		dict := orderedmap.New()
		for i, key := range v.Keys {
			if key.Kind != KindString {
				// JSON objects only carry string keys.
				return Raw(v.Python()).JSON()
			}
			dict.Set(key.Str, v.Items[i].JSON())
		}
		return dict
	}
	return nil
}

// FromJSON converts a decoded JSON value back into a property value.
func FromJSON(data any) Value {
	switch v := data.(type) {
	case nil:
		return None()
	case bool:
		return Bool(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return Int(int64(v))
		}
		return Float(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		f, _ := v.Float64()
		return Float(f)
	case int:
		return Int(int64(v))
	case int64:
		return Int(v)
	case string:
		return Text(v)
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = FromJSON(item)
		}
		return List(items...)
	case orderedmap.OrderedMap:
		return fromOrderedMap(&v)
	case *orderedmap.OrderedMap:
		return fromOrderedMap(v)
	case map[string]any:
		ordered := orderedmap.New()
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			ordered.Set(key, v[key])
		}
		return fromOrderedMap(ordered)
	}
	return None()
}

func fromOrderedMap(m *orderedmap.OrderedMap) Value {
	keys := m.Keys()
	if len(keys) == 1 {
		marked, _ := m.Get(keys[0])
		switch keys[0] {
		case RawKey:
			if text, ok := marked.(string); ok {
				return Raw(text)
			}
		case TupleKey:
			if items, ok := marked.([]any); ok {
				return Tuple(FromJSON(items).Items...)
			}
		}
	}

	dictKeys := make([]Value, len(keys))
	dictValues := make([]Value, len(keys))
	for i, key := range keys {
		value, _ := m.Get(key)
		dictKeys[i] = String(key)
		dictValues[i] = FromJSON(value)
	}
	return Dict(dictKeys, dictValues)
}

// Builds properties from one decoded store entry.
func propertiesFromJSON(m *orderedmap.OrderedMap) Properties {
	props := NewProperties()
	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		props.Set(key, FromJSON(value))
	}
	return props
}

func propertiesToJSON(props *Properties) *orderedmap.OrderedMap {
	m := orderedmap.New()
	for _, key := range props.Keys() {
		value, _ := props.Get(key)
		m.Set(key, value.JSON())
	}
	return m
}

// MarshalJSON writes the properties as a JSON object in key order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	return json.Marshal(propertiesToJSON(p))
}
