// Package scene holds the editable scene model: elements bound to catalog
// classes, their property values and the on-disk property store.
package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindTuple
	KindDict
	// Emitted verbatim instead of being quoted.
	KindRaw
	// Never emitted.
	KindSkip
)

// Property values carrying this marker are left out of generated calls.
const IgnoreMarker = "!ignore!"

// The single key of the on-disk raw expression object.
const RawKey = "__raw__"

// The single key of the on-disk tuple object. JSON arrays load as lists.
const TupleKey = "__tuple__"

// Value is a property value: a literal (scalar or container), a string, a
// raw expression or a skip marker.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	// String contents, raw expression text or the original skipped text.
	Str string
	// List and tuple items, dictionary values.
	Items []Value
	// Dictionary keys, parallel to Items.
	Keys []Value
}

func None() Value { return Value{Kind: KindNone} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Raw(expr string) Value { return Value{Kind: KindRaw, Str: expr} }
func Skip(text string) Value { return Value{Kind: KindSkip, Str: text} }
func List(items ...Value) Value { return Value{Kind: KindList, Items: items} }
func Tuple(items ...Value) Value { return Value{Kind: KindTuple, Items: items} }

func Dict(keys []Value, values []Value) Value {
	return Value{Kind: KindDict, Keys: keys, Items: values}
}

// Text builds a string value, honouring the ignore marker.
func Text(s string) Value {
	if strings.Contains(s, IgnoreMarker) {
		return Skip(s)
	}
	return String(s)
}

// Omitted reports whether the value is left out of a generated argument
// list: skip markers, empty strings and None.
func (v Value) Omitted() bool {
	switch v.Kind {
	case KindSkip, KindNone:
		return true
	case KindString:
		return v.Str == ""
	}
	return false
}

// Python renders the value as source text for the engine's language.
func (v Value) Python() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return pythonFloat(v.Float)
	case KindString, KindSkip:
		return pythonString(v.Str)
	case KindRaw:
		return v.Str
	case KindList:
		return "[" + joinPython(v.Items) + "]"
	case KindTuple:
		if len(v.Items) == 1 {
			return "(" + v.Items[0].Python() + ",)"
		}
		return "(" + joinPython(v.Items) + ")"
	case KindDict:
		pairs := make([]string, len(v.Keys))
		for i := range v.Keys {
			pairs[i] = v.Keys[i].Python() + ": " + v.Items[i].Python()
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	}
	return ""
}

func (v Value) String() string {
	return v.Python()
}

func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindNone:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString, KindRaw, KindSkip:
		return v.Str == other.Str
	case KindList, KindTuple, KindDict:
		return equalValues(v.Items, other.Items) && equalValues(v.Keys, other.Keys)
	}
	return false
}

func equalValues(a []Value, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func joinPython(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Python()
	}
	return strings.Join(parts, ", ")
}

func pythonFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "float('inf')"
	case math.IsInf(f, -1):
		return "float('-inf')"
	case math.IsNaN(f):
		return "float('nan')"
	}

	scientific := strconv.FormatFloat(f, 'e', -1, 64)
	exponent, _ := strconv.Atoi(scientific[strings.IndexByte(scientific, 'e')+1:])
	if exponent < -4 || exponent >= 16 {
		return scientific
	}

	text := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	return text
}

func pythonString(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(quote)
	return b.String()
}
