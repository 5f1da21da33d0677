package scene

import (
	"encoding/json"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// ParseInput converts text typed into a property field. "$expr$" yields a
// raw expression, valid JSON yields the matching literal and anything else
// is kept as a string.
func ParseInput(text string) Value {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && strings.HasPrefix(text, "$") && strings.HasSuffix(text, "$") {
		return Raw(text[1 : len(text)-1])
	}

	if value, ok := decodeLiteral(text); ok {
		return value
	}
	return Text(text)
}

func decodeLiteral(text string) (Value, bool) {
	if text == "" {
		return Value{}, false
	}

	// Objects keep their key order.
	if strings.HasPrefix(text, "{") {
		object := orderedmap.New()
		if err := json.Unmarshal([]byte(text), object); err != nil {
			return Value{}, false
		}
		return FromJSON(object), true
	}

	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()

	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return Value{}, false
	}
	if decoder.More() {
		return Value{}, false
	}
	return FromJSON(decoded), true
}

// ParseKwargs splits "k=v,k2=v2" into keys and parsed values. Pairs
// without "=" are ignored.
func ParseKwargs(text string) ([]string, []Value) {
	var keys []string
	var values []Value
	for _, pair := range strings.Split(strings.TrimSpace(text), ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		keys = append(keys, key)
		values = append(values, ParseInput(value))
	}
	return keys, values
}

// InputText is the inverse of ParseInput: the text a property field shows
// for value.
func InputText(value Value) string {
	switch value.Kind {
	case KindString, KindSkip:
		return value.Str
	case KindRaw:
		return "$" + value.Str + "$"
	}

	data, err := json.Marshal(value.JSON())
	if err != nil {
		return value.Python()
	}
	return string(data)
}
