package importer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"manimeditor/internal/scene"
)

// Evaluates literal syntax. Anything else, or a literal that cannot be
// represented, becomes a raw expression holding the node's source text.
func evaluate(node *sitter.Node, code []byte) scene.Value {
	if value, ok := literal(node, code); ok {
		return value
	}
	return scene.Raw(node.Content(code))
}

func literal(node *sitter.Node, code []byte) (scene.Value, bool) {
	text := node.Content(code)

	switch node.Type() {
	case "integer":
		return integer(text)
	case "float":
		return float(text)
	case "true":
		return scene.Bool(true), true
	case "false":
		return scene.Bool(false), true
	case "none":
		return scene.None(), true
	case "string":
		s, ok := stringLiteral(text)
		if !ok {
			return scene.Value{}, false
		}
		return scene.Text(s), true
	case "concatenated_string":
		var b strings.Builder
		for _, part := range namedChildren(node) {
			s, ok := stringLiteral(part.Content(code))
			if !ok {
				return scene.Value{}, false
			}
			b.WriteString(s)
		}
		return scene.Text(b.String()), true
	case "parenthesized_expression":
		inner := namedChildren(node)
		if len(inner) != 1 {
			return scene.Value{}, false
		}
		return literal(inner[0], code)
	case "unary_operator":
		return negation(node, code)
	case "list":
		items, ok := literals(namedChildren(node), code)
		return scene.List(items...), ok
	case "tuple":
		items, ok := literals(namedChildren(node), code)
		return scene.Tuple(items...), ok
	case "dictionary":
		return dictionary(node, code)
	}
	return scene.Value{}, false
}

func literals(nodes []*sitter.Node, code []byte) ([]scene.Value, bool) {
	values := make([]scene.Value, 0, len(nodes))
	for _, node := range nodes {
		if node.Type() == "comment" {
			continue
		}
		value, ok := literal(node, code)
		if !ok {
			return nil, false
		}
		values = append(values, value)
	}
	return values, true
}

func dictionary(node *sitter.Node, code []byte) (scene.Value, bool) {
	var keys, values []scene.Value
	for _, pair := range namedChildren(node) {
		if pair.Type() == "comment" {
			continue
		}
		if pair.Type() != "pair" {
			return scene.Value{}, false
		}
		keyNode, valueNode := pair.ChildByFieldName("key"), pair.ChildByFieldName("value")
		if keyNode == nil || valueNode == nil {
			return scene.Value{}, false
		}
		key, ok := literal(keyNode, code)
		if !ok {
			return scene.Value{}, false
		}
		value, ok := literal(valueNode, code)
		if !ok {
			return scene.Value{}, false
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	return scene.Dict(keys, values), true
}

// Only signs applied to numeric literals are folded.
func negation(node *sitter.Node, code []byte) (scene.Value, bool) {
	operator := node.ChildByFieldName("operator")
	argument := node.ChildByFieldName("argument")
	if operator == nil || argument == nil {
		return scene.Value{}, false
	}

	value, ok := literal(argument, code)
	if !ok {
		return scene.Value{}, false
	}

	switch operator.Content(code) {
	case "+":
		if value.Kind == scene.KindInt || value.Kind == scene.KindFloat {
			return value, true
		}
	case "-":
		switch value.Kind {
		case scene.KindInt:
			return scene.Int(-value.Int), true
		case scene.KindFloat:
			return scene.Float(-value.Float), true
		}
	}
	return scene.Value{}, false
}

func integer(text string) (scene.Value, bool) {
	lower := strings.ToLower(text)
	if strings.HasSuffix(lower, "j") || strings.HasSuffix(lower, "l") {
		return scene.Value{}, false
	}
	// A leading zero means octal in Go but only spells zero in Python.
	if len(lower) > 1 && lower[0] == '0' && !strings.ContainsAny(lower[1:2], "xob") {
		if strings.Trim(lower, "0_") != "" {
			return scene.Value{}, false
		}
		return scene.Int(0), true
	}

	i, err := strconv.ParseInt(lower, 0, 64)
	if err != nil {
		return scene.Value{}, false
	}
	return scene.Int(i), true
}

func float(text string) (scene.Value, bool) {
	lower := strings.ToLower(strings.ReplaceAll(text, "_", ""))
	if strings.HasSuffix(lower, "j") {
		return scene.Value{}, false
	}

	f, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return scene.Value{}, false
	}
	return scene.Float(f), true
}

// Decodes a single string literal including its prefix and quotes. Byte
// and formatted strings are not plain text and are rejected.
func stringLiteral(text string) (string, bool) {
	prefixEnd := strings.IndexAny(text, `'"`)
	if prefixEnd < 0 {
		return "", false
	}
	prefix := strings.ToLower(text[:prefixEnd])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	body := text[prefixEnd:]

	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	default:
		quote = body[:1]
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}
	body = body[len(quote) : len(body)-len(quote)]

	if strings.Contains(prefix, "r") {
		return body, true
	}
	return unescape(body)
}

// Decodes backslash escapes. Reports false for escapes whose value it
// cannot produce, so the literal is kept as written.
func unescape(body string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}

		i++
		switch body[i] {
		case '\n':
		case '\\', '\'', '"':
			b.WriteByte(body[i])
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[body[i]]
			if i+1+width > len(body) {
				return "", false
			}
			r, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(r)) {
				return "", false
			}
			b.WriteRune(rune(r))
			i += width
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i + 1
			for end < len(body) && end < i+3 && body[end] >= '0' && body[end] <= '7' {
				end++
			}
			r, _ := strconv.ParseUint(body[i:end], 8, 32)
			b.WriteRune(rune(r))
			i = end - 1
		case 'N':
			// Named characters need the Unicode name table.
			return "", false
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), true
}
