package scene

// Properties maps parameter names to values, iterating in insertion order.
// The zero value is ready to use.
type Properties struct {
	keys   []string
	values map[string]Value
}

func NewProperties() Properties {
	return Properties{values: make(map[string]Value)}
}

func (p *Properties) Set(key string, value Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Properties) Get(key string) (Value, bool) {
	value, ok := p.values[key]
	return value, ok
}

func (p *Properties) Delete(key string) {
	if _, exists := p.values[key]; !exists {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p *Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int {
	return len(p.keys)
}

// Clone returns a shallow copy: values are shared, ordering is not.
func (p *Properties) Clone() Properties {
	clone := Properties{
		keys:   append([]string(nil), p.keys...),
		values: make(map[string]Value, len(p.values)),
	}
	for k, v := range p.values {
		clone.values[k] = v
	}
	return clone
}

// Equal compares the mappings regardless of key order.
func (p *Properties) Equal(other *Properties) bool {
	if p.Len() != other.Len() {
		return false
	}
	for key, value := range p.values {
		otherValue, ok := other.values[key]
		if !ok || !value.Equal(otherValue) {
			return false
		}
	}
	return true
}
