package params

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vitalvas/apisync/openapi"
)

// Value is a decoded parameter. Exactly one of Scalar, Items and Fields
// is meaningful, selected by Shape.
type Value struct {
	Present bool
	Shape   Shape
	Scalar  string
	Items   []string
	Fields  map[string]string
}

// Decode reverses Encode for the fragments of one parameter, read back as
// shape. Unlike Encode it has no fallback: a combination outside the
// grammar returns ErrUnsupportedShape. No fragments decode to a Value that
// is not Present.
func Decode(p Param, shape Shape, frags []Fragment) (Value, error) {
	style := p.style()
	if !Supported(p.In, style, shape) {
		return Value{}, fmt.Errorf("%w: %s %s in %s", ErrUnsupportedShape, style, shape, p.In)
	}

	out := Value{Shape: shape}
	if len(frags) == 0 {
		return out, nil
	}
	out.Present = true

	explode := p.explode()
	first := frags[0].Value

	switch style {
	case openapi.StyleLabel:
		rest, ok := strings.CutPrefix(first, ".")
		if !ok {
			return Value{}, malformed(p, first)
		}
		sep := ","
		if explode {
			sep = "."
		}
		return out.fill(rest, sep)

	case openapi.StyleMatrix:
		if shape == ShapeArray && explode {
			return out.matrixItems(p, first)
		}
		rest, ok := strings.CutPrefix(first, ";"+p.Name+"=")
		if !ok {
			return Value{}, malformed(p, first)
		}
		return out.fill(rest, ",")

	case openapi.StyleForm:
		if shape == ShapeArray && explode {
			out.Items = make([]string, len(frags))
			for i, f := range frags {
				out.Items[i] = f.Value
			}
			return out, nil
		}
		return out.fill(first, ",")

	case openapi.StyleSpaceDelimited:
		return out.fill(first, " ")

	case openapi.StylePipeDelimited:
		return out.fill(first, "|")

	case openapi.StyleDeepObject:
		out.Fields = make(map[string]string, len(frags))
		for _, f := range frags {
			key, ok := deepKey(p.Name, f.Name)
			if !ok {
				return Value{}, malformed(p, f.Name)
			}
			out.Fields[key] = f.Value
		}
		return out, nil
	}

	return out.fill(first, ",")
}

func malformed(p Param, text string) error {
	return fmt.Errorf("%w: %s %q", ErrMalformedValue, p.Name, text)
}

func (v Value) fill(s, sep string) (Value, error) {
	switch v.Shape {
	case ShapeArray:
		v.Items = split(s, sep)
	case ShapeObject:
		var members map[string]any
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&members); err != nil {
			return Value{}, fmt.Errorf("%w: %w", ErrMalformedValue, err)
		}
		v.Fields = make(map[string]string, len(members))
		for k, m := range members {
			v.Fields[k] = jsonText(m)
		}
	default:
		v.Scalar = s
	}
	return v, nil
}

func (v Value) matrixItems(p Param, s string) (Value, error) {
	v.Items = []string{}
	if s == "" {
		return v, nil
	}
	parts := strings.Split(s, ";")
	if parts[0] != "" {
		return Value{}, malformed(p, s)
	}
	for _, part := range parts[1:] {
		item, ok := strings.CutPrefix(part, p.Name+"=")
		if !ok {
			return Value{}, malformed(p, s)
		}
		v.Items = append(v.Items, item)
	}
	return v, nil
}

func split(s, sep string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, sep)
}

func deepKey(name, entry string) (string, bool) {
	rest, ok := strings.CutPrefix(entry, name+"[")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, "]")
}
