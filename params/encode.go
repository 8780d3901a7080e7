package params

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/vitalvas/apisync/openapi"
)

// value is a parameter value reduced to strings.
type value struct {
	shape  Shape
	scalar string
	items  []string
	fields map[string]string
	// raw is the compact JSON form of an object.
	raw string
}

// simple is the style-free rendering: scalars as is, arrays comma-joined
// and objects as compact JSON.
func (v value) simple() string {
	switch v.shape {
	case ShapeArray:
		return strings.Join(v.items, ",")
	case ShapeObject:
		return v.raw
	default:
		return v.scalar
	}
}

// Encode serializes value for p. A nil value, nil pointer, nil slice or
// nil map is absent and yields no fragments.
//
// Scalars are rendered through encoding.TextMarshaler or fmt.Stringer when
// implemented, so uuid.UUID and time.Time produce their canonical text.
// Slices and arrays are arrays; maps and structs are objects, with keys
// taken from their JSON encoding and sorted.
func Encode(p Param, v any) []Fragment {
	val, ok := reduce(v)
	if !ok {
		return nil
	}

	style := p.style()
	if !Supported(p.In, style, val.shape) {
		slog.Warn("parameter style does not apply; using simple",
			"name", p.Name, "in", p.In, "style", style, "shape", val.shape)
		return p.checked(Fragment{Name: p.Name, Value: val.simple()})
	}

	explode := p.explode()

	switch style {
	case openapi.StyleLabel:
		sep := ","
		if explode {
			sep = "."
		}
		return one(p.Name, "."+join(val, sep))

	case openapi.StyleMatrix:
		prefix := ";" + p.Name + "="
		if val.shape == ShapeArray && explode {
			var b strings.Builder
			for _, item := range val.items {
				b.WriteString(prefix)
				b.WriteString(item)
			}
			return one(p.Name, b.String())
		}
		return one(p.Name, prefix+join(val, ","))

	case openapi.StyleForm:
		if val.shape == ShapeArray && explode {
			out := make([]Fragment, len(val.items))
			for i, item := range val.items {
				out[i] = Fragment{Name: p.Name, Value: item}
			}
			return out
		}
		return one(p.Name, val.simple())

	case openapi.StyleSpaceDelimited:
		return one(p.Name, join(val, " "))

	case openapi.StylePipeDelimited:
		return one(p.Name, join(val, "|"))

	case openapi.StyleDeepObject:
		keys := slices.Sorted(maps.Keys(val.fields))
		out := make([]Fragment, len(keys))
		for i, k := range keys {
			out[i] = Fragment{Name: p.Name + "[" + k + "]", Value: val.fields[k]}
		}
		return out
	}

	return p.checked(Fragment{Name: p.Name, Value: val.simple()})
}

func one(name, v string) []Fragment {
	return []Fragment{{Name: name, Value: v}}
}

func join(v value, sep string) string {
	if v.shape == ShapeArray {
		return strings.Join(v.items, sep)
	}
	return v.scalar
}

// checked drops header fragments whose value cannot be sent.
func (p Param) checked(f Fragment) []Fragment {
	if p.In == InHeader && !httpguts.ValidHeaderFieldValue(f.Value) {
		slog.Warn("invalid header value; parameter dropped", "name", p.Name)
		return nil
	}
	return []Fragment{f}
}

func reduce(v any) (value, bool) {
	rv, ok := deref(reflect.ValueOf(v))
	if !ok {
		return value{}, false
	}

	if s, ok := scalar(rv); ok {
		return value{shape: ShapeScalar, scalar: s}, true
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return value{}, false
		}
		items := make([]string, rv.Len())
		for i := range rv.Len() {
			items[i] = element(rv.Index(i))
		}
		return value{shape: ShapeArray, items: items}, true

	case reflect.Map, reflect.Struct:
		if rv.Kind() == reflect.Map && rv.IsNil() {
			return value{}, false
		}
		if obj, ok := object(rv.Interface()); ok {
			return obj, true
		}
	}

	return value{shape: ShapeScalar, scalar: fmt.Sprint(rv.Interface())}, true
}

func deref(rv reflect.Value) (reflect.Value, bool) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return rv, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}

func scalar(rv reflect.Value) (string, bool) {
	if rv.CanInterface() {
		if s, ok := text(rv.Interface()); ok {
			return s, true
		}
		if rv.CanAddr() {
			if s, ok := text(rv.Addr().Interface()); ok {
				return s, true
			}
		}
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes()), true
		}
	}
	return "", false
}

func text(v any) (string, bool) {
	switch x := v.(type) {
	case encoding.TextMarshaler:
		if b, err := x.MarshalText(); err == nil {
			return string(b), true
		}
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

// element renders one array item or object member: scalars as text,
// anything else as compact JSON.
func element(rv reflect.Value) string {
	rv, ok := deref(rv)
	if !ok {
		return ""
	}
	if s, ok := scalar(rv); ok {
		return s
	}
	if rv.CanInterface() {
		if data, err := json.Marshal(rv.Interface()); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(rv)
}

func object(v any) (value, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return value{}, false
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var members map[string]any
	if err := dec.Decode(&members); err != nil || members == nil {
		return value{}, false
	}

	fields := make(map[string]string, len(members))
	for k, m := range members {
		fields[k] = jsonText(m)
	}
	return value{shape: ShapeObject, fields: fields, raw: string(data)}, true
}

// jsonText renders a decoded JSON value as parameter text.
func jsonText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
