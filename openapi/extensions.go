package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var wireKeyCache sync.Map

// wireKeys returns the JSON keys claimed by struct fields of t, mapped to
// the field index.
func wireKeys(t reflect.Type) map[string]int {
	if v, ok := wireKeyCache.Load(t); ok {
		return v.(map[string]int)
	}

	keys := make(map[string]int, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = i
	}

	wireKeyCache.Store(t, keys)
	return keys
}

// decodeExtensible decodes data into dst, a pointer to a struct without
// custom JSON methods, and returns every key that no field claimed.
func decodeExtensible(data []byte, dst any) (Extensions, error) {
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	known := wireKeys(reflect.TypeOf(dst).Elem())
	var extra Extensions
	for key, value := range raw {
		if _, ok := known[key]; ok {
			continue
		}

		decoded, err := decodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if extra == nil {
			extra = make(Extensions)
		}
		extra[key] = decoded
	}

	return extra, nil
}

// decodeLenient is decodeExtensible for objects whose keywords differ
// between schema dialects. A claimed key whose value is null, or does not
// fit the field, is kept in the extensions so that it is written back
// unchanged.
func decodeLenient(data []byte, dst any) (Extensions, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	v := reflect.ValueOf(dst).Elem()
	known := wireKeys(v.Type())

	var extra Extensions
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		value := raw[key]
		if i, ok := known[key]; ok && !isNull(value) {
			field := v.Field(i)
			if err := json.Unmarshal(value, field.Addr().Interface()); err == nil {
				continue
			}
			field.SetZero()
		}

		decoded, err := decodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if extra == nil {
			extra = make(Extensions)
		}
		extra[key] = decoded
	}

	return extra, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeValue keeps numbers as json.Number so large integers survive.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// encodeExtensible encodes v and appends the extension keys in sorted
// order. Keys that a field of v already wrote are skipped.
func encodeExtensible(v any, extra Extensions) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	empty := len(known) == 0

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])

	for _, key := range slices.Sorted(maps.Keys(extra)) {
		if _, ok := known[key]; ok {
			continue
		}

		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(extra[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		if !empty {
			buf.WriteByte(',')
		}
		empty = false

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes a boolean schema as a bare literal and every other
// schema as an object including its extension keys.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.Boolean != nil {
		return json.Marshal(*s.Boolean)
	}

	type plain Schema
	return encodeExtensible(plain(s), s.Extra)
}

// UnmarshalJSON accepts both object and boolean schemas. Keywords set to
// null or to a value of another JSON type than their field, such as a
// boolean exclusiveMinimum, are kept in Extra.
func (s *Schema) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "false":
		b := string(bytes.TrimSpace(data)) == "true"
		*s = Schema{Boolean: &b}
		return nil
	}

	type plain Schema
	*s = Schema{}
	extra, err := decodeLenient(data, (*plain)(s))
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return encodeExtensible(plain(d), d.Extra)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	extra, err := decodeExtensible(data, (*plain)(d))
	if err != nil {
		return err
	}
	d.Extra = extra
	return nil
}

func (i Info) MarshalJSON() ([]byte, error) {
	type plain Info
	return encodeExtensible(plain(i), i.Extra)
}

func (i *Info) UnmarshalJSON(data []byte) error {
	type plain Info
	extra, err := decodeExtensible(data, (*plain)(i))
	if err != nil {
		return err
	}
	i.Extra = extra
	return nil
}

func (c Contact) MarshalJSON() ([]byte, error) {
	type plain Contact
	return encodeExtensible(plain(c), c.Extra)
}

func (c *Contact) UnmarshalJSON(data []byte) error {
	type plain Contact
	extra, err := decodeExtensible(data, (*plain)(c))
	if err != nil {
		return err
	}
	c.Extra = extra
	return nil
}

func (l License) MarshalJSON() ([]byte, error) {
	type plain License
	return encodeExtensible(plain(l), l.Extra)
}

func (l *License) UnmarshalJSON(data []byte) error {
	type plain License
	extra, err := decodeExtensible(data, (*plain)(l))
	if err != nil {
		return err
	}
	l.Extra = extra
	return nil
}

func (s Server) MarshalJSON() ([]byte, error) {
	type plain Server
	return encodeExtensible(plain(s), s.Extra)
}

func (s *Server) UnmarshalJSON(data []byte) error {
	type plain Server
	extra, err := decodeExtensible(data, (*plain)(s))
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

func (v ServerVariable) MarshalJSON() ([]byte, error) {
	type plain ServerVariable
	return encodeExtensible(plain(v), v.Extra)
}

func (v *ServerVariable) UnmarshalJSON(data []byte) error {
	type plain ServerVariable
	extra, err := decodeExtensible(data, (*plain)(v))
	if err != nil {
		return err
	}
	v.Extra = extra
	return nil
}

func (p PathItem) MarshalJSON() ([]byte, error) {
	type plain PathItem
	return encodeExtensible(plain(p), p.Extra)
}

func (p *PathItem) UnmarshalJSON(data []byte) error {
	type plain PathItem
	extra, err := decodeExtensible(data, (*plain)(p))
	if err != nil {
		return err
	}
	p.Extra = extra
	return nil
}

// MarshalJSON keeps an empty, non-nil security list, which clears the
// document-level requirements for the operation.
func (o Operation) MarshalJSON() ([]byte, error) {
	type plain Operation
	data, err := encodeExtensible(plain(o), o.Extra)
	if err != nil || o.Security == nil || len(o.Security) > 0 {
		return data, err
	}
	return withEmptyList(data, "security"), nil
}

// withEmptyList inserts key with an empty array into the encoded object.
func withEmptyList(data []byte, key string) []byte {
	entry := `"` + key + `":[]`
	if bytes.Equal(data, []byte("{}")) {
		return []byte("{" + entry + "}")
	}
	out := make([]byte, 0, len(data)+len(entry)+1)
	out = append(out, '{')
	out = append(out, entry...)
	out = append(out, ',')
	return append(out, data[1:]...)
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	type plain Operation
	extra, err := decodeExtensible(data, (*plain)(o))
	if err != nil {
		return err
	}
	o.Extra = extra
	return nil
}

func (p Parameter) MarshalJSON() ([]byte, error) {
	type plain Parameter
	return encodeExtensible(plain(p), p.Extra)
}

func (p *Parameter) UnmarshalJSON(data []byte) error {
	type plain Parameter
	extra, err := decodeExtensible(data, (*plain)(p))
	if err != nil {
		return err
	}
	p.Extra = extra
	return nil
}

func (b RequestBody) MarshalJSON() ([]byte, error) {
	type plain RequestBody
	return encodeExtensible(plain(b), b.Extra)
}

func (b *RequestBody) UnmarshalJSON(data []byte) error {
	type plain RequestBody
	extra, err := decodeExtensible(data, (*plain)(b))
	if err != nil {
		return err
	}
	b.Extra = extra
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	return encodeExtensible(plain(r), r.Extra)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	type plain Response
	extra, err := decodeExtensible(data, (*plain)(r))
	if err != nil {
		return err
	}
	r.Extra = extra
	return nil
}

func (m MediaType) MarshalJSON() ([]byte, error) {
	type plain MediaType
	return encodeExtensible(plain(m), m.Extra)
}

func (m *MediaType) UnmarshalJSON(data []byte) error {
	type plain MediaType
	extra, err := decodeExtensible(data, (*plain)(m))
	if err != nil {
		return err
	}
	m.Extra = extra
	return nil
}

func (h Header) MarshalJSON() ([]byte, error) {
	type plain Header
	return encodeExtensible(plain(h), h.Extra)
}

func (h *Header) UnmarshalJSON(data []byte) error {
	type plain Header
	extra, err := decodeExtensible(data, (*plain)(h))
	if err != nil {
		return err
	}
	h.Extra = extra
	return nil
}

func (c Components) MarshalJSON() ([]byte, error) {
	type plain Components
	return encodeExtensible(plain(c), c.Extra)
}

func (c *Components) UnmarshalJSON(data []byte) error {
	type plain Components
	extra, err := decodeExtensible(data, (*plain)(c))
	if err != nil {
		return err
	}
	c.Extra = extra
	return nil
}

func (t Tag) MarshalJSON() ([]byte, error) {
	type plain Tag
	return encodeExtensible(plain(t), t.Extra)
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	type plain Tag
	extra, err := decodeExtensible(data, (*plain)(t))
	if err != nil {
		return err
	}
	t.Extra = extra
	return nil
}

func (e ExternalDocs) MarshalJSON() ([]byte, error) {
	type plain ExternalDocs
	return encodeExtensible(plain(e), e.Extra)
}

func (e *ExternalDocs) UnmarshalJSON(data []byte) error {
	type plain ExternalDocs
	extra, err := decodeExtensible(data, (*plain)(e))
	if err != nil {
		return err
	}
	e.Extra = extra
	return nil
}

func (e Example) MarshalJSON() ([]byte, error) {
	type plain Example
	return encodeExtensible(plain(e), e.Extra)
}

func (e *Example) UnmarshalJSON(data []byte) error {
	type plain Example
	extra, err := decodeExtensible(data, (*plain)(e))
	if err != nil {
		return err
	}
	e.Extra = extra
	return nil
}

func (e Encoding) MarshalJSON() ([]byte, error) {
	type plain Encoding
	return encodeExtensible(plain(e), e.Extra)
}

func (e *Encoding) UnmarshalJSON(data []byte) error {
	type plain Encoding
	extra, err := decodeExtensible(data, (*plain)(e))
	if err != nil {
		return err
	}
	e.Extra = extra
	return nil
}

func (d Discriminator) MarshalJSON() ([]byte, error) {
	type plain Discriminator
	return encodeExtensible(plain(d), d.Extra)
}

func (d *Discriminator) UnmarshalJSON(data []byte) error {
	type plain Discriminator
	extra, err := decodeExtensible(data, (*plain)(d))
	if err != nil {
		return err
	}
	d.Extra = extra
	return nil
}

func (x XML) MarshalJSON() ([]byte, error) {
	type plain XML
	return encodeExtensible(plain(x), x.Extra)
}

func (x *XML) UnmarshalJSON(data []byte) error {
	type plain XML
	extra, err := decodeExtensible(data, (*plain)(x))
	if err != nil {
		return err
	}
	x.Extra = extra
	return nil
}

func (s SecurityScheme) MarshalJSON() ([]byte, error) {
	type plain SecurityScheme
	return encodeExtensible(plain(s), s.Extra)
}

func (s *SecurityScheme) UnmarshalJSON(data []byte) error {
	type plain SecurityScheme
	extra, err := decodeExtensible(data, (*plain)(s))
	if err != nil {
		return err
	}
	s.Extra = extra
	return nil
}

func (f OAuthFlows) MarshalJSON() ([]byte, error) {
	type plain OAuthFlows
	return encodeExtensible(plain(f), f.Extra)
}

func (f *OAuthFlows) UnmarshalJSON(data []byte) error {
	type plain OAuthFlows
	extra, err := decodeExtensible(data, (*plain)(f))
	if err != nil {
		return err
	}
	f.Extra = extra
	return nil
}

func (f OAuthFlow) MarshalJSON() ([]byte, error) {
	type plain OAuthFlow
	return encodeExtensible(plain(f), f.Extra)
}

func (f *OAuthFlow) UnmarshalJSON(data []byte) error {
	type plain OAuthFlow
	extra, err := decodeExtensible(data, (*plain)(f))
	if err != nil {
		return err
	}
	f.Extra = extra
	return nil
}

func (l Link) MarshalJSON() ([]byte, error) {
	type plain Link
	return encodeExtensible(plain(l), l.Extra)
}

func (l *Link) UnmarshalJSON(data []byte) error {
	type plain Link
	extra, err := decodeExtensible(data, (*plain)(l))
	if err != nil {
		return err
	}
	l.Extra = extra
	return nil
}
