package params

import (
	"bytes"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/vitalvas/apisync/openapi"
)

// pathUnescaper restores the delimiters label and matrix styles rely on.
var pathUnescaper = strings.NewReplacer("%2C", ",", "%3B", ";")

// ExpandPath substitutes path fragments into a template such as
// /pets/{id}. Values are percent-encoded except for style delimiters.
// Placeholders without a fragment are left in place.
func ExpandPath(template string, frags ...[]Fragment) string {
	for _, group := range frags {
		for _, f := range group {
			template = strings.ReplaceAll(template, "{"+f.Name+"}", pathUnescaper.Replace(url.PathEscape(f.Value)))
		}
	}
	return template
}

// ApplyQuery adds query fragments to q.
func ApplyQuery(q url.Values, frags ...[]Fragment) {
	for _, group := range frags {
		for _, f := range group {
			q.Add(f.Name, f.Value)
		}
	}
}

// ApplyHeaders adds header fragments to h.
func ApplyHeaders(h http.Header, frags ...[]Fragment) {
	for _, group := range frags {
		for _, f := range group {
			h.Add(f.Name, f.Value)
		}
	}
}

// ApplyCookies adds cookie fragments to r.
func ApplyCookies(r *http.Request, frags ...[]Fragment) {
	for _, group := range frags {
		for _, f := range group {
			r.AddCookie(&http.Cookie{Name: f.Name, Value: f.Value})
		}
	}
}

// FromQuery collects the query entries that belong to p, for Decode.
func FromQuery(q url.Values, p Param) []Fragment {
	var out []Fragment
	if p.style() == openapi.StyleDeepObject {
		for _, name := range slices.Sorted(maps.Keys(q)) {
			if _, ok := deepKey(p.Name, name); !ok {
				continue
			}
			for _, v := range q[name] {
				out = append(out, Fragment{Name: name, Value: v})
			}
		}
		return out
	}
	for _, v := range q[p.Name] {
		out = append(out, Fragment{Name: p.Name, Value: v})
	}
	return out
}

// FromHeader returns the header value of p as a fragment, for Decode.
// Repeated header lines are joined with commas.
func FromHeader(h http.Header, p Param) []Fragment {
	values := h.Values(p.Name)
	if len(values) == 0 {
		return nil
	}
	return one(p.Name, strings.Join(values, ","))
}

// FromCookies returns the cookies named like p, for Decode.
func FromCookies(r *http.Request, p Param) []Fragment {
	var out []Fragment
	for _, c := range r.CookiesNamed(p.Name) {
		out = append(out, Fragment{Name: c.Name, Value: c.Value})
	}
	return out
}

// FromPath wraps an already unescaped path segment, for Decode.
func FromPath(p Param, segment string) []Fragment {
	return one(p.Name, segment)
}

// FormBody encodes an object as form fields, one per property, rendered
// like object members of a form parameter. Values that are not objects
// yield no fields.
func FormBody(v any) url.Values {
	form := url.Values{}
	val, ok := reduce(v)
	if !ok || val.shape != ShapeObject {
		return form
	}
	for _, k := range slices.Sorted(maps.Keys(val.fields)) {
		form.Set(k, val.fields[k])
	}
	return form
}

// MultipartBody encodes an object as a multipart/form-data body with one
// part per property and returns it with its content type.
func MultipartBody(v any) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	form := FormBody(v)
	for _, k := range slices.Sorted(maps.Keys(form)) {
		if err := w.WriteField(k, form.Get(k)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
