// Package params serializes operation parameters following the OpenAPI
// style and explode rules.
//
// Encode turns one parameter value into wire fragments for its location:
// a path segment, query entries, a header value or cookies. Decode is the
// inverse for the combinations the grammar defines. Out-of-grammar
// combinations never fail on the encoding side; they are logged and
// serialized with the simple style instead.
//
//	frags := params.Encode(params.Param{Name: "ids", In: params.InQuery, Explode: params.Bool(false)}, []int{1, 2, 3})
//	frags[0].String() // "ids=1,2,3"
package params

import (
	"errors"

	"github.com/vitalvas/apisync/openapi"
)

// Parameter locations.
const (
	InPath   = openapi.InPath
	InQuery  = openapi.InQuery
	InHeader = openapi.InHeader
	InCookie = openapi.InCookie
)

var (
	// ErrUnsupportedShape is returned by Decode for a location, style and
	// shape combination the serialization grammar does not define.
	ErrUnsupportedShape = errors.New("params: unsupported style for value shape")

	// ErrMalformedValue is returned by Decode when a fragment does not have
	// the form its style prescribes.
	ErrMalformedValue = errors.New("params: malformed parameter value")
)

// Shape is the structural class of a parameter value.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeArray
	ShapeObject
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeArray:
		return "array"
	case ShapeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Param describes one parameter's wire placement. An empty Style means
// the location default (form for query and cookie, simple otherwise); a
// nil Explode means true for form and false for every other style.
type Param struct {
	Name    string
	In      string
	Style   string
	Explode *bool
}

// FromParameter builds a Param from a document parameter.
func FromParameter(p *openapi.Parameter) Param {
	return Param{
		Name:    p.Name,
		In:      p.In,
		Style:   p.EffectiveStyle(),
		Explode: Bool(p.EffectiveExplode()),
	}
}

// Bool returns a pointer to v, for Param.Explode.
func Bool(v bool) *bool { return &v }

func (p Param) style() string {
	if p.Style != "" {
		return p.Style
	}
	return openapi.DefaultStyle(p.In)
}

func (p Param) explode() bool {
	if p.Explode != nil {
		return *p.Explode
	}
	return p.style() == openapi.StyleForm
}

// Fragment is one serialized piece of a parameter: a path segment, a query
// entry, a header value or a cookie. Values are not percent-encoded.
type Fragment struct {
	Name  string
	Value string
}

func (f Fragment) String() string {
	return f.Name + "=" + f.Value
}

type shapes [3]bool

var (
	allShapes     = shapes{true, true, true}
	scalarOrArray = shapes{ShapeScalar: true, ShapeArray: true}
	objectOnly    = shapes{ShapeObject: true}
)

// grammar lists the shapes each location and style combination is
// defined for.
var grammar = map[string]map[string]shapes{
	InPath: {
		openapi.StyleSimple: allShapes,
		openapi.StyleLabel:  scalarOrArray,
		openapi.StyleMatrix: scalarOrArray,
	},
	InQuery: {
		openapi.StyleForm:           allShapes,
		openapi.StyleSpaceDelimited: scalarOrArray,
		openapi.StylePipeDelimited:  scalarOrArray,
		openapi.StyleDeepObject:     objectOnly,
	},
	InHeader: {
		openapi.StyleSimple: allShapes,
	},
	InCookie: {
		openapi.StyleForm: allShapes,
	},
}

// Supported reports whether the combination of location, style and
// shape is part of the serialization grammar.
func Supported(in, style string, shape Shape) bool {
	styles, ok := grammar[in]
	if !ok {
		return false
	}
	allowed, ok := styles[style]
	return ok && shape >= 0 && int(shape) < len(allowed) && allowed[shape]
}
