package model

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/source"
)

type attributeFunc func(s *openapi.Schema, arg string) error

// attributeTable maps lower-cased attribute names to the schema keyword
// they set. Names are matched without case, so Minimum and minimum are the
// same attribute.
var attributeTable = map[string]attributeFunc{
	"minimum":          floatAttr(func(s *openapi.Schema, v *float64) { s.Minimum = v }),
	"maximum":          floatAttr(func(s *openapi.Schema, v *float64) { s.Maximum = v }),
	"exclusiveminimum": floatAttr(func(s *openapi.Schema, v *float64) { s.ExclusiveMinimum = v }),
	"exclusivemaximum": floatAttr(func(s *openapi.Schema, v *float64) { s.ExclusiveMaximum = v }),
	"multipleof":       floatAttr(func(s *openapi.Schema, v *float64) { s.MultipleOf = v }),
	"minlength":        intAttr(func(s *openapi.Schema, v *int) { s.MinLength = v }),
	"maxlength":        intAttr(func(s *openapi.Schema, v *int) { s.MaxLength = v }),
	"minitems":         intAttr(func(s *openapi.Schema, v *int) { s.MinItems = v }),
	"maxitems":         intAttr(func(s *openapi.Schema, v *int) { s.MaxItems = v }),
	"minproperties":    intAttr(func(s *openapi.Schema, v *int) { s.MinProperties = v }),
	"maxproperties":    intAttr(func(s *openapi.Schema, v *int) { s.MaxProperties = v }),

	"pattern":     func(s *openapi.Schema, arg string) error { s.Pattern = arg; return nil },
	"format":      func(s *openapi.Schema, arg string) error { s.Format = arg; return nil },
	"description": func(s *openapi.Schema, arg string) error { s.Description = arg; return nil },
	"title":       func(s *openapi.Schema, arg string) error { s.Title = arg; return nil },

	"deprecated":  func(s *openapi.Schema, _ string) error { s.Deprecated = true; return nil },
	"readonly":    func(s *openapi.Schema, _ string) error { s.ReadOnly = true; return nil },
	"writeonly":   func(s *openapi.Schema, _ string) error { s.WriteOnly = true; return nil },
	"uniqueitems": func(s *openapi.Schema, _ string) error { s.UniqueItems = true; return nil },

	"example": func(s *openapi.Schema, arg string) error { s.Example = typedValue(s, arg); return nil },
	"const":   func(s *openapi.Schema, arg string) error { s.Const = typedValue(s, arg); return nil },
	"enum": func(s *openapi.Schema, arg string) error {
		values := strings.Split(arg, "|")
		s.Enum = make([]any, len(values))
		for i, v := range values {
			s.Enum[i] = typedValue(s, v)
		}
		return nil
	},
}

func floatAttr(set func(*openapi.Schema, *float64)) attributeFunc {
	return func(s *openapi.Schema, arg string) error {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return err
		}
		set(s, &v)
		return nil
	}
}

func intAttr(set func(*openapi.Schema, *int)) attributeFunc {
	return func(s *openapi.Schema, arg string) error {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return err
		}
		set(s, &v)
		return nil
	}
}

// applyAttributes sets the schema keywords named by attrs. Unknown names
// and unparsable arguments are skipped; both are only visible at debug
// level.
func applyAttributes(s *openapi.Schema, attrs source.Attributes) {
	for _, a := range attrs {
		apply, ok := attributeTable[strings.ToLower(a.Name)]
		if !ok {
			slog.Debug("unknown attribute", "name", a.Name)
			continue
		}
		if err := apply(s, a.Arg()); err != nil {
			slog.Debug("invalid attribute argument", "name", a.Name, "arg", a.Arg(), "error", err)
		}
	}
}

// typedValue parses value according to the schema's type, falling back to
// the string itself.
func typedValue(s *openapi.Schema, value string) any {
	switch s.Type.Primary() {
	case "integer":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case "number":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	case "boolean":
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return value
}

// Attributes renders the validation metadata as openapi tag entries, the
// inverse of the attribute table for the keywords a Validation carries.
// Formats implied by the Go type are left out.
func (v Validation) Attributes() []source.Attribute {
	var out []source.Attribute
	add := func(name, arg string) {
		out = append(out, source.Attribute{Name: name, Args: []string{arg}})
	}
	if v.Minimum != nil {
		add("minimum", strconv.FormatFloat(*v.Minimum, 'g', -1, 64))
	}
	if v.Maximum != nil {
		add("maximum", strconv.FormatFloat(*v.Maximum, 'g', -1, 64))
	}
	if v.MinLength != nil {
		add("minLength", strconv.Itoa(*v.MinLength))
	}
	if v.MaxLength != nil {
		add("maxLength", strconv.Itoa(*v.MaxLength))
	}
	if v.Pattern != "" {
		add("pattern", v.Pattern)
	}
	switch v.Format {
	case "", "int32", "int64", "float", "double", "date-time", "uuid", "byte":
	default:
		add("format", v.Format)
	}
	return out
}
