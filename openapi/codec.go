package openapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Format names a wire encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	// ErrEmptyDocument is returned when the input holds no document at all.
	ErrEmptyDocument = errors.New("openapi: empty document")

	// ErrUnknownFormat is returned for a Format other than json or yaml.
	ErrUnknownFormat = errors.New("openapi: unknown format")
)

// ParseError reports an input document that is not syntactically valid.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("openapi: parse: %v", e.Err)
	}
	return fmt.Sprintf("openapi: parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DetectFormat guesses the encoding of data: JSON when the first
// non-space byte opens an object, YAML otherwise.
func DetectFormat(data []byte) Format {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a JSON or YAML document. Every key without a dedicated
// field is kept in the Extra bag of the enclosing object.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: ErrEmptyDocument}
	}

	if DetectFormat(data) == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		data = converted
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &doc, nil
}

// ParseSchema decodes a single JSON or YAML schema.
func ParseSchema(data []byte) (*Schema, error) {
	if DetectFormat(data) == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		data = converted
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &s, nil
}

// Marshal encodes v in the given format. JSON output is indented with two
// spaces; YAML output uses block style throughout.
func Marshal(v any, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON, "":
		return append(data, '\n'), nil
	case FormatYAML:
		return jsonToYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// yamlToJSON converts a YAML document to JSON. Mapping keys are always
// treated as strings so that response codes such as 200 stay keys.
func yamlToJSON(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 {
		return nil, ErrEmptyDocument
	}

	value, err := nodeValue(&node)
	if err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

func nodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return nodeValue(node.Content[0])

	case yaml.AliasNode:
		return nodeValue(node.Alias)

	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := nodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[node.Content[i].Value] = value
		}
		return out, nil

	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := nodeValue(child)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil

	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil

	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d at line %d", node.Kind, node.Line)
	}
}

// jsonToYAML re-encodes JSON as YAML. Decoding JSON into a yaml.Node keeps
// key order; clearing the flow and quoting styles makes the encoder emit
// block style and quote only where a plain scalar would change type.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clearStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		clearStyle(child)
	}
}
