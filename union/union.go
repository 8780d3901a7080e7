// Package union is the runtime behind generated tagged unions.
//
// A generated union type is a struct with one pointer field per branch.
// Its UnmarshalJSON hands every field to this package wrapped by Into:
//
//	func (u *Shape) UnmarshalJSON(data []byte) error {
//		*u = Shape{}
//		_, err := union.DecodeFirst(data, union.Into("Circle", &u.Circle), union.Into("Square", &u.Square))
//		return err
//	}
//
// Without a discriminator the branches are tried in order and the first
// one that decodes strictly wins, so a payload valid for several branches
// always lands in the earliest listed one. With a discriminator the
// property value selects the branch directly and nothing is tried.
package union

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNoBranchMatched is returned when no branch decodes the payload.
	ErrNoBranchMatched = errors.New("union: no branch matched")

	// ErrMissingDiscriminator is returned when the payload is not an object
	// or lacks the discriminator property.
	ErrMissingDiscriminator = errors.New("union: discriminator property missing")

	// ErrEmptyUnion is returned when encoding a union with no branch set, or
	// decoding into a union with no branches.
	ErrEmptyUnion = errors.New("union: no branch set")
)

// UnknownDiscriminatorError reports a discriminator value that matches
// neither the mapping nor any branch name.
type UnknownDiscriminatorError struct {
	Property string
	Value    string
}

func (e *UnknownDiscriminatorError) Error() string {
	return fmt.Sprintf("union: unknown discriminator %s=%q", e.Property, e.Value)
}

// Branch is one decode target of a union.
type Branch struct {
	// Name is the branch type's bare name, matched against discriminator
	// values.
	Name   string
	decode func(data []byte, strict bool) error
}

// Into returns a branch that decodes into a new T and stores it in *dst
// only when decoding succeeds.
func Into[T any](name string, dst **T) Branch {
	return Branch{
		Name: name,
		decode: func(data []byte, strict bool) error {
			v := new(T)
			if err := unmarshal(data, v, strict); err != nil {
				return err
			}
			*dst = v
			return nil
		},
	}
}

// unmarshal decodes a single JSON value. Strict mode rejects unknown
// object fields.
func unmarshal(data []byte, v any, strict bool) error {
	if !strict {
		return json.Unmarshal(data, v)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("union: trailing data after value")
	}
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// DecodeFirst tries the branches in order and returns the index of the
// first one that decodes data strictly. A JSON null sets no branch and
// returns -1 without error.
func DecodeFirst(data []byte, branches ...Branch) (int, error) {
	if len(branches) == 0 {
		return -1, ErrEmptyUnion
	}
	if isNull(data) {
		return -1, nil
	}

	errs := make([]error, 0, len(branches))
	for i, b := range branches {
		err := b.decode(data, true)
		if err == nil {
			return i, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
	}
	return -1, fmt.Errorf("%w: %w", ErrNoBranchMatched, errors.Join(errs...))
}

// DecodeDiscriminated reads the string property named property from data,
// maps it through mapping (value to branch name) when present, and decodes
// data into the branch with that name. A value matching no branch returns
// an *UnknownDiscriminatorError; there is no fallback.
func DecodeDiscriminated(data []byte, property string, mapping map[string]string, branches ...Branch) (int, error) {
	if len(branches) == 0 {
		return -1, ErrEmptyUnion
	}
	if isNull(data) {
		return -1, nil
	}

	value, err := Discriminator(data, property)
	if err != nil {
		return -1, err
	}

	target := value
	if name, ok := mapping[value]; ok {
		target = name
	}

	for i, b := range branches {
		if b.Name != target {
			continue
		}
		if err := b.decode(data, false); err != nil {
			return -1, fmt.Errorf("union: decode %s: %w", b.Name, err)
		}
		return i, nil
	}
	return -1, &UnknownDiscriminatorError{Property: property, Value: value}
}

// Discriminator returns the string value of property in the JSON object
// data.
func Discriminator(data []byte, property string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingDiscriminator, err)
	}
	raw, ok := fields[property]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingDiscriminator, property)
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", &UnknownDiscriminatorError{Property: property, Value: string(raw)}
	}
	return value, nil
}

// Encode marshals the first branch that is set. Branches are the union's
// pointer fields; a nil pointer is unset.
func Encode(branches ...any) ([]byte, error) {
	for _, b := range branches {
		if isSet(b) {
			return json.Marshal(b)
		}
	}
	return nil, ErrEmptyUnion
}

func isSet(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return !rv.IsNil()
	}
	return true
}
