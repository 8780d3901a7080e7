package openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
)

// Loader reads documents from local paths or http(s) URLs.
type Loader struct {
	// Client is used for URL locations. http.DefaultClient when nil.
	Client *http.Client
}

// Read returns the raw bytes at location, which is either a file path or
// an http(s) URL.
func (l *Loader) Read(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("openapi: location %q: %w", location, err)
	}

	client := http.DefaultClient
	if l != nil && l.Client != nil {
		client = l.Client
	}

	read := openapi3.ReadFromURIs(openapi3.ReadFromHTTP(client), openapi3.ReadFromFile)
	data, err := read(&openapi3.Loader{Context: ctx}, u)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", location, err)
	}
	return data, nil
}

// Load reads and parses the document at location.
func (l *Loader) Load(ctx context.Context, location string) (*Document, error) {
	data, err := l.Read(ctx, location)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Source = location
		}
		return nil, err
	}
	return doc, nil
}

// Lint runs the structural validator of kin-openapi over data. The result
// is advisory: documents using keywords that validator does not know may
// still be accepted by Parse.
func Lint(ctx context.Context, data []byte) error {
	loader := &openapi3.Loader{Context: ctx}

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("openapi: lint: %w", err)
	}

	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return fmt.Errorf("openapi: lint: %w", err)
	}
	return nil
}
