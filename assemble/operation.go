package assemble

import (
	"net/http"
	"strconv"

	"github.com/vitalvas/apisync/openapi"
)

// operationMeta stores metadata collected via the fluent builder before the
// document is assembled. Fields correspond to the Operation Object.
//
// See: https://spec.openapis.org/oas/v3.1.0#operation-object
type operationMeta struct {
	operationID string
	summary     string
	description string
	tags        []string
	deprecated  bool
	parameters  []*openapi.Parameter
	security    []openapi.SecurityRequirement

	requestContents      map[string]*openapi.Schema            // contentType -> schema
	requestDescription   string                                // request body description
	requestRequired      *bool                                 // nil = default (true)
	responseContents     map[string]map[string]*openapi.Schema // statusKey -> contentType -> schema
	responseDescriptions map[string]string                     // statusKey -> custom description
	responseHeaders      map[string]map[string]*openapi.Header // statusKey -> headerName -> header
	responseLinks        map[string]map[string]*openapi.Link   // statusKey -> linkName -> link
}

// OperationBuilder provides a fluent API for describing one operation found
// in a source unit. It assembles an Operation Object once the unit is added
// to an Assembler.
//
// See: https://spec.openapis.org/oas/v3.1.0#operation-object
type OperationBuilder struct {
	meta *operationMeta
}

// NewOperation returns an empty builder.
func NewOperation() *OperationBuilder {
	return &OperationBuilder{
		meta: &operationMeta{
			requestContents:  make(map[string]*openapi.Schema),
			responseContents: make(map[string]map[string]*openapi.Schema),
		},
	}
}

// OperationID sets the operation ID. Callbacks declared for this ID are
// attached to the operation.
func (b *OperationBuilder) OperationID(id string) *OperationBuilder {
	b.meta.operationID = id
	return b
}

// ID returns the operation ID set so far.
func (b *OperationBuilder) ID() string {
	return b.meta.operationID
}

// Summary sets the operation summary.
func (b *OperationBuilder) Summary(s string) *OperationBuilder {
	b.meta.summary = s
	return b
}

// Description sets the operation description.
func (b *OperationBuilder) Description(d string) *OperationBuilder {
	b.meta.description = d
	return b
}

// Tags adds one or more tags to the operation.
func (b *OperationBuilder) Tags(tags ...string) *OperationBuilder {
	b.meta.tags = append(b.meta.tags, tags...)
	return b
}

// Deprecated marks the operation as deprecated.
func (b *OperationBuilder) Deprecated() *OperationBuilder {
	b.meta.deprecated = true
	return b
}

// Request registers an application/json request body schema.
//
// See: https://spec.openapis.org/oas/v3.1.0#request-body-object
func (b *OperationBuilder) Request(body *openapi.Schema) *OperationBuilder {
	return b.RequestContent("application/json", body)
}

// RequestContent registers a request body with the given content type. A
// nil schema registers the content type without a schema.
func (b *OperationBuilder) RequestContent(contentType string, body *openapi.Schema) *OperationBuilder {
	b.meta.requestContents[contentType] = body
	return b
}

// RequestDescription sets the description for the request body.
func (b *OperationBuilder) RequestDescription(desc string) *OperationBuilder {
	b.meta.requestDescription = desc
	return b
}

// RequestRequired sets whether the request body is required. Request
// bodies are required by default.
func (b *OperationBuilder) RequestRequired(required bool) *OperationBuilder {
	b.meta.requestRequired = &required
	return b
}

// Response registers an application/json response for the status code.
// Pass a nil body for a response with no content.
//
// See: https://spec.openapis.org/oas/v3.1.0#responses-object
func (b *OperationBuilder) Response(statusCode int, body *openapi.Schema) *OperationBuilder {
	return b.response(strconv.Itoa(statusCode), body)
}

// DefaultResponse registers an application/json response for the
// "default" status key.
func (b *OperationBuilder) DefaultResponse(body *openapi.Schema) *OperationBuilder {
	return b.response("default", body)
}

func (b *OperationBuilder) response(key string, body *openapi.Schema) *OperationBuilder {
	if body == nil {
		b.meta.responseContents[key] = nil
		return b
	}
	if b.meta.responseContents[key] == nil {
		b.meta.responseContents[key] = make(map[string]*openapi.Schema)
	}
	b.meta.responseContents[key]["application/json"] = body
	return b
}

// ResponseContent registers a response with the given status code and
// content type.
func (b *OperationBuilder) ResponseContent(statusCode int, contentType string, body *openapi.Schema) *OperationBuilder {
	key := strconv.Itoa(statusCode)
	if b.meta.responseContents[key] == nil {
		b.meta.responseContents[key] = make(map[string]*openapi.Schema)
	}
	b.meta.responseContents[key][contentType] = body
	return b
}

// ResponseHeader adds a header to the response for the status code.
func (b *OperationBuilder) ResponseHeader(statusCode int, name string, h *openapi.Header) *OperationBuilder {
	key := strconv.Itoa(statusCode)
	if b.meta.responseHeaders == nil {
		b.meta.responseHeaders = make(map[string]map[string]*openapi.Header)
	}
	if b.meta.responseHeaders[key] == nil {
		b.meta.responseHeaders[key] = make(map[string]*openapi.Header)
	}
	b.meta.responseHeaders[key][name] = h
	return b
}

// ResponseLink adds a link to the response for the status code.
//
// See: https://spec.openapis.org/oas/v3.1.0#link-object
func (b *OperationBuilder) ResponseLink(statusCode int, name string, l *openapi.Link) *OperationBuilder {
	key := strconv.Itoa(statusCode)
	if b.meta.responseLinks == nil {
		b.meta.responseLinks = make(map[string]map[string]*openapi.Link)
	}
	if b.meta.responseLinks[key] == nil {
		b.meta.responseLinks[key] = make(map[string]*openapi.Link)
	}
	b.meta.responseLinks[key][name] = l
	return b
}

// ResponseDescription overrides the description derived from the status
// text.
func (b *OperationBuilder) ResponseDescription(statusCode int, desc string) *OperationBuilder {
	key := strconv.Itoa(statusCode)
	if b.meta.responseDescriptions == nil {
		b.meta.responseDescriptions = make(map[string]string)
	}
	b.meta.responseDescriptions[key] = desc
	return b
}

// Parameter adds a parameter to the operation. It overrides a parameter
// derived from the path template with the same name and location.
func (b *OperationBuilder) Parameter(param *openapi.Parameter) *OperationBuilder {
	b.meta.parameters = append(b.meta.parameters, param)
	return b
}

// Security sets operation-level security requirements. Call with no
// arguments to mark the operation as unauthenticated.
func (b *OperationBuilder) Security(reqs ...openapi.SecurityRequirement) *OperationBuilder {
	if reqs == nil {
		reqs = []openapi.SecurityRequirement{}
	}
	b.meta.security = reqs
	return b
}

// mergeParameters combines parameters derived from the path template with
// explicit ones. Explicit parameters with the same name and location
// replace the derived ones.
func mergeParameters(auto, custom []*openapi.Parameter) []*openapi.Parameter {
	if len(auto) == 0 && len(custom) == 0 {
		return nil
	}

	overrides := make(map[[2]string]struct{}, len(custom))
	for _, p := range custom {
		overrides[[2]string{p.Name, p.In}] = struct{}{}
	}

	var merged []*openapi.Parameter
	for _, p := range auto {
		if _, ok := overrides[[2]string{p.Name, p.In}]; !ok {
			merged = append(merged, p)
		}
	}

	return append(merged, custom...)
}

// responseDescription returns a human-readable description for a response
// key.
func responseDescription(key string) string {
	if key == "default" {
		return "Default response"
	}
	if code, err := strconv.Atoi(key); err == nil {
		if text := http.StatusText(code); text != "" {
			return text
		}
	}
	return key
}

func mediaTypes(contents map[string]*openapi.Schema) map[string]*openapi.MediaType {
	out := make(map[string]*openapi.MediaType, len(contents))
	for ct, schema := range contents {
		out[ct] = &openapi.MediaType{Schema: openapi.CloneSchema(schema)}
	}
	return out
}

// Build converts the collected metadata into an Operation Object. Schemas
// are copied, so the result never shares nodes with the builder's input.
func (b *OperationBuilder) Build(pathParams []*openapi.Parameter) *openapi.Operation {
	op := &openapi.Operation{
		OperationID: b.meta.operationID,
		Summary:     b.meta.summary,
		Description: b.meta.description,
		Tags:        b.meta.tags,
		Deprecated:  b.meta.deprecated,
		Security:    b.meta.security,
	}

	params := mergeParameters(pathParams, b.meta.parameters)
	for _, p := range params {
		c := *p
		c.Schema = openapi.CloneSchema(p.Schema)
		op.Parameters = append(op.Parameters, &c)
	}

	if len(b.meta.requestContents) > 0 {
		required := true
		if b.meta.requestRequired != nil {
			required = *b.meta.requestRequired
		}
		op.RequestBody = &openapi.RequestBody{
			Description: b.meta.requestDescription,
			Required:    required,
			Content:     mediaTypes(b.meta.requestContents),
		}
	}

	if len(b.meta.responseContents) > 0 {
		op.Responses = make(map[string]*openapi.Response, len(b.meta.responseContents))
		for key, contents := range b.meta.responseContents {
			desc := responseDescription(key)
			if custom, ok := b.meta.responseDescriptions[key]; ok {
				desc = custom
			}
			resp := &openapi.Response{Description: desc}
			if len(contents) > 0 {
				resp.Content = mediaTypes(contents)
			}
			if headers := b.meta.responseHeaders[key]; len(headers) > 0 {
				resp.Headers = headers
			}
			if links := b.meta.responseLinks[key]; len(links) > 0 {
				resp.Links = links
			}
			op.Responses[key] = resp
		}
	}

	return op
}
