package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/apisync/assemble"
	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/source"
)

const petstore = `package petstore

import (
	"context"
	"net/http"
)

// Pet is an animal in the store.
type Pet struct {
	ID   int64  ` + "`json:\"id\"`" + `
	Name string ` + "`json:\"name\" openapi:\"minLength=1\"`" + `
	Tag  *string ` + "`json:\"tag,omitempty\"`" + `
}

type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
)

type internal struct{ X int }

//openapi:ignore
type Skipped struct{ X int }

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	BearerToken string
	APIKeyToken string
	//openapi:security type=apiKey name=X-Session in=cookie
	SessionToken string
	PartnerToken string
}

// ListPets returns all pets.
//
// Results are paged.
//
//openapi:route GET /pets
//openapi:tags pets
//openapi:param limit style=form explode=false
//openapi:param requestID in=header name=X-Request-ID
func (c *Client) ListPets(ctx context.Context, limit *int32, tags []string, requestID string) ([]Pet, error) {
	return nil, nil
}

// GetPet fetches one pet.
// @link owner -> GetOwner
//
//openapi:route GET /pets/{id:int64}
func (c *Client) GetPet(ctx context.Context, id int64) (*Pet, error) {
	return nil, nil
}

//openapi:route POST /pets
//openapi:response 201
//openapi:security none
func (c *Client) CreatePet(ctx context.Context, body Pet) (Pet, error) {
	return body, nil
}

// DeleteEverything has no route directive.
func (c *Client) DeleteEverything(ctx context.Context) error {
	return nil
}

// Helper is not an operation.
func (c *Client) Helper() {}

func (c *Client) do(ctx context.Context) error { return nil }

type Webhooks interface {
	// OnNewPet is sent when a pet is added.
	OnNewPet(ctx context.Context, payload Pet) error

	//openapi:webhook pet.sold PUT
	OnSold(ctx context.Context, payload Status) error
}

type CreatePetCallbacks interface {
	//openapi:callback {$request.body#/statusUrl} POST
	OnStatus(ctx context.Context, payload Status) error

	OnDone(ctx context.Context, payload Pet) error
}
`

func extractDoc(t *testing.T, src string) (*assemble.Unit, *openapi.Document, *assemble.Report) {
	t.Helper()
	f, err := source.Parse("petstore.go", []byte(src))
	require.NoError(t, err)
	u := File(f, "petstore", Options{})
	doc, report := assemble.New(openapi.Info{Title: "Petstore", Version: "1.0.0"}).Add(u).Build()
	return u, doc, report
}

func TestModels(t *testing.T) {
	u, doc, report := extractDoc(t, petstore)

	assert.ElementsMatch(t, []string{"Pet", "Status"}, keys(u.Schemas))
	assert.Empty(t, report.Unresolved)

	pet := doc.Components.Schemas["Pet"]
	assert.Equal(t, "Pet is an animal in the store.", pet.Description)
	assert.Equal(t, []string{"id", "name"}, pet.Required)
	assert.Equal(t, 1, *pet.Properties["name"].MinLength)

	status := doc.Components.Schemas["Status"]
	assert.Equal(t, []any{"available", "sold"}, status.Enum)
}

func TestSecuritySchemes(t *testing.T) {
	_, doc, _ := extractDoc(t, petstore)

	schemes := doc.Components.SecuritySchemes
	require.Len(t, schemes, 4)

	assert.Equal(t, &openapi.SecurityScheme{Type: "http", Scheme: "bearer"}, schemes["bearer"])
	assert.Equal(t, &openapi.SecurityScheme{Type: "apiKey", Name: "X-API-Key", In: "header"}, schemes["apikey"])
	assert.Equal(t, &openapi.SecurityScheme{Type: "apiKey", Name: "X-Session", In: "cookie"}, schemes["session"])

	partner := schemes["partner"]
	assert.Equal(t, "oauth2", partner.Type)
	require.NotNil(t, partner.Flows)
	assert.Equal(t, DefaultAuthorizationURL, partner.Flows.Implicit.AuthorizationURL)
	assert.Empty(t, partner.Flows.Implicit.Scopes)

	assert.Equal(t, []openapi.SecurityRequirement{
		{"bearer": {}}, {"apikey": {}}, {"session": {}}, {"partner": {}},
	}, doc.Security)
}

func TestRoutes(t *testing.T) {
	_, doc, _ := extractDoc(t, petstore)

	assert.ElementsMatch(t, []string{"/pets", "/pets/{id}", "/DeleteEverything"}, keys(doc.Paths))

	t.Run("query and header parameters", func(t *testing.T) {
		op := doc.Paths["/pets"].Get
		require.NotNil(t, op)
		assert.Equal(t, "ListPets", op.OperationID)
		assert.Equal(t, "ListPets returns all pets.", op.Summary)
		assert.Equal(t, "Results are paged.", op.Description)
		assert.Equal(t, []string{"pets"}, op.Tags)

		require.Len(t, op.Parameters, 3)
		limit, tags, reqID := op.Parameters[0], op.Parameters[1], op.Parameters[2]

		assert.Equal(t, "limit", limit.Name)
		assert.Equal(t, openapi.InQuery, limit.In)
		assert.False(t, limit.Required)
		assert.Equal(t, "form", limit.Style)
		require.NotNil(t, limit.Explode)
		assert.False(t, *limit.Explode)
		assert.Equal(t, "int32", limit.Schema.Format)

		assert.Equal(t, "tags", tags.Name)
		assert.False(t, tags.Required)
		assert.Equal(t, "array", tags.Schema.Type.Primary())

		assert.Equal(t, "X-Request-ID", reqID.Name)
		assert.Equal(t, openapi.InHeader, reqID.In)
		assert.True(t, reqID.Required)

		resp := op.Responses["200"].Content["application/json"].Schema
		assert.Equal(t, "#/components/schemas/Pet", resp.Items.Ref)
	})

	t.Run("path parameter and links", func(t *testing.T) {
		op := doc.Paths["/pets/{id}"].Get
		require.NotNil(t, op)
		assert.Equal(t, "GetPet fetches one pet.", op.Summary)
		assert.Empty(t, op.Description)

		require.Len(t, op.Parameters, 1)
		assert.Equal(t, openapi.InPath, op.Parameters[0].In)
		assert.True(t, op.Parameters[0].Required)
		assert.Equal(t, "int64", op.Parameters[0].Schema.Format)

		links := op.Responses["200"].Links
		require.Contains(t, links, "owner")
		assert.Equal(t, "GetOwner", links["owner"].OperationID)
	})

	t.Run("body and status", func(t *testing.T) {
		op := doc.Paths["/pets"].Post
		require.NotNil(t, op)
		assert.Empty(t, op.Parameters)
		require.NotNil(t, op.RequestBody)
		assert.True(t, op.RequestBody.Required)
		assert.Equal(t, "#/components/schemas/Pet", op.RequestBody.Content["application/json"].Schema.Ref)
		require.Contains(t, op.Responses, "201")
		assert.Equal(t, "Created", op.Responses["201"].Description)
		assert.NotNil(t, op.Security)
		assert.Empty(t, op.Security)
	})

	t.Run("verb prefix", func(t *testing.T) {
		op := doc.Paths["/DeleteEverything"].Delete
		require.NotNil(t, op)
		assert.Equal(t, "DeleteEverything", op.OperationID)
		assert.Nil(t, op.Responses["200"].Content)
	})
}

func TestWebhooksAndCallbacks(t *testing.T) {
	_, doc, report := extractDoc(t, petstore)

	require.Contains(t, doc.Webhooks, "newPet")
	hook := doc.Webhooks["newPet"].Post
	require.NotNil(t, hook)
	assert.Equal(t, "OnNewPet is sent when a pet is added.", hook.Summary)
	assert.Equal(t, "#/components/schemas/Pet", hook.RequestBody.Content["application/json"].Schema.Ref)

	require.Contains(t, doc.Webhooks, "pet.sold")
	assert.NotNil(t, doc.Webhooks["pet.sold"].Put)

	op := doc.Paths["/pets"].Post
	require.Contains(t, op.Callbacks, "status")
	require.Contains(t, op.Callbacks, "done")
	assert.NotNil(t, (*op.Callbacks["status"])["{$request.body#/statusUrl}"].Post)
	assert.NotNil(t, (*op.Callbacks["done"])[DefaultCallbackExpression].Post)
	assert.Empty(t, report.Orphans)
}

func TestSecurityScheme(t *testing.T) {
	tests := []struct {
		prefix string
		attrs  source.Attributes
		want   *openapi.SecurityScheme
	}{
		{"Bearer", nil, &openapi.SecurityScheme{Type: "http", Scheme: "bearer"}},
		{"UserBearer", nil, &openapi.SecurityScheme{Type: "http", Scheme: "bearer"}},
		{"Key", nil, &openapi.SecurityScheme{Type: "apiKey", Name: "X-API-Key", In: "header"}},
		{
			"Basic",
			source.Attributes{{Name: "security", Args: []string{"type=http", "scheme=basic"}}},
			&openapi.SecurityScheme{Type: "http", Scheme: "basic"},
		},
		{
			"Login",
			source.Attributes{{Name: "security", Args: []string{"type=oauth2", "authorizationUrl=https://auth.test/authorize"}}},
			&openapi.SecurityScheme{Type: "oauth2", Flows: &openapi.OAuthFlows{Implicit: &openapi.OAuthFlow{
				AuthorizationURL: "https://auth.test/authorize",
				Scopes:           map[string]string{},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, securityScheme(tt.prefix, tt.attrs))
		})
	}
}

func TestDocHelpers(t *testing.T) {
	t.Run("links", func(t *testing.T) {
		doc := "Fetch.\n@link owner -> GetOwner\n@link broken ->\n@link  next->ListPets "
		assert.Equal(t, map[string]string{"owner": "GetOwner", "next": "ListPets"}, links(doc))
		assert.Equal(t, "Fetch.\n@link broken ->", stripLinks(doc))
	})

	t.Run("split", func(t *testing.T) {
		summary, desc := splitDoc("First line\ncontinues.\n\nMore.\n\nEven more.")
		assert.Equal(t, "First line continues.", summary)
		assert.Equal(t, "More.\n\nEven more.", desc)

		summary, desc = splitDoc("")
		assert.Empty(t, summary)
		assert.Empty(t, desc)
	})

	t.Run("hook names", func(t *testing.T) {
		assert.Equal(t, "newPet", HookName("OnNewPet"))
		assert.Equal(t, "on", HookName("On"))
		assert.Equal(t, "petSold", HookName("PetSold"))
	})
}

func TestOptionsClient(t *testing.T) {
	src := `package api

type API struct {
	BearerToken string
}

func (a *API) GetStatus() (string, error) { return "", nil }

type Client struct{ Name string }
`
	f, err := source.Parse("api.go", []byte(src))
	require.NoError(t, err)

	u := File(f, "api", Options{Client: "API"})
	assert.Contains(t, u.Schemas, "Client")
	assert.NotContains(t, u.Schemas, "API")
	assert.Contains(t, u.SecuritySchemes, "bearer")

	doc, _ := assemble.New(openapi.Info{Title: "x", Version: "1"}).Add(u).Build()
	assert.NotNil(t, doc.Paths["/GetStatus"].Get)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
