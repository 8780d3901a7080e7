package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `package pets

import (
	"context"

	"github.com/google/uuid"
)

// Pet is an animal in the store.
type Pet struct {
	// ID identifies the pet.
	ID   uuid.UUID ` + "`json:\"id\"`" + `
	Name string    ` + "`json:\"name\" openapi:\"minLength=1,maxLength=64\"`" + `
	Tags []string  ` + "`json:\"tags,omitempty\"`" + `
	Age  *int32    ` + "`json:\"age\" openapi:\"minimum=0\"`" + `
	Code string    ` + "`json:\"code\" pattern:\"^[a-z]{2,3}$\"`" + `
	Base
	Owner  *Owner ` + "`json:\"owner,omitempty\"`" + `
	secret string
	Skip   string ` + "`json:\"-\"`" + `
}

// Status of a pet.
type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold-out"
)

// Shape is one of several shapes.
//
//openapi:oneOf
//openapi:discriminator kind
//openapi:mapping circle=Circle
type Shape struct {
	Circle *Circle ` + "`json:\"-\"`" + `
	Square *Square
}

type (
	// Tags is a list of labels.
	Tags []string
	Score float64 // trailing
)

// Client talks to the pet store.
type Client struct {
	BaseURL     string
	BearerToken string
}

// GetPet returns one pet.
//
//openapi:route GET /pets/{id}
func (c *Client) GetPet(ctx context.Context, id string) (*Pet, error) {
	return nil, nil
}

// Webhooks receives events.
type Webhooks interface {
	// OnPetSold fires when a pet is sold.
	//
	//openapi:webhook petSold
	OnPetSold(ctx context.Context, payload Pet) error
}

var registry = map[string]Pet{}

func helper() {}
`

func parseSample(t *testing.T) *File {
	t.Helper()
	f, err := Parse("sample.go", []byte(sample))
	require.NoError(t, err)
	return f
}

func TestParseFile(t *testing.T) {
	f := parseSample(t)

	assert.Equal(t, "pets", f.Package)
	assert.True(t, f.HasImport("context"))
	assert.True(t, f.HasImport("github.com/google/uuid"))
	assert.True(t, f.HasImports)
	assert.True(t, f.ImportGrouped)
	assert.Equal(t, byte(')'), f.Src[f.ImportInsert])

	var keys []string
	for _, d := range f.Decls {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{
		"type:Pet", "type:Status", "const:Status", "type:Shape",
		"type:Tags", "type:Score", "type:Client", "method:Client.GetPet",
		"type:Webhooks", "var:registry", "func:helper",
	}, keys)
}

func TestParseProduct(t *testing.T) {
	f := parseSample(t)
	pet, ok := f.Type("Pet")
	require.True(t, ok)

	assert.Equal(t, KindProduct, pet.Kind)
	assert.Equal(t, "Pet is an animal in the store.", pet.Doc)

	byName := map[string]Field{}
	for _, field := range pet.Fields {
		byName[field.Name] = field
	}

	assert.NotContains(t, byName, "secret")
	assert.NotContains(t, byName, "Skip")

	id := byName["ID"]
	assert.Equal(t, "id", id.WireName)
	assert.Equal(t, "uuid.UUID", id.Type)
	assert.False(t, id.Optional)
	assert.Equal(t, "ID identifies the pet.", id.Doc)

	name := byName["Name"]
	assert.Equal(t, Attributes{
		{Name: "minLength", Args: []string{"1"}},
		{Name: "maxLength", Args: []string{"64"}},
	}, name.Attributes)

	assert.True(t, byName["Tags"].Optional)
	assert.True(t, byName["Age"].Optional)
	assert.True(t, byName["Owner"].Optional)

	code, ok := byName["Code"].Attributes.Get("pattern")
	require.True(t, ok)
	assert.Equal(t, "^[a-z]{2,3}$", code.Arg())

	base := byName["Base"]
	assert.True(t, base.Embedded)
	assert.Equal(t, "Base", base.Type)
}

func TestParseEnum(t *testing.T) {
	f := parseSample(t)

	status, ok := f.Type("Status")
	require.True(t, ok)
	assert.Equal(t, KindEnum, status.Kind)
	assert.Equal(t, "string", status.Underlying)
	assert.Equal(t, []Case{
		{Name: "StatusAvailable", Value: "available"},
		{Name: "StatusSold", Value: "sold-out"},
	}, status.Cases)

	block, ok := f.Lookup("const:Status")
	require.True(t, ok)
	assert.Equal(t, KindConst, block.Kind)
	assert.Equal(t, "Status", block.Name)
}

func TestParseConstBlocks(t *testing.T) {
	src := `package p

type Level int

const (
	LevelLow Level = iota
	LevelHigh
	other = "x"
)

const (
	a = 1
	b = 2
)
`
	f, err := Parse("p.go", []byte(src))
	require.NoError(t, err)

	level, ok := f.Type("Level")
	require.True(t, ok)
	assert.Equal(t, KindEnum, level.Kind)
	require.Len(t, level.Cases, 2)
	assert.Equal(t, "iota", level.Cases[0].Value)
	assert.Equal(t, "LevelHigh", level.Cases[1].Name)

	untyped, ok := f.Lookup("const:a")
	require.True(t, ok)
	assert.Len(t, untyped.Cases, 2)
}

func TestParseUnion(t *testing.T) {
	f := parseSample(t)

	shape, ok := f.Type("Shape")
	require.True(t, ok)
	assert.Equal(t, KindUnion, shape.Kind)
	assert.Equal(t, "Shape is one of several shapes.", shape.Doc)

	disc, ok := shape.Directives.Get("discriminator")
	require.True(t, ok)
	assert.Equal(t, "kind", disc.Arg())

	mapping, ok := shape.Directives.Get("mapping")
	require.True(t, ok)
	assert.Equal(t, []string{"circle=Circle"}, mapping.Args)

	assert.Equal(t, []Case{
		{Name: "Circle", Value: "Circle", Payload: []string{"Circle"}},
		{Name: "Square", Value: "Square", Payload: []string{"Square"}},
	}, shape.Cases)
}

func TestParseGroupedTypes(t *testing.T) {
	f := parseSample(t)

	tags, ok := f.Type("Tags")
	require.True(t, ok)
	assert.True(t, tags.Grouped)
	assert.Equal(t, KindAlias, tags.Kind)
	assert.Equal(t, "[]string", tags.Underlying)
	assert.Equal(t, "Tags []string", f.Text(tags.Content))
	assert.Equal(t, "// Tags is a list of labels.", f.Text(tags.DocSpan))

	score, ok := f.Type("Score")
	require.True(t, ok)
	assert.Equal(t, "Score float64", f.Text(score.Content))
	assert.Equal(t, "Score float64 // trailing", f.Text(score.Full))
}

func TestParseSpans(t *testing.T) {
	f := parseSample(t)

	client, ok := f.Type("Client")
	require.True(t, ok)
	assert.Equal(t, "type Client struct {\n\tBaseURL     string\n\tBearerToken string\n}", f.Text(client.Content))
	assert.Equal(t, "// Client talks to the pet store.\n"+f.Text(client.Content), f.Text(client.Full))
	assert.False(t, client.Grouped)
}

func TestParseMethods(t *testing.T) {
	f := parseSample(t)

	methods := f.MethodsOf("Client")
	require.Len(t, methods, 1)

	get := methods[0]
	assert.Equal(t, KindMethod, get.Kind)
	assert.Equal(t, "GetPet returns one pet.", get.Doc)

	route, ok := get.Directives.Get("route")
	require.True(t, ok)
	assert.Equal(t, []string{"GET", "/pets/{id}"}, route.Args)

	require.NotNil(t, get.Signature)
	assert.Equal(t, []Param{{Name: "ctx", Type: "context.Context"}, {Name: "id", Type: "string"}}, get.Signature.Params)
	assert.Equal(t, []string{"*Pet", "error"}, get.Signature.Results)

	hooks, ok := f.Type("Webhooks")
	require.True(t, ok)
	assert.Equal(t, KindInterface, hooks.Kind)
	require.Len(t, hooks.Methods, 1)
	assert.Equal(t, "OnPetSold", hooks.Methods[0].Name)
	assert.Equal(t, "OnPetSold fires when a pet is sold.", hooks.Methods[0].Doc)

	webhook, ok := hooks.Methods[0].Directives.Get("webhook")
	require.True(t, ok)
	assert.Equal(t, "petSold", webhook.Arg())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("bad.go", []byte("package p\n\ntype X struct {"))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad.go", pe.Filename)
}

func TestParseNoImports(t *testing.T) {
	f, err := Parse("p.go", []byte("package p\n\ntype A struct{}\n"))
	require.NoError(t, err)
	assert.False(t, f.HasImports)
	assert.Equal(t, len("package p"), f.ImportInsert)
}

func TestAttributes(t *testing.T) {
	as := Attributes{
		{Name: "param", Args: []string{"id", "in=path", "style=simple"}},
		{Name: "param", Args: []string{"q"}},
	}

	a, ok := as.Get("PARAM")
	require.True(t, ok)

	in, ok := a.Option("in")
	require.True(t, ok)
	assert.Equal(t, "path", in)

	_, ok = a.Option("explode")
	assert.False(t, ok)

	assert.Len(t, as.All("param"), 2)
	assert.False(t, as.Has("route"))
	assert.Equal(t, "", Attribute{}.Arg())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "union", KindUnion.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.True(t, KindEnum.IsType())
	assert.False(t, KindMethod.IsType())
}
