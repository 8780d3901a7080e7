// Package extract reads a parsed Go source unit into an assemble.Unit.
//
// Exported struct, enumeration, union and named types become component
// schemas. The client struct contributes security schemes (one per
// <Name>Token field) and one operation per exported method. An interface
// named Webhooks declares webhooks, and an interface named
// <OperationID>Callbacks declares the callbacks of that operation.
//
// Behavior is steered by //openapi: directives in doc comments:
//
//	//openapi:ignore                               skip a type or method
//	//openapi:route GET /pets/{id}                  method and path of a client method
//	//openapi:operationId getPet                    operation ID (default: method name)
//	//openapi:tags pets store                       operation tags
//	//openapi:deprecated                            deprecated operation
//	//openapi:response 201                          status code of the result
//	//openapi:param id in=path style=simple explode=false name=petId required
//	//openapi:security bearer                       operation security ("none" for none)
//	//openapi:security type=http scheme=bearer      scheme of a <Name>Token field
//	//openapi:webhook newPet POST                   webhook name and method
//	//openapi:callback {$request.body#/url} POST    callback expression and method
//	//openapi:callbacks createSubscription          operation a Callbacks interface belongs to
//
// A client method without a route directive is routed by its name: a
// name starting with Get, Post, Put, Delete or Patch is served with that
// method at /<Name>; any other method is skipped. A doc line of the form
// "@link name -> operationId" adds a response link and is removed from
// the description.
//
// Declarations that match none of these shapes are skipped silently.
package extract

import (
	"go/token"

	"github.com/vitalvas/apisync/assemble"
	"github.com/vitalvas/apisync/model"
	"github.com/vitalvas/apisync/source"
)

// DefaultClient is the name of the client struct when Options leave it
// unset.
const DefaultClient = "Client"

// Options controls extraction.
type Options struct {
	// Client names the client struct. DefaultClient when empty.
	Client string
}

func (o Options) client() string {
	if o.Client == "" {
		return DefaultClient
	}
	return o.Client
}

// File extracts the unit found in f. name identifies the unit in the
// assembled document.
func File(f *source.File, name string, opts Options) *assemble.Unit {
	u := assemble.NewUnit(name)
	client := opts.client()

	for _, d := range f.Decls {
		if !d.Kind.IsType() || !token.IsExported(d.Name) || d.Directives.Has("ignore") {
			continue
		}

		switch {
		case d.Name == client || d.Directives.Has("client"):
			clientUnit(u, f, d)
		case d.Kind == source.KindInterface && isWebhooks(d):
			webhooks(u, d)
		case d.Kind == source.KindInterface && isCallbacks(d):
			callbacks(u, d)
		default:
			if s, ok := model.ToSchema(d, f); ok {
				u.AddSchema(d.Name, s)
			}
		}
	}

	return u
}
