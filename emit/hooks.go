package emit

import (
	"maps"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/vitalvas/apisync/extract"
	"github.com/vitalvas/apisync/openapi"
)

// iface is an interface of requests the API sends: webhooks or the
// callbacks of one operation.
type iface struct {
	Name    string
	Comment []string
	Methods []hookMethod
}

type hookMethod struct {
	Name    string
	Comment []string
	Params  string
	Result  string
}

func webhooks(doc *openapi.Document, name string, taken names, types *goTypes) *iface {
	if doc == nil || len(doc.Webhooks) == 0 {
		return nil
	}

	it := &iface{Name: taken.claim(name)}
	var directives []string
	if it.Name != extract.WebhooksInterface {
		directives = append(directives, "webhooks")
	}
	it.Comment = comment(it.Name+" are the requests the API sends to subscribers.", directives)

	members := newNames()
	for _, hookName := range slices.Sorted(maps.Keys(doc.Webhooks)) {
		item := doc.Webhooks[hookName]
		if item == nil {
			continue
		}
		for _, m := range item.Methods() {
			directive := "webhook " + hookName
			if m.Name != "POST" {
				directive += " " + m.Name
			}
			it.Methods = append(it.Methods, hook(doc, types, hookName, m.Operation, directive, members))
		}
	}
	return it
}

// callbacks renders one interface per operation with callbacks, in
// client method order.
func callbacks(doc *openapi.Document, c *client, taken names) []*iface {
	if doc == nil || c == nil {
		return nil
	}

	var out []*iface
	for _, path := range slices.Sorted(maps.Keys(doc.Paths)) {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		for _, m := range item.Methods() {
			op := m.Operation
			if len(op.Callbacks) == 0 {
				continue
			}
			out = append(out, callbackInterface(doc, c, op, taken))
		}
	}
	return out
}

func callbackInterface(doc *openapi.Document, c *client, op *openapi.Operation, taken names) *iface {
	goName := c.methodFor[op]
	id := op.OperationID
	if id == "" {
		id = goName
	}

	it := &iface{Name: taken.claim(goName + extract.CallbacksSuffix)}
	var directives []string
	if strings.TrimSuffix(it.Name, extract.CallbacksSuffix) != id {
		directives = append(directives, "callbacks "+id)
	}
	it.Comment = comment(it.Name+" are the requests the API sends back during "+goName+".", directives)

	members := newNames()
	for _, cbName := range slices.Sorted(maps.Keys(op.Callbacks)) {
		cb := op.Callbacks[cbName]
		if cb == nil {
			continue
		}
		for _, expression := range slices.Sorted(maps.Keys(*cb)) {
			item := (*cb)[expression]
			if item == nil {
				continue
			}
			for _, m := range item.Methods() {
				directive := "callback " + expression
				if m.Name != "POST" {
					directive += " " + m.Name
				}
				it.Methods = append(it.Methods, hook(doc, c.types, cbName, m.Operation, directive, members))
			}
		}
	}
	return it
}

// hook renders one webhook or callback method. The request body is the
// payload parameter and the 200 response, when it has content, the
// result.
func hook(doc *openapi.Document, types *goTypes, name string, op *openapi.Operation, directive string, members names) hookMethod {
	goName := members.claim("On" + strcase.ToCamel(name))

	signature := []string{"ctx context.Context"}
	if body := doc.ResolveRequestBody(op.RequestBody); body != nil && len(body.Content) > 0 {
		signature = append(signature, "payload "+types.of(body.Content[preferredContent(body.Content)].Schema))
	}

	hm := hookMethod{Name: goName, Params: strings.Join(signature, ", ")}
	if resp := doc.ResolveResponse(op.Responses["200"]); resp != nil && len(resp.Content) > 0 {
		hm.Result = types.of(resp.Content[preferredContent(resp.Content)].Schema)
	}

	directives := append([]string{directive}, operationDirectives(op, "")...)
	hm.Comment = comment(operationDoc(op), directives)
	return hm
}
