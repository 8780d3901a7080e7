package extract

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/vitalvas/apisync/assemble"
	"github.com/vitalvas/apisync/model"
	"github.com/vitalvas/apisync/source"
)

const (
	// WebhooksInterface is the interface whose methods declare webhooks.
	WebhooksInterface = "Webhooks"
	// CallbacksSuffix ends the name of an interface declaring the callbacks
	// of the operation named by the rest of it.
	CallbacksSuffix = "Callbacks"
	// DefaultCallbackExpression is the runtime expression of a callback
	// without one.
	DefaultCallbackExpression = "{$request.body#/callbackUrl}"
)

func isWebhooks(d *source.Decl) bool {
	return d.Name == WebhooksInterface || d.Directives.Has("webhooks")
}

func isCallbacks(d *source.Decl) bool {
	if d.Directives.Has("callbacks") {
		return true
	}
	op, ok := strings.CutSuffix(d.Name, CallbacksSuffix)
	return ok && op != ""
}

// HookName derives a webhook or callback name from its Go method name:
// OnNewPet becomes newPet.
func HookName(method string) string {
	if rest, ok := strings.CutPrefix(method, "On"); ok && rest != "" {
		method = rest
	}
	return strcase.ToLowerCamel(method)
}

// hookMethod reads the optional HTTP method argument of a webhook or
// callback directive, POST when absent.
func hookMethod(args []string, i int) string {
	if len(args) > i && assemble.IsMethod(args[i]) {
		return strings.ToUpper(args[i])
	}
	return "POST"
}

func webhooks(u *assemble.Unit, d *source.Decl) {
	for i := range d.Methods {
		m := &d.Methods[i]
		if m.Directives.Has("ignore") {
			continue
		}

		name, method := HookName(m.Name), "POST"
		if attr, ok := m.Directives.Get("webhook"); ok && attr.Arg() != "" {
			name, method = attr.Arg(), hookMethod(attr.Args, 1)
		}

		hook(u.Webhook(name, method), m)
	}
}

func callbacks(u *assemble.Unit, d *source.Decl) {
	operationID := strings.TrimSuffix(d.Name, CallbacksSuffix)
	if attr, ok := d.Directives.Get("callbacks"); ok && attr.Arg() != "" {
		operationID = attr.Arg()
	}

	for i := range d.Methods {
		m := &d.Methods[i]
		if m.Directives.Has("ignore") {
			continue
		}

		expression, method := DefaultCallbackExpression, "POST"
		if attr, ok := m.Directives.Get("callback"); ok && attr.Arg() != "" {
			expression, method = attr.Arg(), hookMethod(attr.Args, 1)
		}

		hook(u.Callback(operationID, HookName(m.Name), expression, method), m)
	}
}

// hook describes a request the API sends: the first non-context parameter
// is the payload and the first non-error result the expected response.
func hook(b *assemble.OperationBuilder, m *source.Method) {
	operation(b, m, "")

	for _, p := range m.Params {
		if !isContext(p.Type) {
			b.Request(model.TypeSchema(p.Type))
			break
		}
	}

	if result := payloadResult(m.Results); result != "" {
		b.Response(200, model.TypeSchema(result))
	} else {
		b.Response(200, nil)
	}
}
