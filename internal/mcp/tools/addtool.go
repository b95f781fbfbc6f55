package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a tool after checking that its output type serializes to
// something the SDK's inferred schema accepts. A bad output type is a
// programming error, so AddTool panics with the OutputSchemaError.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	if err := CheckOutputSchema[Out](t.Name); err != nil {
		panic(err)
	}
	sdkmcp.AddTool(srv, t, h)
}

// withCodedErrors makes every error a handler returns a CodedError.
func withCodedErrors[In, Out any](h sdkmcp.ToolHandlerFor[In, Out]) sdkmcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		res, out, err := h(ctx, req, in)
		return res, out, WrapSearchError(err)
	}
}

// OutputSchemaError describes an output type the SDK would reject at call time.
type OutputSchemaError struct {
	Tool   string
	Type   reflect.Type
	Fields []string // offending field paths, when known
	Reason string
}

func (e *OutputSchemaError) Error() string {
	msg := fmt.Sprintf("tool %q: output type %s: %s", e.Tool, e.Type, e.Reason)
	if len(e.Fields) > 0 {
		msg += " (fields: " + strings.Join(e.Fields, ", ") + ")"
	}
	return msg
}

// CheckOutputSchema reports whether the zero value of T validates against the
// schema the SDK infers for T.
//
// encoding/json writes a nil slice as null while the inferred schema says
// "array", so result fields that may be empty need omitzero. json.RawMessage
// is inferred as an array of bytes but marshals as arbitrary JSON, so it is
// rejected outright. Untyped (any) outputs are not checked, and inference
// failures are left for the SDK to report.
func CheckOutputSchema[T any](toolName string) error {
	rt := reflect.TypeFor[T]()
	if rt == reflect.TypeFor[any]() {
		return nil
	}
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if fields := rawMessagePaths(rt); len(fields) > 0 {
		return &OutputSchemaError{
			Tool:   toolName,
			Type:   rt,
			Fields: fields,
			Reason: "json.RawMessage does not match its inferred schema; decode it into any",
		}
	}

	schema, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return nil
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil
	}

	data, err := json.Marshal(reflect.Zero(rt).Interface())
	if err != nil {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	if err := resolved.Validate(&v); err != nil {
		return &OutputSchemaError{
			Tool:   toolName,
			Type:   rt,
			Reason: fmt.Sprintf("zero value %s fails validation: %v; add omitzero to slice and map fields", data, err),
		}
	}
	return nil
}

var rawMessageType = reflect.TypeFor[json.RawMessage]()

// rawMessagePaths walks root breadth-first and returns the dotted path of every
// exported field, slice element or map value typed json.RawMessage.
func rawMessagePaths(root reflect.Type) []string {
	type node struct {
		t    reflect.Type
		path string
	}

	var paths []string
	seen := map[reflect.Type]bool{}
	queue := []node{{t: root}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		t := n.t
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == rawMessageType {
			paths = append(paths, n.path)
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true

		switch t.Kind() {
		case reflect.Struct:
			for i := range t.NumField() {
				if f := t.Field(i); f.IsExported() {
					queue = append(queue, node{t: f.Type, path: join(n.path, f.Name)})
				}
			}
		case reflect.Slice, reflect.Array:
			queue = append(queue, node{t: t.Elem(), path: join(n.path, "[]")})
		case reflect.Map:
			queue = append(queue, node{t: t.Elem(), path: join(n.path, "[value]")})
		}
	}
	return paths
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
