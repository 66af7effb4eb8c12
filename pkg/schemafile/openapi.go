package schemafile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrOperationNotFound is returned when the OpenAPI document has no matching
// operation.
var ErrOperationNotFound = errors.New("schemafile: operation not found")

var requestMediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

// FromOpenAPI builds a document from the request body of one operation.
// operationID matches an operationId or, for operations without one,
// "method:path" in lower-case method form (e.g. "post:/users").
//
// Objects become groups whose leaves carry dotted names, enums become
// selects, and JSON Schema constraints become validators.
func FromOpenAPI(ctx context.Context, raw []byte, operationID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if len(raw) == 0 {
		return Document{}, errors.New("schemafile: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return Document{}, fmt.Errorf("schemafile: load openapi: %w", err)
	}

	op, id := findOperation(spec, operationID)
	if op == nil {
		return Document{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	body := requestSchema(op.RequestBody)
	if body == nil || body.Value == nil {
		return Document{}, fmt.Errorf("schemafile: operation %q has no request body schema", id)
	}

	doc := Document{
		ID:     id,
		Title:  firstNonEmpty(op.Summary, body.Value.Title),
		Source: "openapi:" + id,
	}
	doc.Fields = propertyNodes(body.Value, "")
	return doc, nil
}

// OpenAPIOperations lists the operation ids FromOpenAPI accepts.
func OpenAPIOperations(ctx context.Context, raw []byte) ([]string, error) {
	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("schemafile: load openapi: %w", err)
	}
	var ids []string
	eachOperation(spec, func(id string, _ *openapi3.Operation) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids, nil
}

func findOperation(spec *openapi3.T, want string) (*openapi3.Operation, string) {
	want = strings.TrimSpace(want)
	var (
		found *openapi3.Operation
		id    string
	)
	eachOperation(spec, func(opID string, op *openapi3.Operation) bool {
		if opID == want {
			found, id = op, opID
			return false
		}
		return true
	})
	return found, id
}

func eachOperation(spec *openapi3.T, fn func(id string, op *openapi3.Operation) bool) {
	if spec == nil || spec.Paths == nil {
		return
	}
	paths := spec.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		methods := item.Operations()
		names := make([]string, 0, len(methods))
		for method := range methods {
			names = append(names, method)
		}
		sort.Strings(names)
		for _, method := range names {
			op := methods[method]
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			if !fn(id, op) {
				return
			}
		}
	}
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range requestMediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

func propertyNodes(obj *openapi3.Schema, prefix string) []NodeSpec {
	names := make([]string, 0, len(obj.Properties))
	for name := range obj.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	required := make(map[string]bool, len(obj.Required))
	for _, name := range obj.Required {
		required[name] = true
	}

	nodes := make([]NodeSpec, 0, len(names))
	for _, name := range names {
		ref := obj.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		prop := ref.Value
		if schemaType(prop) == "object" && len(prop.Properties) > 0 {
			nodes = append(nodes, NodeSpec{
				Group:    path,
				Label:    firstNonEmpty(prop.Title, name),
				Children: propertyNodes(prop, path),
			})
			continue
		}
		nodes = append(nodes, leafFromSchema(path, name, prop, required[name]))
	}
	return nodes
}

func leafFromSchema(path, name string, prop *openapi3.Schema, required bool) NodeSpec {
	node := NodeSpec{
		Name:    path,
		Label:   firstNonEmpty(prop.Title, name),
		Default: prop.Default,
	}
	if prop.Description != "" {
		node.Hints = map[string]string{"description": prop.Description}
	}
	if prop.ReadOnly {
		node.Readonly = "true"
	}

	spec := ValidateSpec{Required: required}
	switch schemaType(prop) {
	case "boolean":
		node.Kind = "boolean"
		node.Immediate = true
		spec.Required = false
	case "integer":
		node.Kind = "number"
		spec.Integer = true
	case "number":
		node.Kind = "number"
		spec.Number = true
	case "array":
		if prop.Items != nil && prop.Items.Value != nil && len(prop.Items.Value.Enum) > 0 {
			node.Kind = "multiselect"
			node.Hints = withOptions(node.Hints, prop.Items.Value.Enum)
		} else {
			node.Kind = "custom"
		}
	default:
		node.Kind = "text"
		if prop.MinLength > 0 {
			n := int(prop.MinLength)
			spec.MinLength = &n
		}
		if prop.MaxLength != nil {
			n := int(*prop.MaxLength)
			spec.MaxLength = &n
		}
		spec.Pattern = prop.Pattern
	}
	if len(prop.Enum) > 0 {
		node.Kind = "select"
		node.Immediate = true
		node.Hints = withOptions(node.Hints, prop.Enum)
	}
	if prop.Min != nil {
		v := *prop.Min
		spec.Min = &v
	}
	if prop.Max != nil {
		v := *prop.Max
		spec.Max = &v
	}

	if spec != (ValidateSpec{}) {
		node.Validate = &spec
	}
	return node
}

func schemaType(s *openapi3.Schema) string {
	if s.Type == nil {
		if len(s.Properties) > 0 {
			return "object"
		}
		return ""
	}
	for _, t := range s.Type.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}

func withOptions(hints map[string]string, values []any) map[string]string {
	if hints == nil {
		hints = make(map[string]string, 1)
	}
	options := make([]string, 0, len(values))
	for _, v := range values {
		switch typed := v.(type) {
		case string:
			options = append(options, typed)
		case float64:
			options = append(options, strconv.FormatFloat(typed, 'f', -1, 64))
		default:
			options = append(options, fmt.Sprint(v))
		}
	}
	hints["options"] = strings.Join(options, ",")
	return hints
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
