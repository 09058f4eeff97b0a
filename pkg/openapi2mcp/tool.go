// tool.go
package openapi2mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Builder assembles tool descriptors and operation bindings from OpenAPI
// operations. One Builder serves one catalog build; the uniqueness counter
// for renamed tools is scoped to the Builder and starts fresh with it.
type Builder struct {
	conv    *Converter
	group   string
	counter int
	used    map[string]bool
}

// NewBuilder creates a Builder for one catalog build.
func NewBuilder(conv *Converter, group string) *Builder {
	return &Builder{conv: conv, group: group, used: map[string]bool{}}
}

// BuildTool produces a tool descriptor and its operation binding for one
// operation. Operations without an operationId are skipped (nil, nil): the
// tool name is derived from it and there is no useful fallback.
func (b *Builder) BuildTool(op *openapi3.Operation, method, path string) (*Tool, *OperationBinding) {
	if op == nil || op.OperationID == "" {
		return nil, nil
	}

	name := b.toolName(op.OperationID)
	inputSchema, mode, fileFields := b.buildInputSchema(op)

	tool := &Tool{
		Name:         name,
		Description:  b.buildDescription(op),
		InputSchema:  inputSchema,
		OutputSchema: b.buildOutputSchema(op),
	}
	binding := &OperationBinding{
		Method:     method,
		Path:       path,
		Op:         op,
		BodyMode:   mode,
		FileFields: fileFields,
	}
	return tool, binding
}

// toolName derives the protocol tool name from an operationId: hyphen
// separators, the catalog group as prefix, and a counter suffix when the
// result exceeds the protocol's 64 character limit or collides with a name
// already handed out in this build. Names are unique per Builder.
func (b *Builder) toolName(operationID string) string {
	name := b.group + "-" + strings.ReplaceAll(operationID, "_", "-")
	if len(name) > maxToolNameLen {
		name = b.suffixed(name)
	}
	for b.used[name] {
		name = b.suffixed(name)
	}
	b.used[name] = true
	return name
}

// suffixed appends the next counter value, truncating first so the result
// stays within the name length limit.
func (b *Builder) suffixed(name string) string {
	b.counter++
	if len(name) > maxToolNameLen-5 {
		name = name[:maxToolNameLen-5]
	}
	return fmt.Sprintf("%s%04d", name, b.counter)
}

// buildInputSchema flattens path/query/header parameters and request body
// fields into one object schema. Parameters land first, body fields are
// merged afterwards, so on a name collision the body field wins.
func (b *Builder) buildInputSchema(op *openapi3.Operation) (map[string]any, BodyMode, []string) {
	props := map[string]any{}
	var required []string

	for _, pref := range op.Parameters {
		param := pref.Value
		if param == nil || param.Name == versionPinHeader {
			// The version pin is injected by the HTTP layer on every request
			// and must never surface to the calling client.
			continue
		}
		seen := map[string]bool{}
		converted := cloneSchema(b.conv.Convert(param.Schema, seen, true))
		if len(converted) == 0 {
			converted = map[string]any{"type": "string"}
		}
		if param.Description != "" {
			converted["description"] = param.Description
		}
		props[param.Name] = converted
		if param.Required {
			required = append(required, param.Name)
		}
	}

	mode := BodyNone
	var fileFields []string

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		content := op.RequestBody.Value.Content
		if mt := content.Get("multipart/form-data"); mt != nil && mt.Schema != nil {
			mode = BodyMultipart
			fileFields = b.mergeBody(mt.Schema, props, &required)
		} else if mt := content.Get("application/json"); mt != nil && mt.Schema != nil {
			seen := map[string]bool{}
			converted := b.conv.Convert(mt.Schema, seen, true)
			if bodyProps, ok := converted["properties"].(map[string]any); ok {
				mode = BodyJSONFlat
				for fieldName, fieldSchema := range bodyProps {
					props[fieldName] = fieldSchema
				}
				if req, ok := converted["required"].([]string); ok {
					required = mergeRequired(required, req)
				}
			} else {
				// Non-object body: nest it whole under a synthetic field.
				mode = BodyJSONNested
				props["body"] = converted
				required = mergeRequired(required, []string{"body"})
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema, mode, fileFields
}

// mergeBody merges a multipart body schema into the flat property set and
// returns the names of its file-typed fields, recognized by the converted
// uri-reference format.
func (b *Builder) mergeBody(ref *openapi3.SchemaRef, props map[string]any, required *[]string) []string {
	seen := map[string]bool{}
	converted := b.conv.Convert(ref, seen, true)
	var fileFields []string
	if bodyProps, ok := converted["properties"].(map[string]any); ok {
		for fieldName, fieldSchema := range bodyProps {
			props[fieldName] = fieldSchema
			if fs, ok := fieldSchema.(map[string]any); ok && fs["format"] == "uri-reference" {
				fileFields = append(fileFields, fieldName)
			}
		}
	}
	if req, ok := converted["required"].([]string); ok {
		*required = mergeRequired(*required, req)
	}
	sort.Strings(fileFields)
	return fileFields
}

func mergeRequired(existing, extra []string) []string {
	have := map[string]bool{}
	for _, name := range existing {
		have[name] = true
	}
	for _, name := range extra {
		if !have[name] {
			existing = append(existing, name)
			have[name] = true
		}
	}
	return existing
}

// buildDescription assembles the tool description from the operation summary
// or description, followed by an error-response block when the operation
// declares 4xx/5xx responses.
func (b *Builder) buildDescription(op *openapi3.Operation) string {
	desc := op.Summary
	if desc == "" {
		desc = op.Description
	}

	var codes []string
	if op.Responses != nil {
		for code := range op.Responses.Map() {
			if len(code) == 3 && (code[0] == '4' || code[0] == '5') {
				codes = append(codes, code)
			}
		}
	}
	if len(codes) == 0 {
		return desc
	}
	sort.Strings(codes)

	var sb strings.Builder
	sb.WriteString(desc)
	sb.WriteString("\n\nError Responses:")
	responses := op.Responses.Map()
	for _, code := range codes {
		resp := responses[code]
		line := code + ":"
		if resp != nil && resp.Value != nil && resp.Value.Description != nil {
			line += " " + *resp.Value.Description
		}
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	return sb.String()
}

// buildOutputSchema derives the output schema from the first successful
// response, in 200/201/202/204 priority order. Only JSON content is expanded;
// image content becomes a binary string placeholder; anything else becomes a
// generic string carrying the response description.
func (b *Builder) buildOutputSchema(op *openapi3.Operation) map[string]any {
	if op.Responses == nil {
		return nil
	}
	responses := op.Responses.Map()
	for _, code := range []string{"200", "201", "202", "204"} {
		resp, ok := responses[code]
		if !ok || resp == nil || resp.Value == nil {
			continue
		}
		desc := ""
		if resp.Value.Description != nil {
			desc = *resp.Value.Description
		}
		if mt := resp.Value.Content.Get("application/json"); mt != nil && mt.Schema != nil {
			seen := map[string]bool{}
			return b.conv.Convert(mt.Schema, seen, true)
		}
		if resp.Value.Content.Get("image/png") != nil || resp.Value.Content.Get("image/jpeg") != nil {
			return map[string]any{"type": "string", "format": "binary"}
		}
		return map[string]any{"type": "string", "description": desc}
	}
	return nil
}
