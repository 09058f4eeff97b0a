// schema.go
package openapi2mcp

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/phuslu/log"
)

const componentSchemaPrefix = "#/components/schemas/"

// binaryPathClause is appended to the description of every binary-format field:
// binary payloads are modeled as local file paths, not inline bytes, because
// the transport is JSON-based.
const binaryPathClause = "Provide absolute paths to local files."

// Converter turns OpenAPI schema graphs into JSON Schema trees. A Converter
// owns a cache keyed by ref string so repeated references resolve to the same
// converted schema within one catalog build; the cache is populated only
// during the synchronous build phase and read-only afterwards.
type Converter struct {
	doc    *openapi3.T
	cache  map[string]map[string]any
	logger log.Logger
}

// NewConverter creates a Converter for the given document.
func NewConverter(doc *openapi3.T, logger log.Logger) *Converter {
	return &Converter{
		doc:    doc,
		cache:  make(map[string]map[string]any),
		logger: logger,
	}
}

// Convert converts a schema (or schema reference) into a JSON Schema tree.
// seen is the set of refs already visited in the current top-level conversion
// and guards against cycles; callers start a fresh set per top-level schema.
// When resolveRefs is false, references into #/components/schemas are kept as
// $ref nodes rewritten into a local $defs namespace instead of being expanded.
//
// Conversion never fails: unresolvable refs and cycle hits degrade to a
// placeholder schema and are reported through the logger, so a single broken
// nested schema cannot prevent the rest of the catalog from being built.
func (c *Converter) Convert(ref *openapi3.SchemaRef, seen map[string]bool, resolveRefs bool) map[string]any {
	if ref == nil {
		return nil
	}

	if ref.Ref != "" {
		if !resolveRefs && strings.HasPrefix(ref.Ref, componentSchemaPrefix) {
			name := strings.TrimPrefix(ref.Ref, componentSchemaPrefix)
			out := map[string]any{"$ref": "#/$defs/" + name}
			if ref.Value != nil && ref.Value.Description != "" {
				out["description"] = ref.Value.Description
			}
			return out
		}
		return c.convertRef(ref, seen, resolveRefs)
	}

	return c.convertInline(ref.Value, seen, resolveRefs)
}

// convertRef resolves a reference and converts its target, consulting the
// cache first and guarding against cycles.
func (c *Converter) convertRef(ref *openapi3.SchemaRef, seen map[string]bool, resolveRefs bool) map[string]any {
	if cached, ok := c.cache[ref.Ref]; ok {
		return cached
	}

	if !strings.HasPrefix(ref.Ref, "#/") {
		c.logger.Warn().Str("ref", ref.Ref).Msg("unresolvable external schema reference")
		return c.placeholder(ref)
	}

	if seen[ref.Ref] {
		// Cycle: keep the reference unexpanded rather than recursing forever.
		c.logger.Debug().Str("ref", ref.Ref).Msg("schema reference cycle detected")
		return c.placeholder(ref)
	}

	target := c.resolve(ref.Ref)
	if target == nil {
		c.logger.Warn().Str("ref", ref.Ref).Msg("schema reference resolution failed")
		return c.placeholder(ref)
	}

	seen[ref.Ref] = true
	converted := c.convertInline(target, seen, resolveRefs)
	c.cache[ref.Ref] = converted
	return converted
}

// resolve walks the document along the segments of an internal reference.
// Only component schemas occur in practice, but any #/components section is
// handled the same way.
func (c *Converter) resolve(ref string) *openapi3.Schema {
	segments := strings.Split(strings.TrimPrefix(ref, "#/"), "/")
	if len(segments) != 3 || segments[0] != "components" || c.doc == nil || c.doc.Components == nil {
		return nil
	}
	switch segments[1] {
	case "schemas":
		if sr, ok := c.doc.Components.Schemas[segments[2]]; ok && sr != nil {
			if sr.Ref != "" {
				return c.resolve(sr.Ref)
			}
			return sr.Value
		}
	}
	return nil
}

// placeholder is the degraded schema emitted when a reference cannot be
// expanded. It keeps a best-effort description so the tool stays usable.
func (c *Converter) placeholder(ref *openapi3.SchemaRef) map[string]any {
	name := strings.TrimPrefix(ref.Ref, componentSchemaPrefix)
	out := map[string]any{"$ref": "#/$defs/" + name}
	if ref.Value != nil && ref.Value.Description != "" {
		out["description"] = ref.Value.Description
	}
	return out
}

// convertInline converts an inline schema value.
func (c *Converter) convertInline(val *openapi3.Schema, seen map[string]bool, resolveRefs bool) map[string]any {
	if val == nil {
		return map[string]any{}
	}

	// Union escape hatches come before generic union conversion. The Anytype
	// API models polymorphic value types as oneOf over named reference
	// variants, which do not translate usefully into a generic union for a
	// tool-calling client.
	if len(val.OneOf) > 0 {
		if hasEmojiIconVariant(val.OneOf) {
			return emojiIconSchema()
		}
		if allPropertyValueVariants(val.OneOf) {
			return flattenedPropertyValueSchema(allPropertyLinkVariants(val.OneOf))
		}
	}

	out := map[string]any{}

	if val.Type != nil && len(*val.Type) > 0 {
		out["type"] = (*val.Type)[0]
	}
	if val.Format != "" {
		out["format"] = val.Format
	}
	if val.Description != "" {
		out["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		out["enum"] = val.Enum
	}
	if val.Default != nil {
		out["default"] = val.Default
	}

	// Binary payloads become file-path strings.
	if val.Format == "binary" {
		out["format"] = "uri-reference"
		desc, _ := out["description"].(string)
		if desc != "" {
			desc += " "
		}
		out["description"] = desc + binaryPathClause
	}

	if val.Type != nil && val.Type.Is("object") {
		if len(val.Properties) > 0 {
			props := map[string]any{}
			for name, sub := range val.Properties {
				props[name] = c.Convert(sub, seen, resolveRefs)
			}
			out["properties"] = props
		}
		if len(val.Required) > 0 {
			out["required"] = append([]string(nil), val.Required...)
		}
		out["additionalProperties"] = c.convertAdditionalProperties(val, seen, resolveRefs)
	}

	if val.Type != nil && val.Type.Is("array") && val.Items != nil {
		out["items"] = c.Convert(val.Items, seen, resolveRefs)
	}

	if len(val.OneOf) > 0 {
		out["oneOf"] = c.convertList(val.OneOf, seen, resolveRefs)
	}
	if len(val.AnyOf) > 0 {
		out["anyOf"] = c.convertList(val.AnyOf, seen, resolveRefs)
	}
	if len(val.AllOf) > 0 {
		out["allOf"] = c.convertList(val.AllOf, seen, resolveRefs)
	}

	return out
}

func (c *Converter) convertList(refs openapi3.SchemaRefs, seen map[string]bool, resolveRefs bool) []any {
	list := make([]any, 0, len(refs))
	for _, sub := range refs {
		list = append(list, c.Convert(sub, seen, resolveRefs))
	}
	return list
}

// convertAdditionalProperties normalizes additionalProperties: absent or true
// stays true, a schema is converted, everything else is false.
func (c *Converter) convertAdditionalProperties(val *openapi3.Schema, seen map[string]bool, resolveRefs bool) any {
	ap := val.AdditionalProperties
	if ap.Schema != nil && (ap.Schema.Ref != "" || ap.Schema.Value != nil) {
		return c.Convert(ap.Schema, seen, resolveRefs)
	}
	if ap.Has != nil && !*ap.Has {
		return false
	}
	return true
}

// cloneSchema returns a shallow copy of a converted schema. Cached schemas
// are shared between conversions, so callers that annotate a conversion
// result must write into a copy, never into the returned map itself.
func cloneSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for key, value := range schema {
		out[key] = value
	}
	return out
}

// refName returns the bare component name of a schema reference, or "".
func refName(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Ref == "" {
		return ""
	}
	return ref.Ref[strings.LastIndex(ref.Ref, "/")+1:]
}

// hasEmojiIconVariant reports whether any oneOf branch references the emoji
// icon schema.
func hasEmojiIconVariant(oneOf openapi3.SchemaRefs) bool {
	for _, sub := range oneOf {
		if strings.Contains(refName(sub), "Emoji") {
			return true
		}
	}
	return false
}

// allPropertyValueVariants reports whether every oneOf branch is a reference
// to a property value variant.
func allPropertyValueVariants(oneOf openapi3.SchemaRefs) bool {
	for _, sub := range oneOf {
		name := refName(sub)
		if !strings.HasSuffix(name, "PropertyValue") && !strings.HasSuffix(name, "PropertyLinkValue") {
			return false
		}
	}
	return len(oneOf) > 0
}

// allPropertyLinkVariants reports whether every oneOf branch is a link variant.
func allPropertyLinkVariants(oneOf openapi3.SchemaRefs) bool {
	for _, sub := range oneOf {
		if !strings.HasSuffix(refName(sub), "PropertyLinkValue") {
			return false
		}
	}
	return len(oneOf) > 0
}

// emojiIconSchema is the fixed replacement for icon unions: instead of a
// tagged union of icon variants, the client sees one emoji-shaped object.
func emojiIconSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"emoji": map[string]any{
				"type":        "string",
				"description": "The emoji character",
			},
			"format": map[string]any{
				"type": "string",
				"enum": []any{"emoji"},
			},
		},
		"additionalProperties": true,
	}
}

// flattenedPropertyValueSchema replaces a union of property value variants
// with one self-describing object exposing every possible value-type field,
// so the client does not have to disambiguate the union from reference names.
// Link variants carry only the value fields; full variants also carry the
// property identity fields.
func flattenedPropertyValueSchema(linkOnly bool) map[string]any {
	props := map[string]any{
		"text":         map[string]any{"type": "string", "description": "Text property value"},
		"number":       map[string]any{"type": "number", "description": "Number property value"},
		"select":       map[string]any{"type": "string", "description": "Selected option id or name"},
		"multi_select": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Selected option ids or names"},
		"date":         map[string]any{"type": "string", "format": "date-time", "description": "Date property value"},
		"files":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "File object ids"},
		"checkbox":     map[string]any{"type": "boolean", "description": "Checkbox property value"},
		"url":          map[string]any{"type": "string", "description": "URL property value"},
		"email":        map[string]any{"type": "string", "description": "Email property value"},
		"phone":        map[string]any{"type": "string", "description": "Phone property value"},
		"objects":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Linked object ids"},
	}
	if !linkOnly {
		props["id"] = map[string]any{"type": "string", "description": "The id of the property"}
		props["key"] = map[string]any{"type": "string", "description": "The key of the property"}
		props["name"] = map[string]any{"type": "string", "description": "The name of the property"}
		props["object"] = map[string]any{"type": "string", "description": "The object type, always property"}
	}
	return map[string]any{
		"type":        "object",
		"description": "Property value. Exactly one value field should be set, matching the property format.",
		"properties":  props,
	}
}
