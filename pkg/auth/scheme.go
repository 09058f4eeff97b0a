// Package auth covers the two authentication concerns of the server: reading
// the security scheme declared by the OpenAPI document, and the interactive
// challenge flow that provisions a local API key.
package auth

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Scheme describes one security scheme from the document.
type Scheme struct {
	Name     string
	Type     string
	Location string
}

// ExtractScheme returns the first security scheme declared in the document's
// components, or nil when none is declared. The Anytype document declares
// bearer auth; apiKey schemes are recognized for generality.
func ExtractScheme(doc *openapi3.T) *Scheme {
	if doc.Components == nil || doc.Components.SecuritySchemes == nil {
		return nil
	}
	for name, ref := range doc.Components.SecuritySchemes {
		if ref.Value == nil {
			continue
		}
		switch ref.Value.Type {
		case "apiKey":
			location := "header"
			if ref.Value.In == "query" {
				location = "query"
			}
			return &Scheme{Name: name, Type: "apiKey", Location: location + ":" + ref.Value.Name}
		case "http":
			switch ref.Value.Scheme {
			case "bearer":
				return &Scheme{Name: name, Type: "bearer", Location: "header:Authorization"}
			case "basic":
				return &Scheme{Name: name, Type: "basic", Location: "header:Authorization"}
			}
		}
	}
	return nil
}
