// Package openapi2mcp transforms the Anytype OpenAPI 3.x specification into MCP
// (Model Context Protocol) tools.
//
// This package provides the core conversion pipeline: converting OpenAPI schema
// graphs into JSON Schema trees, generating one MCP tool per callable operation,
// assembling the tool catalog, and registering each tool with a real HTTP handler
// that reconstructs and executes the underlying API call.
//
// # Quick Start
//
//	// Load the Anytype OpenAPI specification
//	doc, err := loader.Load("openapi.yaml")
//	if err != nil {
//		log.Fatal().Err(err).Msg("load spec")
//	}
//
//	// Build the tool catalog and register it with an MCP server
//	cat := openapi2mcp.BuildCatalog(doc, "anytype", logger)
//	srv := server.NewMCPServer(doc.Info.Title, doc.Info.Version)
//	err = openapi2mcp.RegisterTools(srv, cat, client, logger)
//
// The catalog is built once, synchronously, at startup and is read-only
// afterwards, which makes tool lookups safe for concurrent calls.
//
// For the HTTP execution side, see the anytype package.
// For spec loading, see the loader package.
package openapi2mcp

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// maxToolNameLen is the protocol limit on tool name length.
const maxToolNameLen = 64

// versionPinHeader is injected by the HTTP client on every outgoing request and
// must never appear in a tool's input schema.
const versionPinHeader = "Anytype-Version"

// BodyMode describes how a tool's body fields map back onto the HTTP request.
type BodyMode int

const (
	// BodyNone means the operation has no request body.
	BodyNone BodyMode = iota
	// BodyJSONFlat means JSON body fields share the flat argument namespace
	// with parameters.
	BodyJSONFlat
	// BodyJSONNested means the whole JSON body travels under the synthetic
	// "body" argument.
	BodyJSONNested
	// BodyMultipart means body fields are encoded as multipart/form-data,
	// with file fields given as local file paths.
	BodyMultipart
)

// Tool is the descriptor exposed to the MCP client for one operation: a unique
// name, a description carrying summarized error-response documentation, an
// object-typed input schema, and an optional output schema derived from the
// first successful response.
type Tool struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
}

// OperationBinding is the stored association between a tool name and the
// original OpenAPI operation needed to reconstruct the HTTP call. Created once
// at catalog build, never mutated.
type OperationBinding struct {
	Method     string
	Path       string
	Op         *openapi3.Operation
	BodyMode   BodyMode
	FileFields []string
}
