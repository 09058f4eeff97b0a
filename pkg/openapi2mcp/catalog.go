// catalog.go
package openapi2mcp

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/phuslu/log"
)

// Catalog is the closed set of tools built from one OpenAPI document, plus
// the operation index the invocation layer uses to reconstruct HTTP calls.
// Built once at startup and never mutated, so unsynchronized concurrent
// reads are safe.
type Catalog struct {
	Group string
	Tools []*Tool
	Index map[string]*OperationBinding
}

// catalogMethods are the HTTP methods exposed as tools. Delete operations
// are excluded by policy: irreversible actions are not callable by default.
var catalogMethods = []string{"get", "post", "put", "patch"}

// BuildCatalog walks every path/method pair in the document and builds the
// tool catalog under the given group prefix. Paths and methods are iterated
// in sorted order so tool ordering, and therefore truncation counters, are
// stable for a given document.
func BuildCatalog(doc *openapi3.T, group string, logger log.Logger) *Catalog {
	conv := NewConverter(doc, logger)
	builder := NewBuilder(conv, group)

	cat := &Catalog{
		Group: group,
		Index: make(map[string]*OperationBinding),
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := pathMap[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range catalogMethods {
			op := ops[strings.ToUpper(method)]
			if op == nil {
				continue
			}
			if isAuthOperation(op) {
				logger.Debug().Str("path", path).Str("method", method).Msg("skipping auth operation")
				continue
			}
			tool, binding := builder.BuildTool(op, strings.ToUpper(method), path)
			if tool == nil {
				logger.Warn().Str("path", path).Str("method", method).Msg("skipping operation without operationId")
				continue
			}
			cat.Tools = append(cat.Tools, tool)
			cat.Index[tool.Name] = binding
		}
	}

	logger.Info().Str("group", group).Int("tools", len(cat.Tools)).Msg("tool catalog built")
	return cat
}

// isAuthOperation reports whether any operation tag marks it as an
// authentication operation. Auth flows are handled by the key provisioning
// command, not exposed as tools.
func isAuthOperation(op *openapi3.Operation) bool {
	for _, tag := range op.Tags {
		if strings.EqualFold(tag, "auth") {
			return true
		}
	}
	return false
}
