// register.go
package openapi2mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"
	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"

	"github.com/ubermorgenland/anytype-mcp/pkg/anytype"
)

// RegisterTools registers every catalog tool on the MCP server. Each handler
// validates arguments against the tool's input schema, reconstructs the HTTP
// call from the operation binding, and maps the response into a tool result.
// Handlers never return a Go error for API failures; non-2xx statuses and
// transport problems become error results so one failed call cannot take
// down the server.
func RegisterTools(srv *server.MCPServer, cat *Catalog, client *anytype.Client, logger log.Logger) error {
	for _, tool := range cat.Tools {
		binding, ok := cat.Index[tool.Name]
		if !ok {
			return fmt.Errorf("no operation binding for tool %q", tool.Name)
		}

		inputJSON, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return fmt.Errorf("encoding input schema for %q: %w", tool.Name, err)
		}
		mcpTool := mcp.NewToolWithRawSchema(tool.Name, tool.Description, inputJSON)
		if tool.OutputSchema != nil {
			outputJSON, err := json.Marshal(tool.OutputSchema)
			if err != nil {
				return fmt.Errorf("encoding output schema for %q: %w", tool.Name, err)
			}
			mcpTool.RawOutputSchema = outputJSON
		}

		srv.AddTool(mcpTool, invokeHandler(tool, binding, client, logger))
		logger.Debug().Str("tool", tool.Name).Str("method", binding.Method).Str("path", binding.Path).Msg("tool registered")
	}
	return nil
}

// invokeHandler builds the call handler for one tool.
func invokeHandler(tool *Tool, binding *OperationBinding, client *anytype.Client, logger log.Logger) server.ToolHandlerFunc {
	schemaLoader := gojsonschema.NewGoLoader(tool.InputSchema)

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqID := uuid.NewString()
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		if result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(args)); err == nil && !result.Valid() {
			var problems []string
			for _, desc := range result.Errors() {
				problems = append(problems, desc.String())
			}
			logger.Warn().Str("request_id", reqID).Str("tool", tool.Name).Strs("problems", problems).Msg("argument validation failed")
			return mcp.NewToolResultError("Invalid arguments: " + strings.Join(problems, "; ")), nil
		}

		apiReq := buildRequest(binding, args)
		logger.Info().Str("request_id", reqID).Str("tool", tool.Name).Str("method", apiReq.Method).Str("path", apiReq.Path).Msg("invoking operation")

		resp, err := client.Do(ctx, apiReq)
		if err != nil {
			logger.Error().Str("request_id", reqID).Str("tool", tool.Name).Err(err).Msg("request failed")
			return mcp.NewToolResultError(fmt.Sprintf("Request failed: %v", err)), nil
		}
		if !resp.IsSuccess() {
			logger.Warn().Str("request_id", reqID).Str("tool", tool.Name).Int("status", resp.StatusCode).Msg("api error response")
			return mcp.NewToolResultError(fmt.Sprintf("API error %d: %s", resp.StatusCode, string(resp.Body))), nil
		}

		return successResult(tool.Name, resp, logger)
	}
}

// buildRequest partitions the call arguments back into path, query, header,
// and body parts, using the same parameter list the input schema was built
// from so body fields never leak into the URL.
func buildRequest(binding *OperationBinding, args map[string]any) *anytype.Request {
	apiReq := &anytype.Request{
		Method:   binding.Method,
		Path:     binding.Path,
		PathVars: map[string]string{},
		Query:    map[string]string{},
		Headers:  map[string]string{},
	}

	body := map[string]any{}
	for name, value := range args {
		body[name] = value
	}

	for _, pref := range binding.Op.Parameters {
		param := pref.Value
		if param == nil {
			continue
		}
		value, ok := args[param.Name]
		if !ok {
			continue
		}
		switch param.In {
		case "path":
			apiReq.PathVars[param.Name] = cast.ToString(value)
			delete(body, param.Name)
		case "query":
			apiReq.Query[param.Name] = cast.ToString(value)
			delete(body, param.Name)
		case "header":
			apiReq.Headers[param.Name] = cast.ToString(value)
			delete(body, param.Name)
		}
	}

	switch binding.BodyMode {
	case BodyMultipart:
		fileSet := map[string]bool{}
		for _, name := range binding.FileFields {
			fileSet[name] = true
		}
		for name, value := range body {
			field := anytype.FormField{Name: name}
			if fileSet[name] {
				field.FilePath = cast.ToString(value)
			} else {
				field.Value = cast.ToString(value)
			}
			apiReq.Form = append(apiReq.Form, field)
		}
	case BodyJSONNested:
		apiReq.JSON = body["body"]
	case BodyJSONFlat:
		if len(body) > 0 {
			apiReq.JSON = body
		}
	}

	return apiReq
}

// successResult maps a 2xx response into a tool result. JSON bodies pass
// through as text; binary content is written to a temp file and returned as
// a file reference, since inline bytes do not survive the JSON transport.
func successResult(toolName string, resp *anytype.Response, logger log.Logger) (*mcp.CallToolResult, error) {
	if isBinaryContent(resp.ContentType) {
		pattern := "anytype-mcp-*" + extensionFor(resp.ContentType)
		tmp, err := os.CreateTemp("", pattern)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Saving binary response: %v", err)), nil
		}
		defer tmp.Close()
		if _, err := tmp.Write(resp.Body); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Saving binary response: %v", err)), nil
		}
		logger.Debug().Str("tool", toolName).Str("file", tmp.Name()).Msg("binary response saved")
		ref, _ := json.Marshal(map[string]any{
			"file_path":    tmp.Name(),
			"content_type": resp.ContentType,
			"size_bytes":   len(resp.Body),
		})
		return mcp.NewToolResultText(string(ref)), nil
	}

	if len(resp.Body) == 0 {
		return mcp.NewToolResultText(`{"status": "ok"}`), nil
	}
	return mcp.NewToolResultText(string(resp.Body)), nil
}

func isBinaryContent(contentType string) bool {
	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.TrimSpace(mediaType)
	switch {
	case strings.HasPrefix(mediaType, "image/"),
		mediaType == "application/octet-stream",
		mediaType == "application/pdf":
		return true
	}
	return false
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "image/png"):
		return ".png"
	case strings.Contains(contentType, "image/jpeg"):
		return ".jpg"
	case strings.Contains(contentType, "application/pdf"):
		return ".pdf"
	}
	return ".bin"
}
