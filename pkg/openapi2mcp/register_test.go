package openapi2mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/anytype-mcp/pkg/anytype"
)

const bridgeSpec = `
{
  "openapi": "3.1.0",
  "info": {"title": "Bridge Fixtures", "version": "1.0.0"},
  "paths": {
    "/objects/{id}": {
      "patch": {
        "operationId": "update_object",
        "summary": "Update an object",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "format", "in": "query", "schema": {"type": "string"}}
        ],
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {"title": {"type": "string"}}
              }
            }
          }
        },
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}
`

func bridgeFixture(t *testing.T, handler http.HandlerFunc) (*Tool, *OperationBinding, *anytype.Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	doc := mustLoadDoc(t, bridgeSpec)
	cat := BuildCatalog(doc, "anytype", testLogger())
	require.Len(t, cat.Tools, 1)

	tool := cat.Tools[0]
	binding := cat.Index[tool.Name]
	client := anytype.NewClient(ts.URL, "test-key", 5*time.Second, nil)
	return tool, binding, client, ts
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestInvokeIssuesSingleMatchingRequest(t *testing.T) {
	var calls atomic.Int64
	var gotPath, gotQuery, gotMethod, gotVersion, gotAuth string
	var gotBody []byte

	tool, binding, client, _ := bridgeFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("format")
		gotVersion = r.Header.Get("Anytype-Version")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":{"id":"obj-1"}}`))
	})

	handler := invokeHandler(tool, binding, client, testLogger())
	result, err := handler(context.Background(), callRequest(tool.Name, map[string]any{
		"id":     "obj-1",
		"format": "md",
		"title":  "Renamed",
	}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "PATCH", gotMethod)
	assert.Equal(t, "/objects/obj-1", gotPath)
	assert.Equal(t, "md", gotQuery)
	assert.Equal(t, anytype.APIVersion, gotVersion)
	assert.Equal(t, "Bearer test-key", gotAuth)

	var body map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &body))
	assert.Equal(t, map[string]any{"title": "Renamed"}, body)

	assert.JSONEq(t, `{"object":{"id":"obj-1"}}`, resultText(t, result))
}

func TestInvokeNon2xxBecomesErrorResult(t *testing.T) {
	tool, binding, client, _ := bridgeFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"object not found"}`))
	})

	handler := invokeHandler(tool, binding, client, testLogger())
	result, err := handler(context.Background(), callRequest(tool.Name, map[string]any{"id": "missing"}))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "404")
	assert.Contains(t, text, "object not found")
}

func TestInvokeInvalidArgumentsRejectedBeforeHTTP(t *testing.T) {
	var calls atomic.Int64
	tool, binding, client, _ := bridgeFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	handler := invokeHandler(tool, binding, client, testLogger())
	result, err := handler(context.Background(), callRequest(tool.Name, map[string]any{
		"format": "md",
	}))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Invalid arguments")
	assert.Equal(t, int64(0), calls.Load(), "no HTTP request for invalid arguments")
}

func TestInvokeTransportFailureBecomesErrorResult(t *testing.T) {
	tool, binding, client, ts := bridgeFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	ts.Close()

	handler := invokeHandler(tool, binding, client, testLogger())
	result, err := handler(context.Background(), callRequest(tool.Name, map[string]any{"id": "obj-1"}))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Request failed")
}

func TestInvokeBinaryResponseSavedToFile(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	tool, binding, client, _ := bridgeFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	})

	handler := invokeHandler(tool, binding, client, testLogger())
	result, err := handler(context.Background(), callRequest(tool.Name, map[string]any{"id": "obj-1"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var ref map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &ref))
	assert.Equal(t, "image/png", ref["content_type"])
	assert.Equal(t, float64(len(payload)), ref["size_bytes"])
	assert.NotEmpty(t, ref["file_path"])
}
