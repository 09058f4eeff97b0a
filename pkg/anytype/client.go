// Package anytype is the HTTP client for the local Anytype API. It owns the
// base URL, the default header bundle (bearer token plus the API version
// pin), and request encoding for JSON and multipart payloads.
package anytype

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yosida95/uritemplate/v3"
)

// DefaultBaseURL is the local Anytype API endpoint.
const DefaultBaseURL = "http://localhost:31009"

// APIVersion pins every outgoing request to one API revision. The matching
// header never appears in tool input schemas; it is injected here.
const APIVersion = "2025-05-20"

// VersionHeader is the name of the API version pin header.
const VersionHeader = "Anytype-Version"

// FormField is one multipart form part. When FilePath is set the part is a
// file upload read from the local filesystem; otherwise it is a plain value.
type FormField struct {
	Name     string
	Value    string
	FilePath string
}

// Request describes one API call before encoding.
type Request struct {
	Method   string
	Path     string
	PathVars map[string]string
	Query    map[string]string
	Headers  map[string]string
	JSON     any
	Form     []FormField
}

// Response is the decoded outcome of one API call.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client executes API calls with the configured defaults merged in.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
}

// NewClient creates a client. An empty baseURL falls back to DefaultBaseURL;
// an empty apiKey leaves the Authorization header unset. extraHeaders are
// merged last and may override the defaults.
func NewClient(baseURL, apiKey string, timeout time.Duration, extraHeaders map[string]string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	headers := map[string]string{
		VersionHeader: APIVersion,
	}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	for name, value := range extraHeaders {
		headers[name] = value
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes one API call and returns the raw response. Non-2xx statuses
// are returned as responses, not errors; err is non-nil only for encoding
// and transport failures.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	target, err := c.buildURL(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := ""
	switch {
	case len(req.Form) > 0:
		buf, ct, err := encodeMultipart(req.Form)
		if err != nil {
			return nil, err
		}
		body = buf
		contentType = ct
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for name, value := range c.headers {
		httpReq.Header.Set(name, value)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// buildURL expands the path template with the request's path variables and
// appends the query string.
func (c *Client) buildURL(req *Request) (string, error) {
	path := req.Path
	if len(req.PathVars) > 0 {
		expanded, err := expandPath(path, req.PathVars)
		if err != nil {
			return "", err
		}
		path = expanded
	}

	target := c.baseURL + path
	if len(req.Query) > 0 {
		values := url.Values{}
		for name, value := range req.Query {
			values.Set(name, value)
		}
		target += "?" + values.Encode()
	}
	return target, nil
}

// expandPath substitutes {name} placeholders. OpenAPI path templates are a
// subset of RFC 6570 level 1, so uritemplate handles them directly; plain
// replacement is the fallback for templates it rejects.
func expandPath(path string, vars map[string]string) (string, error) {
	tmpl, err := uritemplate.New(path)
	if err == nil {
		values := uritemplate.Values{}
		for name, value := range vars {
			values.Set(name, uritemplate.String(value))
		}
		expanded, err := tmpl.Expand(values)
		if err == nil {
			return expanded, nil
		}
	}
	for name, value := range vars {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path, nil
}

// encodeMultipart builds a multipart/form-data body. File parts stream from
// the local filesystem path given in the field.
func encodeMultipart(fields []FormField) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for _, field := range fields {
		if field.FilePath != "" {
			file, err := os.Open(field.FilePath)
			if err != nil {
				return nil, "", fmt.Errorf("opening file for field %q: %w", field.Name, err)
			}
			part, err := writer.CreateFormFile(field.Name, filepath.Base(field.FilePath))
			if err != nil {
				file.Close()
				return nil, "", fmt.Errorf("creating form file %q: %w", field.Name, err)
			}
			if _, err := io.Copy(part, file); err != nil {
				file.Close()
				return nil, "", fmt.Errorf("reading file for field %q: %w", field.Name, err)
			}
			file.Close()
			continue
		}
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("writing form field %q: %w", field.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}
