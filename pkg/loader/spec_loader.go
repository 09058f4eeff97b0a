// Package loader fetches and parses the OpenAPI document describing the
// Anytype API, from a local file or an HTTP(S) URL, in YAML or JSON.
package loader

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ubermorgenland/anytype-mcp/pkg/anytype"
)

// Load reads the document from source, which is treated as a URL when it
// carries an http or https scheme and as a file path otherwise, then parses
// and validates it. A document that fails to load or parse is a fatal
// startup condition for the caller; there is no partial fallback.
func Load(source string) (*openapi3.T, error) {
	var data []byte
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = fetch(source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("reading spec from %s: %w", source, err)
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parsing spec from %s: %w", source, err)
	}

	if err := Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid spec from %s: %w", source, err)
	}
	return doc, nil
}

func fetch(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Validate checks the structural minimum this server needs: an OpenAPI 3.x
// version marker, a titled info block, and at least one path.
func Validate(doc *openapi3.T) error {
	if doc.OpenAPI == "" || !strings.HasPrefix(doc.OpenAPI, "3.") {
		return fmt.Errorf("unsupported OpenAPI version %q, need 3.x", doc.OpenAPI)
	}
	if doc.Info == nil || doc.Info.Title == "" {
		return fmt.Errorf("missing info.title")
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return fmt.Errorf("document declares no paths")
	}
	return nil
}

// BaseURL returns the first server URL declared by the document, falling
// back to the local Anytype endpoint when none is declared.
func BaseURL(doc *openapi3.T) string {
	if len(doc.Servers) > 0 && doc.Servers[0] != nil && doc.Servers[0].URL != "" {
		return doc.Servers[0].URL
	}
	return anytype.DefaultBaseURL
}
