package loader

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/anytype-mcp/pkg/anytype"
)

const sampleYAML = `
openapi: 3.1.0
info:
  title: Anytype API
  version: 2025-05-20
servers:
  - url: http://localhost:31009
paths:
  /v1/spaces:
    get:
      operationId: list_spaces
      responses:
        "200":
          description: ok
`

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Anytype API", doc.Info.Title)
	assert.Equal(t, 1, doc.Paths.Len())
}

func TestLoadFromURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleYAML))
	}))
	defer ts.Close()

	doc, err := Load(ts.URL + "/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Anytype API", doc.Info.Title)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadURLErrorStatusFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := Load(ts.URL + "/openapi.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsNonOpenAPI3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	bad := `
swagger: "2.0"
info:
  title: Old API
  version: "1.0"
paths:
  /things:
    get:
      responses:
        "200":
          description: ok
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsEmptyPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	bad := `
openapi: 3.1.0
info:
  title: Empty API
  version: "1.0"
paths: {}
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:31009", BaseURL(doc))

	doc.Servers = nil
	assert.Equal(t, anytype.DefaultBaseURL, BaseURL(doc))
}
