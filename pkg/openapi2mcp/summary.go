// summary.go
package openapi2mcp

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// toolListing is the YAML shape of one catalog entry.
type toolListing struct {
	Name        string `yaml:"name"`
	Method      string `yaml:"method"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// Summary renders a human-readable overview of the catalog, grouped by HTTP
// method, for startup logs and the list-tools command.
func (c *Catalog) Summary() string {
	byMethod := map[string][]string{}
	for _, tool := range c.Tools {
		binding := c.Index[tool.Name]
		byMethod[binding.Method] = append(byMethod[binding.Method], fmt.Sprintf("%s  %s %s", tool.Name, binding.Method, binding.Path))
	}

	methods := make([]string, 0, len(byMethod))
	for method := range byMethod {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tool catalog (%d tools, group %q)\n", len(c.Tools), c.Group)
	for _, method := range methods {
		lines := byMethod[method]
		sort.Strings(lines)
		fmt.Fprintf(&sb, "\n%s (%d):\n", method, len(lines))
		for _, line := range lines {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}
	return sb.String()
}

// MarshalYAML renders the catalog as a YAML tool listing. Descriptions are
// cut at the first line so error-response blocks do not flood the output.
func (c *Catalog) MarshalYAML() ([]byte, error) {
	listings := make([]toolListing, 0, len(c.Tools))
	for _, tool := range c.Tools {
		binding := c.Index[tool.Name]
		desc := tool.Description
		if idx := strings.Index(desc, "\n"); idx >= 0 {
			desc = desc[:idx]
		}
		listings = append(listings, toolListing{
			Name:        tool.Name,
			Method:      binding.Method,
			Path:        binding.Path,
			Description: desc,
		})
	}
	return yaml.Marshal(map[string]any{"tools": listings})
}
