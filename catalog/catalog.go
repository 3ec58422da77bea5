package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tool describes one remote operation in the static catalog
type Tool struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Category    string         `yaml:"category"`
	InputSchema map[string]any `yaml:"input_schema"`
}

// Catalog is an immutable index of the tools known to the worker.
// It is built once at startup and shared read-only across requests.
type Catalog struct {
	tools  []Tool
	byName map[string]int
}

// Load reads a catalog YAML file of the form:
//
//	tools:
//	  - name: echo
//	    description: Echo the arguments back
//	    category: diagnostics
//	    input_schema:
//	      type: object
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var doc struct {
		Tools []Tool `yaml:"tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return FromTools(doc.Tools)
}

// FromTools builds a catalog from an in-memory tool list
func FromTools(tools []Tool) (*Catalog, error) {
	c := &Catalog{
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog tool with empty name")
		}
		if _, exists := c.byName[t.Name]; exists {
			return nil, fmt.Errorf("duplicate catalog tool: %s", t.Name)
		}
		c.byName[t.Name] = len(c.tools)
		c.tools = append(c.tools, t)
	}
	return c, nil
}

// Empty returns a catalog with no tools
func Empty() *Catalog {
	c, _ := FromTools(nil)
	return c
}

// Get returns the named tool and whether it exists
func (c *Catalog) Get(name string) (Tool, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Tool{}, false
	}
	return c.tools[idx], true
}

// List returns all tools in catalog order
func (c *Catalog) List() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Len returns the number of tools in the catalog
func (c *Catalog) Len() int {
	return len(c.tools)
}

// Search returns tools whose name or description contains the query,
// case-insensitively. An empty query matches nothing.
func (c *Catalog) Search(query string) []Tool {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var out []Tool
	for _, t := range c.tools {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

// InCategory returns all tools in the given category
func (c *Catalog) InCategory(category string) []Tool {
	var out []Tool
	for _, t := range c.tools {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the sorted set of category names present in the catalog
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, t := range c.tools {
		if t.Category != "" {
			seen[t.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
