package mcp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ToolSpec describes one callable tool exposed by the connector.
type ToolSpec struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Args        []ToolArg `yaml:"args,omitempty"`
}

type ToolArg struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type Manifest struct {
	Tools []ToolSpec `yaml:"tools"`
}

func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read tool manifest %q: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse tool manifest %q: %w", path, err)
	}
	for i, tool := range m.Tools {
		if tool.Name == "" {
			return Manifest{}, fmt.Errorf("tool manifest %q: tools[%d] is missing a name", path, i)
		}
	}
	return m, nil
}

// DefaultManifest is the built-in tool set registered when no manifest file
// is configured. It mirrors the tools the agent orchestrator dispatches to.
func DefaultManifest() Manifest {
	return Manifest{Tools: []ToolSpec{
		{
			Name:        "calendar",
			Description: "Create and list calendar events",
			Args: []ToolArg{
				{Name: "action", Type: "string"},
				{Name: "summary", Type: "string"},
			},
		},
		{
			Name:        "browser",
			Description: "Open a URL in the browser service",
			Args: []ToolArg{
				{Name: "url", Type: "string"},
			},
		},
		{
			Name:        "youtube_search",
			Description: "Search YouTube and return video links",
			Args: []ToolArg{
				{Name: "query", Type: "string"},
			},
		},
	}}
}
