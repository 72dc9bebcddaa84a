package tools

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var definitionsYAML []byte

// Definition is the JSON-schema description of one tool as advertised to
// the model.
type Definition struct {
	Name        string         `yaml:"name"`
	Client      string         `yaml:"client"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// Required lists the parameters the schema marks as required.
func (d Definition) Required() []string {
	raw, _ := d.Parameters["required"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Definitions parses the embedded tool schema.
func Definitions() ([]Definition, error) {
	var defs []Definition
	if err := yaml.Unmarshal(definitionsYAML, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse tool definitions: %w", err)
	}
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("tool definition %d has no name", i)
		}
		if d.Parameters == nil {
			defs[i].Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
		}
	}
	return defs, nil
}

// MustDefinitions is Definitions for package-level initialization.
func MustDefinitions() []Definition {
	defs, err := Definitions()
	if err != nil {
		panic(err)
	}
	return defs
}

// CheckDefinitions verifies that defs and registry describe the same set of
// tools.
func CheckDefinitions(defs []Definition, registry *Registry) error {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if _, ok := registry.Lookup(d.Name); !ok {
			return fmt.Errorf("tool %s has a schema but no executor", d.Name)
		}
		if string(registry.ClientFor(d.Name)) != d.Client {
			return fmt.Errorf("tool %s: schema client %q, executor client %q", d.Name, d.Client, registry.ClientFor(d.Name))
		}
		seen[d.Name] = true
	}
	for _, name := range registry.Names() {
		if !seen[name] {
			return fmt.Errorf("tool %s has an executor but no schema", name)
		}
	}
	return nil
}
