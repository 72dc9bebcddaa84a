package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xiaot623/entertainbot/internal/domain"
)

// ExecutorFunc runs one tool against its adapter.
type ExecutorFunc func(ctx context.Context, args Args) (Result, error)

// Tool is a registry entry. Renames maps the model-facing argument name to
// the name the executor reads.
type Tool struct {
	Name    string
	Client  domain.APIClient
	Renames map[string]string
	Exec    ExecutorFunc
}

// Registry is a fixed set of tools keyed by name. It is built once at
// startup and read concurrently afterwards.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry indexes tools by name. Duplicate or incomplete entries are
// rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		if t.Exec == nil {
			return nil, fmt.Errorf("executor is required for %s", t.Name)
		}
		if _, exists := r.tools[t.Name]; exists {
			return nil, fmt.Errorf("executor already registered for %s", t.Name)
		}
		r.tools[t.Name] = t
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClientFor reports which content API serves name.
func (r *Registry) ClientFor(name string) domain.APIClient {
	if t, ok := r.tools[name]; ok && t.Client != "" {
		return t.Client
	}
	return domain.ClientUnknown
}

// Args are decoded tool-call arguments. JSON numbers arrive as float64;
// models occasionally send numbers as strings, so both are accepted.
type Args map[string]any

// rename applies a tool's argument renames, returning a new map.
func (a Args) rename(renames map[string]string) Args {
	out := make(Args, len(a))
	for k, v := range a {
		if to, ok := renames[k]; ok {
			k = to
		}
		out[k] = v
	}
	return out
}

// String returns key as a string, or def when absent.
func (a Args) String(key, def string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("argument '%s' must be a string", key)
	}
}

// RequiredString returns key as a non-empty string.
func (a Args) RequiredString(key string) (string, error) {
	if _, ok := a[key]; !ok {
		return "", missing(key)
	}
	s, err := a.String(key, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument '%s' must not be empty", key)
	}
	return s, nil
}

// Int returns key as an int, or def when absent.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("argument '%s' must be an integer", key)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("argument '%s' must be an integer", key)
	}
}

// RequiredInt returns key as an int and fails when it is absent.
func (a Args) RequiredInt(key string) (int, error) {
	if v, ok := a[key]; !ok || v == nil {
		return 0, missing(key)
	}
	return a.Int(key, 0)
}

func missing(key string) error {
	return fmt.Errorf("missing required argument '%s'", key)
}
