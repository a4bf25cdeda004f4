// Package tools provides the gateway's tool catalogue: descriptors parsed
// from the embedded contract, compiled input/output schemas, and the handlers
// that execute each tool.
package tools

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/policy"
)

// Handler executes one tool call with already-validated arguments.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Descriptor is one registered tool: its contract entry plus the compiled
// schemas and bound handler. Descriptors are immutable after registry
// construction.
type Descriptor struct {
	Name            string
	Description     string
	Roles           []auth.Role
	SensitiveFields []string

	// QueryField names the argument holding raw SQL, empty when the tool
	// takes none.
	QueryField string

	InputSchema  map[string]any
	OutputSchema map[string]any

	inputSchema  *compiledSchema
	outputSchema *compiledSchema
	handler      Handler
}

// ValidateInput checks args against the tool's input schema.
func (d *Descriptor) ValidateInput(args map[string]any) error {
	return d.inputSchema.validate(args)
}

// ValidateOutput checks a handler result against the tool's output schema.
func (d *Descriptor) ValidateOutput(result map[string]any) error {
	return d.outputSchema.validate(result)
}

// Execute runs the tool handler.
func (d *Descriptor) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	return d.handler(ctx, args)
}

type toolContract struct {
	Version string      `yaml:"version"`
	Service string      `yaml:"service"`
	Tools   []toolEntry `yaml:"tools"`
}

type toolEntry struct {
	Name            string         `yaml:"name"`
	Description     string         `yaml:"description"`
	Roles           []string       `yaml:"roles"`
	SensitiveFields []string       `yaml:"sensitiveFields"`
	QueryField      string         `yaml:"queryField"`
	InputSchema     map[string]any `yaml:"inputSchema"`
	OutputSchema    map[string]any `yaml:"outputSchema"`
}

// Registry provides read-only access to the parsed tool catalogue.
type Registry struct {
	ordered []*Descriptor
	byName  map[string]*Descriptor
}

// NewRegistry parses the tool contract YAML, compiles every schema, and binds
// each entry to its handler on runner. A contract entry without a matching
// handler is a configuration error.
func NewRegistry(contractYAML []byte, runner *Runner) (*Registry, error) {
	var parsed toolContract
	if err := yaml.Unmarshal(contractYAML, &parsed); err != nil {
		return nil, fmt.Errorf("decoding tool contract: %w", err)
	}
	if len(parsed.Tools) == 0 {
		return nil, fmt.Errorf("tool contract has no tools")
	}

	handlers := runner.handlers()
	registry := &Registry{byName: make(map[string]*Descriptor, len(parsed.Tools))}
	for _, entry := range parsed.Tools {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("tool contract contains empty tool name")
		}
		if _, exists := registry.byName[name]; exists {
			return nil, fmt.Errorf("tool contract contains duplicate tool %q", name)
		}
		if len(entry.Roles) == 0 {
			return nil, fmt.Errorf("tool %q grants no roles", name)
		}

		roles := make([]auth.Role, 0, len(entry.Roles))
		for _, raw := range entry.Roles {
			role, err := auth.ParseRole(raw)
			if err != nil {
				return nil, fmt.Errorf("tool %q: %w", name, err)
			}
			roles = append(roles, role)
		}

		handler, ok := handlers[name]
		if !ok {
			return nil, fmt.Errorf("tool %q has no handler", name)
		}

		inputSchema, err := compileSchema(entry.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q input schema: %w", name, err)
		}
		outputSchema, err := compileSchema(entry.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q output schema: %w", name, err)
		}

		descriptor := &Descriptor{
			Name:            name,
			Description:     strings.TrimSpace(entry.Description),
			Roles:           roles,
			SensitiveFields: entry.SensitiveFields,
			QueryField:      strings.TrimSpace(entry.QueryField),
			InputSchema:     entry.InputSchema,
			OutputSchema:    entry.OutputSchema,
			inputSchema:     inputSchema,
			outputSchema:    outputSchema,
			handler:         handler,
		}
		registry.ordered = append(registry.ordered, descriptor)
		registry.byName[name] = descriptor
	}

	return registry, nil
}

// List returns all descriptors in contract order.
func (r *Registry) List() []*Descriptor {
	items := make([]*Descriptor, 0, len(r.ordered))
	items = append(items, r.ordered...)
	return items
}

// Lookup returns a descriptor by name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	descriptor, ok := r.byName[strings.TrimSpace(name)]
	return descriptor, ok
}

// PolicyEntries projects the contract's role grants into permission table
// entries so the contract stays the single source of authorization truth.
func (r *Registry) PolicyEntries() []policy.Entry {
	entries := make([]policy.Entry, 0, len(r.ordered))
	for _, descriptor := range r.ordered {
		entries = append(entries, policy.Entry{
			Tool:  descriptor.Name,
			Roles: descriptor.Roles,
		})
	}
	return entries
}
