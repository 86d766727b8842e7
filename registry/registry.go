// Package registry implements the node-type lookup table the
// serialization bridge uses to turn a FlowConfig's type names into
// constructors, and the embedding surface's node-type metadata endpoint
// reflects for its palette UI.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/backpackflow/backpackflow-go/contract"
	"github.com/backpackflow/backpackflow-go/node"
)

// Registration describes one registered node type.
type Registration struct {
	// Name is the type name a FlowConfig document references.
	Name string
	// DisplayName is a human-readable label for the UI palette; falls
	// back to Name when empty.
	DisplayName string
	// Category groups related node types in the UI palette (e.g.
	// "control-flow", "llm", "data").
	Category string
	// Segment is the static namespace segment new instances of this
	// type compose under; empty falls back to the instance id.
	Segment string
	// Factory constructs one instance. Required.
	Factory node.Factory
	// ConfigType is a zero-value instance of this type's config struct,
	// reflected into ConfigSchema by Describe.
	ConfigType any
	// InputContract and OutputContract, when set, are rendered into
	// Metadata's Input/OutputSchema by Describe.
	InputContract  contract.DataContract
	OutputContract contract.DataContract
}

// Metadata is what Describe returns: the node-type metadata endpoint
// payload from SPEC_FULL.md §4.6/§6.
type Metadata struct {
	Name         string         `json:"name"`
	DisplayName  string         `json:"displayName"`
	Category     string         `json:"category"`
	ConfigSchema map[string]any `json:"configSchema,omitempty"`
	InputSchema  map[string]any `json:"inputSchema,omitempty"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

// Registry is the lookup table from type name to Registration. The zero
// value is usable (New is a convenience, not a requirement).
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Registration
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]Registration)}
}

// Register adds or replaces the registration for reg.Name.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = make(map[string]Registration)
	}
	r.byID[reg.Name] = reg
}

// Lookup returns the registration for name, if any.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byID[name]
	return reg, ok
}

// Names returns every registered type name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byID))
	for name := range r.byID {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe renders name's UI-facing metadata: its reflected config
// schema plus its declared input/output contracts rendered to the same
// JSON Schema shape. Returns false if name isn't registered.
func (r *Registry) Describe(name string) (Metadata, bool) {
	reg, ok := r.Lookup(name)
	if !ok {
		return Metadata{}, false
	}

	displayName := reg.DisplayName
	if displayName == "" {
		displayName = reg.Name
	}

	meta := Metadata{
		Name:        reg.Name,
		DisplayName: displayName,
		Category:    reg.Category,
	}
	if reg.ConfigType != nil {
		meta.ConfigSchema = reflectConfigSchema(reg.ConfigType)
	}
	if reg.InputContract != nil {
		meta.InputSchema = contract.RenderDoc(reg.InputContract)
	}
	if reg.OutputContract != nil {
		meta.OutputSchema = contract.RenderDoc(reg.OutputContract)
	}
	return meta, true
}

// reflectConfigSchema renders v's struct shape as a JSON Schema document
// via invopop/jsonschema, then round-trips it through encoding/json into
// a plain map so Metadata.ConfigSchema matches the shape contract.RenderDoc
// produces for input/output schemas.
func reflectConfigSchema(v any) map[string]any {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("schema reflection failed: %v", err)}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"error": fmt.Sprintf("schema decode failed: %v", err)}
	}
	return out
}
