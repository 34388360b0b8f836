package extension

import "fmt"

// Registry holds extension descriptors in discovery order. Resolution
// order follows registration order; the resolver never sorts by
// specificity.
type Registry struct {
	descriptors []Descriptor
	names       map[string]bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds a descriptor. Names must be unique within a registry.
func (g *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("extension name is required")
	}
	if g.names[d.Name] {
		return fmt.Errorf("extension %q already registered", d.Name)
	}
	if d.Match == nil {
		return fmt.Errorf("extension %q: applicability predicate is required", d.Name)
	}
	if d.Transform == nil {
		return fmt.Errorf("extension %q: transform factory is required", d.Name)
	}
	g.names[d.Name] = true
	g.descriptors = append(g.descriptors, d)
	return nil
}

// Descriptors returns the registered descriptors in discovery order.
func (g *Registry) Descriptors() []Descriptor {
	return g.descriptors
}
