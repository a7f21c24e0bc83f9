package container

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Graph is the compiled, read-only form of a container's definitions.
// It is safe for concurrent use; instances live in the Containers created
// from it with Scope.
type Graph struct {
	id         string
	compiledAt time.Time

	parameters map[string]any
	defs       map[string]*Definition
	order      []string
	sorted     []string
	aliases    map[string]string
	ctors      Constructors
}

func newGraph(parameters map[string]any, aliases map[string]string, ctors Constructors) *Graph {
	return &Graph{
		id:         uuid.NewString(),
		compiledAt: time.Now().UTC(),
		parameters: cloneParameters(parameters),
		defs:       make(map[string]*Definition),
		aliases:    maps.Clone(aliases),
		ctors:      maps.Clone(ctors),
	}
}

// ID identifies this compilation. Loading a dump keeps the dumped id.
func (g *Graph) ID() string { return g.id }

// CompiledAt returns when the graph was compiled.
func (g *Graph) CompiledAt() time.Time { return g.compiledAt }

// Scope returns a compiled container backed by g with an empty instance
// cache. Constructors always come from the graph.
func (g *Graph) Scope(opts ...Option) *Container {
	c := New(opts...)
	c.state = stateCompiled
	c.graph = g
	return c
}

// Definition returns the frozen definition for id or an alias of it.
func (g *Graph) Definition(id string) (*Definition, bool) {
	def, ok := g.defs[g.canonical(id)]
	return def, ok
}

// ServiceIDs returns service identifiers in registration order.
func (g *Graph) ServiceIDs() []string { return slices.Clone(g.order) }

// Order returns service identifiers with every service after its dependencies.
func (g *Graph) Order() []string { return slices.Clone(g.sorted) }

// Aliases returns a copy of the alias table.
func (g *Graph) Aliases() map[string]string { return maps.Clone(g.aliases) }

// Parameter returns a copy of the value of a parameter.
func (g *Graph) Parameter(name string) (any, bool) {
	v, ok := g.parameters[name]
	return cloneValue(v), ok
}

// Parameters returns a deep copy of all parameters.
func (g *Graph) Parameters() map[string]any { return cloneParameters(g.parameters) }

// Tagged returns the identifiers of services carrying tag, in registration order.
func (g *Graph) Tagged(tag string) []string {
	var ids []string
	for _, id := range g.order {
		if g.defs[id].HasTag(tag) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dependents returns the services that reference id directly.
func (g *Graph) Dependents(id string) []string {
	id = g.canonical(id)
	var ids []string
	for _, other := range g.order {
		for _, ref := range g.defs[other].references() {
			if g.canonical(ref) == id {
				ids = append(ids, other)
				break
			}
		}
	}
	return ids
}

func (g *Graph) has(id string) bool {
	_, ok := g.defs[g.canonical(id)]
	return ok
}

func (g *Graph) canonical(id string) string {
	if target, ok := g.aliases[id]; ok {
		return target
	}
	return id
}
