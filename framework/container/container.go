package container

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Constructor builds a concrete service from its resolved arguments.
// Arguments arrive in definition order: literals unchanged, parameter
// references as the parameter value, service references as the instance.
type Constructor func(args ...any) (any, error)

// Constructors maps implementation names to constructors.
type Constructors map[string]Constructor

// Observer is notified about compiles and service builds.
type Observer interface {
	Compiled(services int, took time.Duration, err error)
	ServiceBuilt(id string, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) Compiled(int, time.Duration, error) {}
func (nopObserver) ServiceBuilt(string, time.Duration) {}

type state int

const (
	stateEmpty state = iota
	stateBuilding
	stateCompiled
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container holds parameters and service definitions while it is being
// built, and the compiled Graph plus the instance cache once compiled.
//
// A Container is meant for a single unit of work and is not safe for
// concurrent use. Share the Graph instead and give every worker its own
// Scope.
type Container struct {
	state state

	parameters map[string]any
	defs       map[string]*Definition
	order      []string
	aliases    map[string]string
	ctors      Constructors

	graph     *Graph
	instances map[string]any

	log      zerolog.Logger
	observer Observer
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		parameters: make(map[string]any),
		defs:       make(map[string]*Definition),
		aliases:    make(map[string]string),
		ctors:      make(Constructors),
		instances:  make(map[string]any),
		log:        zerolog.Nop(),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compiled reports whether Compile has succeeded.
func (c *Container) Compiled() bool { return c.state == stateCompiled }

func (c *Container) mutate(op string) error {
	if c.state == stateCompiled {
		return &ContainerFrozenError{Op: op}
	}
	c.state = stateBuilding
	return nil
}

// ── Registration ──────────────────────────────────────────────────────────────

// SetParameter stores a parameter. The last write before Compile wins.
//
//	// PHP: $container->setParameter('mailer.transport', 'sendmail');
//	c.SetParameter("mailer.transport", "sendmail")
func (c *Container) SetParameter(name string, value any) error {
	if err := c.mutate("set parameter " + strconv.Quote(name)); err != nil {
		return err
	}
	c.parameters[name] = value
	return nil
}

// Provide registers the constructor used for services whose implementation
// is name. Providing a name again replaces the constructor.
func (c *Container) Provide(name string, ctor Constructor) error {
	if err := c.mutate("provide " + strconv.Quote(name)); err != nil {
		return err
	}
	if ctor == nil {
		return fmt.Errorf("container: nil constructor for %q", name)
	}
	c.ctors[name] = ctor
	return nil
}

// HasConstructor reports whether a constructor is registered for name.
func (c *Container) HasConstructor(name string) bool {
	if c.graph != nil {
		_, ok := c.graph.ctors[name]
		return ok
	}
	_, ok := c.ctors[name]
	return ok
}

// Register creates a definition for id built by implementation and returns
// it so arguments can be attached.
//
//	// PHP: $container->register('newsletter_manager', 'NewsletterManager')
//	//          ->addArgument(new Reference('mailer'));
//	def, err := c.Register("newsletter_manager", "NewsletterManager")
//	if err != nil {
//	    return err
//	}
//	return def.AddArgument(container.Ref("mailer"))
func (c *Container) Register(id, implementation string) (*Definition, error) {
	if err := c.mutate("register " + strconv.Quote(id)); err != nil {
		return nil, err
	}
	if c.declared(id) {
		return nil, &DuplicateServiceError{ID: id}
	}
	def := &Definition{id: id, implementation: implementation, shared: true, owner: c}
	c.defs[id] = def
	c.order = append(c.order, id)
	return def, nil
}

// SetAlias makes alias resolve to the service id. The target must be a
// registered service (not another alias) by the time Compile runs.
func (c *Container) SetAlias(alias, id string) error {
	if err := c.mutate("alias " + strconv.Quote(alias)); err != nil {
		return err
	}
	if c.declared(alias) {
		return &DuplicateServiceError{ID: alias}
	}
	c.aliases[alias] = id
	return nil
}

// Definition returns the definition registered under id or an alias of it.
func (c *Container) Definition(id string) (*Definition, bool) {
	if c.graph != nil {
		return c.graph.Definition(id)
	}
	if target, ok := c.aliases[id]; ok {
		id = target
	}
	def, ok := c.defs[id]
	return def, ok
}

func (c *Container) declared(id string) bool {
	_, isService := c.defs[id]
	_, isAlias := c.aliases[id]
	return isService || isAlias
}

// ── Compilation ───────────────────────────────────────────────────────────────

// Compile validates the definitions and freezes them into a Graph.
//
// It fails if a parameter reference has no parameter, a service reference or
// alias names no service, an implementation has no constructor, or service
// references form a cycle. A failed Compile leaves the container mutable.
func (c *Container) Compile() error {
	if c.state == stateCompiled {
		return &ContainerFrozenError{Op: "compile"}
	}

	start := time.Now()
	g, err := c.freeze()
	c.observer.Compiled(len(c.order), time.Since(start), err)
	if err != nil {
		c.log.Debug().Err(err).Msg("container compile failed")
		return err
	}

	c.graph = g
	c.state = stateCompiled
	c.log.Debug().
		Str("build", g.id).
		Int("services", len(g.order)).
		Int("parameters", len(g.parameters)).
		Msg("container compiled")
	return nil
}

func (c *Container) freeze() (*Graph, error) {
	for _, alias := range slices.Sorted(maps.Keys(c.aliases)) {
		if _, ok := c.defs[c.aliases[alias]]; !ok {
			return nil, &UnknownServiceError{ID: c.aliases[alias], Referrer: alias}
		}
	}

	for _, id := range c.order {
		def := c.defs[id]
		if _, ok := c.ctors[def.implementation]; !ok {
			return nil, &UnknownImplementationError{ID: id, Implementation: def.implementation}
		}
		for _, arg := range def.args {
			switch arg.Kind {
			case ParameterArgument:
				if _, ok := c.parameters[arg.Name]; !ok {
					return nil, &UnresolvedParameterError{Name: arg.Name, Service: id}
				}
			case ServiceArgument:
				if !c.declared(arg.Name) {
					return nil, &UnknownServiceError{ID: arg.Name, Referrer: id}
				}
			}
		}
	}

	sorted, err := c.dependencyOrder()
	if err != nil {
		return nil, err
	}

	g := newGraph(c.parameters, c.aliases, c.ctors)
	g.sorted = sorted
	for _, id := range c.order {
		g.defs[id] = c.defs[id].detached()
		g.order = append(g.order, id)
	}
	return g, nil
}

// dependencyOrder walks references depth first and returns every service
// after the services it depends on. Revisiting a service that is still in
// progress means the walk found a cycle.
func (c *Container) dependencyOrder() ([]string, error) {
	const (
		unvisited = iota
		inProgress
		done
	)
	marks := make(map[string]int, len(c.order))
	sorted := make([]string, 0, len(c.order))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch marks[id] {
		case done:
			return nil
		case inProgress:
			start := slices.Index(path, id)
			cycle := append(slices.Clone(path[start:]), id)
			return &CyclicDependencyError{Cycle: cycle}
		}

		marks[id] = inProgress
		path = append(path, id)
		for _, ref := range c.defs[id].references() {
			if target, ok := c.aliases[ref]; ok {
				ref = target
			}
			if err := visit(ref); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		marks[id] = done
		sorted = append(sorted, id)
		return nil
	}

	for _, id := range c.order {
		if marks[id] == unvisited {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}
	return sorted, nil
}

// Graph returns the compiled graph, or nil before Compile.
func (c *Container) Graph() *Graph { return c.graph }

// ── Resolution ────────────────────────────────────────────────────────────────

// Get returns the instance for id, building it and any unbuilt dependencies
// first. Shared services are built once per container.
func (c *Container) Get(id string) (any, error) {
	if !c.Has(id) {
		return nil, &UnknownServiceError{ID: id}
	}
	if c.state != stateCompiled {
		return nil, ErrNotCompiled
	}
	return c.build(c.graph.canonical(id))
}

func (c *Container) build(id string) (any, error) {
	if inst, ok := c.instances[id]; ok {
		return inst, nil
	}

	def := c.graph.defs[id]
	args := make([]any, 0, len(def.args))
	for _, arg := range def.args {
		v, err := c.resolve(id, arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	ctor, ok := c.graph.ctors[def.implementation]
	if !ok {
		return nil, &UnknownImplementationError{ID: id, Implementation: def.implementation}
	}

	start := time.Now()
	inst, err := ctor(args...)
	if err != nil {
		return nil, &BuildError{ID: id, Err: err}
	}
	took := time.Since(start)

	if def.shared {
		c.instances[id] = inst
	}
	c.observer.ServiceBuilt(id, took)
	c.log.Debug().
		Str("service", id).
		Str("implementation", def.implementation).
		Dur("took", took).
		Msg("service built")
	return inst, nil
}

func (c *Container) resolve(service string, arg Argument) (any, error) {
	switch arg.Kind {
	case ParameterArgument:
		v, ok := c.graph.parameters[arg.Name]
		if !ok {
			return nil, &UnresolvedParameterError{Name: arg.Name, Service: service}
		}
		return cloneValue(v), nil
	case ServiceArgument:
		if !c.graph.has(arg.Name) {
			return nil, &UnknownServiceError{ID: arg.Name, Referrer: service}
		}
		return c.build(c.graph.canonical(arg.Name))
	default:
		return cloneValue(arg.Value), nil
	}
}

// Warmup builds every shared service in dependency order.
func (c *Container) Warmup() error {
	if c.state != stateCompiled {
		return ErrNotCompiled
	}
	for _, id := range c.graph.sorted {
		if !c.graph.defs[id].shared {
			continue
		}
		if _, err := c.build(id); err != nil {
			return err
		}
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Has reports whether id is a registered service or alias.
func (c *Container) Has(id string) bool {
	if c.graph != nil {
		return c.graph.has(id)
	}
	return c.declared(id)
}

// Initialized reports whether a shared instance for id is cached.
func (c *Container) Initialized(id string) bool {
	if c.graph == nil {
		return false
	}
	_, ok := c.instances[c.graph.canonical(id)]
	return ok
}

// Parameter returns the value of a parameter.
func (c *Container) Parameter(name string) (any, bool) {
	if c.graph != nil {
		return c.graph.Parameter(name)
	}
	v, ok := c.parameters[name]
	return v, ok
}

// Parameters returns a copy of all parameters.
func (c *Container) Parameters() map[string]any {
	if c.graph != nil {
		return c.graph.Parameters()
	}
	return maps.Clone(c.parameters)
}

// ServiceIDs returns the registered service identifiers in registration order.
func (c *Container) ServiceIDs() []string {
	if c.graph != nil {
		return c.graph.ServiceIDs()
	}
	return slices.Clone(c.order)
}

// Tagged returns the identifiers of services carrying tag, in registration order.
func (c *Container) Tagged(tag string) []string {
	if c.graph != nil {
		return c.graph.Tagged(tag)
	}
	var ids []string
	for _, id := range c.order {
		if c.defs[id].HasTag(tag) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	manager, err := container.Resolve[*NewsletterManager](c, "newsletter_manager")
func Resolve[T any](c *Container, id string) (T, error) {
	var zero T
	inst, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("container: service %q is %T, not %s", id, inst, reflect.TypeFor[T]())
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container, id string) T {
	typed, err := Resolve[T](c, id)
	if err != nil {
		panic(err)
	}
	return typed
}
