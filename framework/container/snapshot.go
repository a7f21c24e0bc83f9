package container

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a set of definitions. Definition files and
// dumps share it:
//
//	parameters:
//	  mailer.transport: sendmail
//	services:
//	  mailer:
//	    class: Mailer
//	    arguments: ['%mailer.transport%']
//	  newsletter_manager:
//	    class: NewsletterManager
//	    arguments: ['@mailer']
//	  mail:
//	    alias: mailer
//
// Literal arguments and parameters must be plain YAML values (scalars,
// lists, maps); other Go values do not survive a dump.
type Document struct {
	Build      string         `yaml:"build,omitempty"`
	CompiledAt time.Time      `yaml:"compiled_at,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	Services   ServiceMap     `yaml:"services,omitempty"`
}

// ServiceSpec is one entry of the services mapping.
type ServiceSpec struct {
	ID        string   `yaml:"-"`
	Class     string   `yaml:"class,omitempty"`
	Alias     string   `yaml:"alias,omitempty"`
	Arguments []any    `yaml:"arguments,omitempty"`
	Shared    *bool    `yaml:"shared,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
}

// ServiceMap keeps services in document order.
type ServiceMap []ServiceSpec

// UnmarshalYAML decodes a mapping of id → ServiceSpec, preserving order.
func (m *ServiceMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("services: line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var spec ServiceSpec
		if err := value.Decode(&spec); err != nil {
			return fmt.Errorf("service %q: %w", key.Value, err)
		}
		spec.ID = key.Value
		*m = append(*m, spec)
	}
	return nil
}

// MarshalYAML encodes the services as a mapping in slice order.
func (m ServiceMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, spec := range m {
		value := &yaml.Node{}
		if err := value.Encode(spec); err != nil {
			return nil, fmt.Errorf("service %q: %w", spec.ID, err)
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: spec.ID}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// Apply replays the document onto c: parameters first in key order, then
// services and aliases in document order.
func (d *Document) Apply(c *Container) error {
	for _, name := range slices.Sorted(maps.Keys(d.Parameters)) {
		if err := c.SetParameter(name, d.Parameters[name]); err != nil {
			return err
		}
	}
	for _, spec := range d.Services {
		if err := spec.apply(c); err != nil {
			return err
		}
	}
	return nil
}

func (s ServiceSpec) apply(c *Container) error {
	if s.Alias != "" {
		if s.Class != "" || len(s.Arguments) > 0 || s.Shared != nil || len(s.Tags) > 0 {
			return fmt.Errorf("container: alias %q cannot declare class, arguments, shared or tags", s.ID)
		}
		return c.SetAlias(s.ID, s.Alias)
	}
	if s.Class == "" {
		return fmt.Errorf("container: service %q has no class", s.ID)
	}

	def, err := c.Register(s.ID, s.Class)
	if err != nil {
		return err
	}
	args := make([]Argument, 0, len(s.Arguments))
	for _, raw := range s.Arguments {
		args = append(args, ParseArgument(raw))
	}
	if err := def.AddArgument(args...); err != nil {
		return err
	}
	if s.Shared != nil {
		if err := def.SetShared(*s.Shared); err != nil {
			return err
		}
	}
	for _, tag := range s.Tags {
		if err := def.AddTag(tag); err != nil {
			return err
		}
	}
	return nil
}

// ── Dump / Load ───────────────────────────────────────────────────────────────

// Document returns the definitions of g. Aliases follow the services,
// sorted by name.
func (g *Graph) Document() *Document {
	doc := &Document{
		Build:      g.id,
		CompiledAt: g.compiledAt,
		Parameters: maps.Clone(g.parameters),
	}
	for _, id := range g.order {
		def := g.defs[id]
		spec := ServiceSpec{ID: id, Class: def.implementation, Tags: def.Tags()}
		for _, arg := range def.args {
			spec.Arguments = append(spec.Arguments, arg.Text())
		}
		if !def.shared {
			shared := false
			spec.Shared = &shared
		}
		doc.Services = append(doc.Services, spec)
	}
	for _, alias := range slices.Sorted(maps.Keys(g.aliases)) {
		doc.Services = append(doc.Services, ServiceSpec{ID: alias, Alias: g.aliases[alias]})
	}
	return doc
}

// Dump serializes the compiled definitions (never instances) as YAML.
//
// Every parameter and literal argument must decode back to the same Go
// value: nil, bool, int, float64, string, []any and map[string]any nest
// freely. Other types, such as int64 or []string, come back as one of those
// and make Dump fail.
func (g *Graph) Dump() (data []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			data, err = nil, fmt.Errorf("container: dump: %v", rec)
		}
	}()
	doc := g.Document()
	data, err = yaml.Marshal(tagFloats(doc))
	if err != nil {
		return nil, fmt.Errorf("container: dump: %w", err)
	}

	var decoded Document
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("container: dump: %w", err)
	}
	if err := sameLiterals(doc, &decoded); err != nil {
		return nil, err
	}
	return data, nil
}

// yamlFloat keeps its !!float tag when the text alone would read as an int.
type yamlFloat float64

func (f yamlFloat) MarshalYAML() (any, error) {
	v := float64(f)
	text := strconv.FormatFloat(v, 'g', -1, 64)
	switch {
	case math.IsInf(v, 1):
		text = ".inf"
	case math.IsInf(v, -1):
		text = "-.inf"
	case math.IsNaN(v):
		text = ".nan"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}, nil
}

// tagFloats returns a copy of doc with every float64 literal wrapped.
func tagFloats(doc *Document) *Document {
	out := *doc
	out.Parameters = make(map[string]any, len(doc.Parameters))
	for name, v := range doc.Parameters {
		out.Parameters[name] = floatNodes(v)
	}
	out.Services = make(ServiceMap, len(doc.Services))
	for i, spec := range doc.Services {
		if spec.Arguments != nil {
			args := make([]any, len(spec.Arguments))
			for j, arg := range spec.Arguments {
				args[j] = floatNodes(arg)
			}
			spec.Arguments = args
		}
		out.Services[i] = spec
	}
	return &out
}

func floatNodes(v any) any {
	switch t := v.(type) {
	case float64:
		return yamlFloat(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = floatNodes(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = floatNodes(item)
		}
		return out
	}
	return v
}

func sameLiterals(want, got *Document) error {
	for name, v := range want.Parameters {
		if back := got.Parameters[name]; !reflect.DeepEqual(v, back) {
			return lostLiteral(name, v, back)
		}
	}
	if len(got.Services) != len(want.Services) {
		return fmt.Errorf("container: dump: %d services read back as %d", len(want.Services), len(got.Services))
	}
	for i, spec := range want.Services {
		back := got.Services[i].Arguments
		if len(back) != len(spec.Arguments) {
			return fmt.Errorf("container: dump: arguments of %q do not survive YAML", spec.ID)
		}
		for j, arg := range spec.Arguments {
			if !reflect.DeepEqual(arg, back[j]) {
				return lostLiteral(spec.ID, arg, back[j])
			}
		}
	}
	return nil
}

func lostLiteral(name string, want, got any) error {
	return fmt.Errorf("container: dump: literal for %q does not survive YAML: %T reads back as %T", name, want, got)
}

// Dump serializes the compiled definitions of c.
func (c *Container) Dump() ([]byte, error) {
	if c.graph == nil {
		return nil, ErrNotCompiled
	}
	return c.graph.Dump()
}

// Load rebuilds a compiled container from a Dump. The definitions are
// compiled again, so constructors for every implementation must be supplied
// through opts.
func Load(data []byte, opts ...Option) (*Container, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("container: decode snapshot: %w", err)
	}

	c := New(opts...)
	if err := doc.Apply(c); err != nil {
		return nil, err
	}
	if err := c.Compile(); err != nil {
		return nil, err
	}
	if doc.Build != "" {
		c.graph.id = doc.Build
	}
	if !doc.CompiledAt.IsZero() {
		c.graph.compiledAt = doc.CompiledAt
	}
	return c, nil
}
