package container

import (
	"slices"
	"strconv"
)

// Definition is the recipe for one service: the implementation to construct
// and the ordered arguments handed to its constructor.
//
// A Definition returned by Register stays mutable until its container is
// compiled. Definitions read back from a Graph are always frozen.
type Definition struct {
	id             string
	implementation string
	args           []Argument
	shared         bool
	tags           []string

	owner *Container
}

// ID returns the service identifier.
func (d *Definition) ID() string { return d.id }

// Implementation returns the constructor name the service is built with.
func (d *Definition) Implementation() string { return d.implementation }

// Arguments returns a copy of the constructor arguments in order.
func (d *Definition) Arguments() []Argument { return cloneArguments(d.args) }

// Shared reports whether one instance is reused for every Get.
func (d *Definition) Shared() bool { return d.shared }

// Tags returns a copy of the tags attached to the definition.
func (d *Definition) Tags() []string { return slices.Clone(d.tags) }

// HasTag reports whether tag is attached to the definition.
func (d *Definition) HasTag(tag string) bool { return slices.Contains(d.tags, tag) }

// AddArgument appends constructor arguments in order.
//
//	// PHP: $container->register('mailer', 'Mailer')->addArgument('%mailer.transport%');
//	def, err := c.Register("mailer", "Mailer")
//	if err != nil {
//	    return err
//	}
//	return def.AddArgument(container.Param("mailer.transport"))
func (d *Definition) AddArgument(args ...Argument) error {
	if d.frozen() {
		return &ContainerFrozenError{Op: "add arguments to " + strconv.Quote(d.id)}
	}
	d.args = append(d.args, args...)
	return nil
}

// SetShared switches between one instance per container (the default) and a
// fresh instance on every Get.
func (d *Definition) SetShared(shared bool) error {
	if d.frozen() {
		return &ContainerFrozenError{Op: "change sharing of " + strconv.Quote(d.id)}
	}
	d.shared = shared
	return nil
}

// AddTag groups the service under tag. Adding a tag twice is a no-op.
func (d *Definition) AddTag(tag string) error {
	if d.frozen() {
		return &ContainerFrozenError{Op: "tag " + strconv.Quote(d.id)}
	}
	if !slices.Contains(d.tags, tag) {
		d.tags = append(d.tags, tag)
	}
	return nil
}

func (d *Definition) frozen() bool {
	return d.owner == nil || d.owner.state == stateCompiled
}

// references returns the service identifiers the definition depends on.
func (d *Definition) references() []string {
	var ids []string
	for _, arg := range d.args {
		if arg.Kind == ServiceArgument {
			ids = append(ids, arg.Name)
		}
	}
	return ids
}

// detached returns a frozen copy that shares nothing with d.
func (d *Definition) detached() *Definition {
	return &Definition{
		id:             d.id,
		implementation: d.implementation,
		args:           cloneArguments(d.args),
		shared:         d.shared,
		tags:           slices.Clone(d.tags),
	}
}
