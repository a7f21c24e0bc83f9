package container

import (
	"fmt"
	"reflect"
)

// ── Hook interface ────────────────────────────────────────────────────────────

// Hook lets an extension module configure a container under construction.
//
//	// PHP:
//	// function hook_container(ContainerBuilder $container) {
//	//     $container->setParameter('mailer.transport', 'sendmail');
//	//     $container->register('mailer', 'Mailer')->addArgument('%mailer.transport%');
//	// }
//
//	type MailerHook struct{}
//
//	func (MailerHook) Container(c *container.Container) error {
//	    if err := c.SetParameter("mailer.transport", "sendmail"); err != nil {
//	        return err
//	    }
//	    def, err := c.Register("mailer", "Mailer")
//	    if err != nil {
//	        return err
//	    }
//	    return def.AddArgument(container.Param("mailer.transport"))
//	}
type Hook interface {
	// Container registers parameters and services. Do not call Get here;
	// the container is not compiled yet.
	Container(c *Container) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(c *Container) error

func (f HookFunc) Container(c *Container) error { return f(c) }

// Booter is implemented by hooks that need the compiled container, for
// example to check that a service builds.
type Booter interface {
	Boot(c *Container) error
}

// Namer gives a hook a readable name for error messages.
type Namer interface {
	Name() string
}

func hookName(h Hook) string {
	if n, ok := h.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// ── Hooks ─────────────────────────────────────────────────────────────────────

// Hooks runs hooks in the order they were added.
type Hooks struct {
	hooks []Hook
}

// NewHooks creates a registry holding hooks.
func NewHooks(hooks ...Hook) *Hooks {
	r := &Hooks{}
	for _, h := range hooks {
		r.Add(h)
	}
	return r
}

// Add appends h. Adding the same pointer hook twice is a no-op.
func (r *Hooks) Add(h Hook) {
	if h == nil {
		return
	}
	// Value hooks can hold slices behind interface fields, where == panics.
	if reflect.TypeOf(h).Kind() == reflect.Pointer {
		for _, existing := range r.hooks {
			if existing == h {
				return
			}
		}
	}
	r.hooks = append(r.hooks, h)
}

// Len returns the number of hooks.
func (r *Hooks) Len() int { return len(r.hooks) }

// Populate calls every hook's Container method on c, stopping at the first error.
func (r *Hooks) Populate(c *Container) error {
	for _, h := range r.hooks {
		if err := h.Container(c); err != nil {
			return fmt.Errorf("hook %s: %w", hookName(h), err)
		}
	}
	return nil
}

// Boot calls Boot on every hook implementing Booter. c must be compiled.
func (r *Hooks) Boot(c *Container) error {
	if !c.Compiled() {
		return ErrNotCompiled
	}
	for _, h := range r.hooks {
		b, ok := h.(Booter)
		if !ok {
			continue
		}
		if err := b.Boot(c); err != nil {
			return fmt.Errorf("boot %s: %w", hookName(h), err)
		}
	}
	return nil
}

// Build creates a container with opts, populates it, compiles it and boots
// the hooks.
func (r *Hooks) Build(opts ...Option) (*Container, error) {
	c := New(opts...)
	if err := r.Populate(c); err != nil {
		return nil, err
	}
	if err := c.Compile(); err != nil {
		return nil, err
	}
	if err := r.Boot(c); err != nil {
		return nil, err
	}
	return c, nil
}
