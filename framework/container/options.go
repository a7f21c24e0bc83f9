package container

import "github.com/rs/zerolog"

// Option configures a Container created by New, Load or Graph.Scope.
type Option func(*Container)

// WithLogger sets the logger used for compile and build events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Container) { c.log = l.With().Str("component", "container").Logger() }
}

// WithObserver reports compiles and service builds to o.
func WithObserver(o Observer) Option {
	return func(c *Container) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithConstructors registers constructors ahead of any definitions.
func WithConstructors(cs Constructors) Option {
	return func(c *Container) {
		for name, ctor := range cs {
			if ctor != nil {
				c.ctors[name] = ctor
			}
		}
	}
}
