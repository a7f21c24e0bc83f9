// Package container provides a dependency-injection container builder for
// extension modules.
//
// # Overview
//
// Hooks receive a Container while it is being built and add parameters and
// service definitions. A definition names an implementation (a constructor
// registered with Provide or WithConstructors) and an ordered list of
// constructor arguments: literal values, parameter references and service
// references. Compile validates the whole graph and freezes it; services are
// then built lazily, dependencies first, once per container.
//
// Because Go has no runtime constructor lookup by class name, implementation
// references resolve through an explicit Constructors table.
//
// # Lifecycle
//
//  1. Create: c := container.New(container.WithConstructors(ctors))
//  2. Populate: hooks call SetParameter, Register, AddArgument
//  3. Compile: c.Compile() fails fast on unset parameters, unknown
//     services, unknown implementations and cycles
//  4. Serve: c.Get("newsletter_manager")
//
// # Registration
//
//	// PHP: $container->setParameter('mailer.transport', 'sendmail');
//	c.SetParameter("mailer.transport", "sendmail")
//
//	// PHP: $container->register('mailer', 'Mailer')->addArgument('%mailer.transport%');
//	def, _ := c.Register("mailer", "Mailer")
//	def.AddArgument(container.Param("mailer.transport"))
//
//	// PHP: $container->register('newsletter_manager', 'NewsletterManager')
//	//          ->addArgument(new Reference('mailer'));
//	def, _ = c.Register("newsletter_manager", "NewsletterManager")
//	def.AddArgument(container.Ref("mailer"))
//
// # Resolving
//
//	raw, err := c.Get("newsletter_manager")
//	manager, err := container.Resolve[*NewsletterManager](c, "newsletter_manager")
//
// # Sharing a compiled graph
//
// A Container is not safe for concurrent use. Compile once, then hand each
// worker its own scope; scopes share the read-only Graph but not instances.
//
//	graph := c.Graph()
//	scope := graph.Scope()
//
// # Dump and Load
//
// Building a container through hooks is expensive. Dump writes the compiled
// definitions as YAML; Load compiles them again without running any hook.
//
//	data, _ := c.Dump()
//	restored, err := container.Load(data, container.WithConstructors(ctors))
package container
