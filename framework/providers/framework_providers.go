// Package providers holds the hooks every application container starts with.
package providers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/loader"
)

// ── KernelHook ────────────────────────────────────────────────────────────────

// KernelHook exposes the application configuration as parameters.
//
// Parameters:
//   - "kernel.name"        → APP_NAME
//   - "kernel.environment" → APP_ENV
//   - "kernel.debug"       → APP_DEBUG
//
// PHP equivalent:
//
//	$container->setParameter('kernel.environment', $this->environment);
type KernelHook struct {
	Config *config.Config
}

func (h *KernelHook) Name() string { return "kernel" }

func (h *KernelHook) Container(c *container.Container) error {
	params := []struct {
		name  string
		value any
	}{
		{"kernel.name", h.Config.App.Name},
		{"kernel.environment", h.Config.App.Env},
		{"kernel.debug", h.Config.App.Debug},
	}
	for _, p := range params {
		if err := c.SetParameter(p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}

// ── LoggerHook ────────────────────────────────────────────────────────────────

// LoggerHook makes the application logger injectable.
//
// Services:
//   - "logger" → zerolog.Logger tagged with the kernel name
//
// Implementations:
//   - "Logger" → func(name string) zerolog.Logger
type LoggerHook struct {
	Logger zerolog.Logger
}

func (h *LoggerHook) Name() string { return "logger" }

func (h *LoggerHook) Container(c *container.Container) error {
	base := h.Logger
	err := c.Provide("Logger", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("logger: want 1 argument, got %d", len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("logger: name is %T, not string", args[0])
		}
		return base.With().Str("app", name).Logger(), nil
	})
	if err != nil {
		return err
	}
	def, err := c.Register("logger", "Logger")
	if err != nil {
		return err
	}
	return def.AddArgument(container.Param("kernel.name"))
}

// ── DefinitionsHook ───────────────────────────────────────────────────────────

// DefinitionsHook loads YAML definition files, imports included, and
// remembers which files were read so they can be watched.
type DefinitionsHook struct {
	Loader *loader.Loader
	Paths  []string

	mu   sync.Mutex
	read []string
}

func (h *DefinitionsHook) Name() string { return "definitions" }

func (h *DefinitionsHook) Container(c *container.Container) error {
	read, err := h.Loader.LoadFiles(c, h.Paths...)
	h.mu.Lock()
	h.read = read
	h.mu.Unlock()
	return err
}

// Files returns the absolute paths read by the last Container call.
func (h *DefinitionsHook) Files() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.read...)
}

// ── PlaceholderHook ───────────────────────────────────────────────────────────

// ErrNoConstructor is returned when a placeholder constructor is called.
var ErrNoConstructor = errors.New("no constructor linked into this binary")

// PlaceholderHook lets definitions compile in a binary that does not link
// their constructors, such as the inject CLI. Every implementation without
// a constructor gets one that fails with ErrNoConstructor. Register it
// after the hooks that define services.
type PlaceholderHook struct{}

func (PlaceholderHook) Name() string { return "placeholders" }

func (PlaceholderHook) Container(c *container.Container) error {
	for _, id := range c.ServiceIDs() {
		def, _ := c.Definition(id)
		impl := def.Implementation()
		if c.HasConstructor(impl) {
			continue
		}
		err := c.Provide(impl, func(...any) (any, error) {
			return nil, fmt.Errorf("%s: %w", impl, ErrNoConstructor)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
