package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/container"
)

// ── stub hooks ────────────────────────────────────────────────────────────────

// mailerHook mirrors the documented hook_container example.
type mailerHook struct {
	called int
}

func (h *mailerHook) Container(c *container.Container) error {
	h.called++
	if err := c.SetParameter("mailer.transport", "sendmail"); err != nil {
		return err
	}
	def, err := c.Register("mailer", "Mailer")
	if err != nil {
		return err
	}
	if err := def.AddArgument(container.Param("mailer.transport")); err != nil {
		return err
	}
	def, err = c.Register("newsletter_manager", "NewsletterManager")
	if err != nil {
		return err
	}
	return def.AddArgument(container.Ref("mailer"))
}

// bootingHook checks the compiled container.
type bootingHook struct {
	booted  bool
	manager *NewsletterManager
}

func (h *bootingHook) Container(*container.Container) error { return nil }

func (h *bootingHook) Boot(c *container.Container) error {
	h.booted = true
	m, err := container.Resolve[*NewsletterManager](c, "newsletter_manager")
	h.manager = m
	return err
}

type namedHook struct{ err error }

func (h namedHook) Container(*container.Container) error { return h.err }
func (h namedHook) Name() string                          { return "transport" }

// ── Hooks ─────────────────────────────────────────────────────────────────────

func TestHooks_Build(t *testing.T) {
	l := &buildLog{}
	mailer := &mailerHook{}
	booter := &bootingHook{}
	hooks := container.NewHooks(mailer, booter)

	c, err := hooks.Build(container.WithConstructors(l.constructors()))
	require.NoError(t, err)

	assert.True(t, c.Compiled())
	assert.Equal(t, 1, mailer.called)
	assert.True(t, booter.booted)
	require.NotNil(t, booter.manager)
	assert.Equal(t, "sendmail", booter.manager.Mailer.Transport)
}

func TestHooks_RunInRegistrationOrder(t *testing.T) {
	var order []string
	hooks := container.NewHooks(
		container.HookFunc(func(*container.Container) error { order = append(order, "first"); return nil }),
		container.HookFunc(func(*container.Container) error { order = append(order, "second"); return nil }),
	)

	require.NoError(t, hooks.Populate(container.New()))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 2, hooks.Len())
}

func TestHooks_DuplicateAddIgnored(t *testing.T) {
	h := &mailerHook{}
	hooks := container.NewHooks()
	hooks.Add(h)
	hooks.Add(h)
	hooks.Add(nil)

	assert.Equal(t, 1, hooks.Len())
	require.NoError(t, hooks.Populate(container.New()))
	assert.Equal(t, 1, h.called)
}

func TestHooks_ErrorStopsAndNamesHook(t *testing.T) {
	boom := errors.New("boom")
	later := &mailerHook{}
	hooks := container.NewHooks(namedHook{err: boom}, later)

	_, err := hooks.Build()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "hook transport")
	assert.Zero(t, later.called)
}

func TestHooks_DuplicateRegistrationAcrossHooks(t *testing.T) {
	l := &buildLog{}
	hooks := container.NewHooks(&mailerHook{}, &mailerHook{})

	_, err := hooks.Build(container.WithConstructors(l.constructors()))
	assert.ErrorIs(t, err, container.ErrDuplicateService)
}

func TestHooks_CompileErrorSurfaces(t *testing.T) {
	hooks := container.NewHooks(&mailerHook{})

	_, err := hooks.Build()
	assert.ErrorIs(t, err, container.ErrUnknownImplementation)
}

func TestHooks_BootRequiresCompiled(t *testing.T) {
	hooks := container.NewHooks(&bootingHook{})
	assert.ErrorIs(t, hooks.Boot(container.New()), container.ErrNotCompiled)
}

// sliceHook is a comparable struct type whose interface field holds a slice.
type sliceHook struct{ payload any }

func (sliceHook) Container(*container.Container) error { return nil }

func TestHooks_ValueHooksWithSlicesAreKept(t *testing.T) {
	hooks := container.NewHooks()
	assert.NotPanics(t, func() {
		hooks.Add(sliceHook{payload: []string{"a"}})
		hooks.Add(sliceHook{payload: []string{"a"}})
	})
	assert.Equal(t, 2, hooks.Len())
}
