package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Mailer struct{ Transport string }

type NewsletterManager struct {
	Mailer *Mailer
	App    string
}

var constructors = container.Constructors{
	"Mailer": func(args ...any) (any, error) {
		return &Mailer{Transport: args[0].(string)}, nil
	},
	"NewsletterManager": func(args ...any) (any, error) {
		return &NewsletterManager{Mailer: args[0].(*Mailer), App: args[1].(string)}, nil
	},
	"Broken": func(...any) (any, error) { return nil, errors.New("smtp unreachable") },
}

const servicesYAML = `
parameters:
  mailer.transport: sendmail
services:
  mailer:
    class: Mailer
    arguments: ['%mailer.transport%']
  newsletter_manager:
    class: NewsletterManager
    arguments: ['@mailer', '%kernel.name%']
`

func writeDefinitions(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testConfig(files ...string) *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "Shop", Env: "testing"},
		Inject: config.InjectConfig{Definitions: files},
		Log:    config.LogConfig{Level: "error", Format: "json"},
		HTTP:   config.HTTPConfig{Addr: "127.0.0.1:0"},
	}
}

func newApp(cfg *config.Config, opts ...app.Option) *app.Application {
	opts = append([]app.Option{app.WithLogger(zerolog.Nop()), app.WithConstructors(constructors)}, opts...)
	return app.New(cfg, opts...)
}

// ── Boot / Scope ──────────────────────────────────────────────────────────────

func TestApplication_BootAndScope(t *testing.T) {
	path := writeDefinitions(t, servicesYAML)
	a := newApp(testConfig(path))
	require.NoError(t, a.Boot())
	assert.Equal(t, []string{path}, a.DefinitionFiles())

	scope, err := a.Holder.Scope()
	require.NoError(t, err)

	m := container.MustResolve[*NewsletterManager](scope, "newsletter_manager")
	assert.Equal(t, "sendmail", m.Mailer.Transport)
	assert.Equal(t, "Shop", m.App)

	_, err = container.Resolve[zerolog.Logger](scope, "logger")
	assert.NoError(t, err)

	env, _ := scope.Parameter("kernel.environment")
	assert.Equal(t, "testing", env)
	assert.Equal(t, float64(2), testutil.ToFloat64(a.Metrics.ServicesBuilt.WithLabelValues("mailer"))+
		testutil.ToFloat64(a.Metrics.ServicesBuilt.WithLabelValues("newsletter_manager")))
}

func TestApplication_UserHooks(t *testing.T) {
	hook := container.HookFunc(func(c *container.Container) error {
		return c.SetParameter("mailer.transport", "smtp")
	})
	a := newApp(testConfig(writeDefinitions(t, servicesYAML)), app.WithHooks(hook))

	scope, err := a.Holder.Scope()
	require.NoError(t, err)
	m := container.MustResolve[*Mailer](scope, "mailer")
	assert.Equal(t, "smtp", m.Transport, "user hooks run after definition files")
}

func TestApplication_BootFails(t *testing.T) {
	a := newApp(testConfig(writeDefinitions(t, `
services:
  mailer:
    class: Mailer
    arguments: ['%missing%']
`)))
	err := a.Boot()
	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrUnresolvedParameter)
}

func TestApplication_Warmup(t *testing.T) {
	cfg := testConfig(writeDefinitions(t, `
services:
  mailer:
    class: Broken
`))
	_, err := newApp(cfg).Build()
	require.NoError(t, err, "services are lazy without warmup")

	cfg.Inject.Warmup = true
	_, err = newApp(cfg).Build()
	var buildErr *container.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "mailer", buildErr.ID)
}

// ── Watch ─────────────────────────────────────────────────────────────────────

func TestApplication_WatchReloadsDefinitions(t *testing.T) {
	path := writeDefinitions(t, servicesYAML)
	cfg := testConfig(path)
	cfg.Inject.Watch = true
	a := newApp(cfg)
	require.NoError(t, a.Boot())
	defer a.Holder.Stop()

	updated := servicesYAML + "\n  mail:\n    alias: mailer\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		_, ok := a.Holder.Current().Definition("mail")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

// ── HTTP ──────────────────────────────────────────────────────────────────────

func TestApplication_Handler(t *testing.T) {
	a := newApp(testConfig(writeDefinitions(t, servicesYAML)))
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/services/newsletter_manager")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	a := newApp(testConfig(writeDefinitions(t, servicesYAML)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
