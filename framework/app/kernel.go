package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/holder"
	"github.com/km-arc/go-inject/framework/inspect"
	"github.com/km-arc/go-inject/framework/loader"
	"github.com/km-arc/go-inject/framework/logging"
	"github.com/km-arc/go-inject/framework/metrics"
	"github.com/km-arc/go-inject/framework/providers"
)

// Application wires configuration, logging, metrics and the container
// hooks together, and keeps the compiled graph in a Holder.
//
//	application := app.New(config.Load(), app.WithConstructors(container.Constructors{
//	    "Mailer": NewMailer,
//	}))
//	scope, err := application.Holder.Scope()
type Application struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Collector
	Hooks   *container.Hooks
	Holder  *holder.Holder

	definitions  *providers.DefinitionsHook
	constructors container.Constructors
	extra        []container.Hook
	logger       *zerolog.Logger
}

// Option configures an Application.
type Option func(*Application)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Application) { a.logger = &l }
}

// WithConstructors makes implementations available to every build.
func WithConstructors(cs container.Constructors) Option {
	return func(a *Application) {
		for name, ctor := range cs {
			a.constructors[name] = ctor
		}
	}
}

// WithHooks registers hooks after the built-in ones.
func WithHooks(hooks ...container.Hook) Option {
	return func(a *Application) { a.extra = append(a.extra, hooks...) }
}

// New creates the application. Built-in hooks run first, in order: kernel
// parameters, the logger service, then the definition files.
func New(cfg *config.Config, opts ...Option) *Application {
	a := &Application{
		Config:       cfg,
		Metrics:      metrics.New(),
		constructors: make(container.Constructors),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger != nil {
		a.Logger = *a.logger
	} else {
		a.Logger = logging.New(cfg.Log)
	}

	a.definitions = &providers.DefinitionsHook{
		Loader: loader.New(a.Logger),
		Paths:  cfg.Inject.Definitions,
	}
	a.Hooks = container.NewHooks(
		&providers.KernelHook{Config: cfg},
		&providers.LoggerHook{Logger: a.Logger},
		a.definitions,
	)
	for _, h := range a.extra {
		a.Hooks.Add(h)
	}

	a.Holder = holder.New(a.Build, a.Logger,
		holder.WithReloadObserver(a.Metrics),
		holder.WithScopeOptions(container.WithLogger(a.Logger), container.WithObserver(a.Metrics)),
	)
	return a
}

func (a *Application) containerOptions() []container.Option {
	return []container.Option{
		container.WithLogger(a.Logger),
		container.WithObserver(a.Metrics),
		container.WithConstructors(a.constructors),
	}
}

// Register adds a hook. It takes effect on the next build or reload.
func (a *Application) Register(h container.Hook) {
	a.Hooks.Add(h)
}

// Build runs every hook on a fresh container and compiles it. With
// INJECT_WARMUP the shared services are built once to surface constructor
// errors early.
func (a *Application) Build() (*container.Container, error) {
	c, err := a.Hooks.Build(a.containerOptions()...)
	if err != nil {
		return nil, err
	}
	if a.Config.Inject.Warmup {
		if err := c.Warmup(); err != nil {
			return nil, fmt.Errorf("warmup: %w", err)
		}
	}
	return c, nil
}

// DefinitionFiles returns the definition files read by the last build.
func (a *Application) DefinitionFiles() []string {
	return a.definitions.Files()
}

// Boot builds the graph and, with INJECT_WATCH, starts watching the
// definition files and SIGHUP.
func (a *Application) Boot() error {
	if _, err := a.Holder.Graph(); err != nil {
		return fmt.Errorf("boot container: %w", err)
	}
	if !a.Config.Inject.Watch {
		return nil
	}

	if err := a.Holder.WatchFiles(a.DefinitionFiles()...); err != nil {
		return err
	}
	// Reloads may pull in new imports.
	a.Holder.OnChange(func(*container.Graph) {
		if err := a.Holder.WatchFiles(a.DefinitionFiles()...); err != nil {
			a.Logger.Error().Err(err).Msg("watch definition files")
		}
	})
	a.Holder.WatchSignals()
	return nil
}

// Handler returns the inspection routes.
func (a *Application) Handler() http.Handler {
	return inspect.New(a.Holder, a.Metrics.Handler(), a.Logger).Router()
}

// Run boots the application and serves the inspection routes on HTTP_ADDR
// until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return err
	}
	defer a.Holder.Stop()

	server := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", server.Addr).
			Str("env", a.Config.App.Env).
			Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
