// Package holder keeps the process-wide compiled container graph and hands
// out per-worker containers built from it.
package holder

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-inject/framework/container"
)

// BuildFunc builds and compiles a container. Only its Graph is kept.
type BuildFunc func() (*container.Container, error)

// ReloadObserver is told about every reload attempt.
type ReloadObserver interface {
	Reloaded(err error)
}

// Option configures a Holder.
type Option func(*Holder)

// WithScopeOptions passes opts to every container returned by Scope.
func WithScopeOptions(opts ...container.Option) Option {
	return func(h *Holder) { h.scopeOpts = append(h.scopeOpts, opts...) }
}

// WithReloadObserver reports reloads to o.
func WithReloadObserver(o ReloadObserver) Option {
	return func(h *Holder) { h.observer = o }
}

// Holder provides thread-safe access to the compiled graph with lazy
// initialization, explicit reset and hot reload.
type Holder struct {
	mu        sync.RWMutex
	build     BuildFunc
	graph     *container.Graph
	scopeOpts []container.Option
	observer  ReloadObserver
	logger    zerolog.Logger
	onChange  []func(*container.Graph)

	watcher  *fsnotify.Watcher
	watched  map[string]bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a holder. Nothing is built until the first Graph or Scope call.
func New(build BuildFunc, logger zerolog.Logger, opts ...Option) *Holder {
	h := &Holder{
		build:  build,
		logger: logger.With().Str("component", "holder").Logger(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Graph returns the compiled graph, building it on first access. A failed
// build is not cached; the next call tries again.
func (h *Holder) Graph() (*container.Graph, error) {
	h.mu.RLock()
	g := h.graph
	h.mu.RUnlock()
	if g != nil {
		return g, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph != nil {
		return h.graph, nil
	}
	g, err := h.compile()
	if err != nil {
		return nil, err
	}
	h.graph = g
	h.logger.Info().Str("build", g.ID()).Int("services", len(g.ServiceIDs())).Msg("container built")
	return g, nil
}

// Current returns the graph without building it.
func (h *Holder) Current() *container.Graph {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph
}

// Scope returns a container for one unit of work: it shares the compiled
// graph and owns its instances.
func (h *Holder) Scope() (*container.Container, error) {
	g, err := h.Graph()
	if err != nil {
		return nil, err
	}
	return g.Scope(h.scopeOpts...), nil
}

// Reset drops the graph; the next Graph call rebuilds it.
func (h *Holder) Reset() {
	h.mu.Lock()
	h.graph = nil
	h.mu.Unlock()
	h.logger.Info().Msg("container reset")
}

// Reload rebuilds the graph and returns it. On failure the previous graph
// is kept.
func (h *Holder) Reload() (*container.Graph, error) {
	h.logger.Info().Msg("reloading container")

	g, err := h.compile()
	if h.observer != nil {
		h.observer.Reloaded(err)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("container reload failed, keeping old graph")
		return nil, fmt.Errorf("reload container: %w", err)
	}

	h.mu.Lock()
	old := h.graph
	h.graph = g
	callbacks := append([]func(*container.Graph){}, h.onChange...)
	h.mu.Unlock()

	event := h.logger.Info().Str("build", g.ID()).Int("services", len(g.ServiceIDs()))
	if old != nil {
		event = event.Str("previous", old.ID()).Int("previous_services", len(old.ServiceIDs()))
	}
	event.Msg("container reloaded")

	for _, fn := range callbacks {
		fn(g)
	}
	return g, nil
}

// OnChange registers a callback run after every successful Reload.
func (h *Holder) OnChange(fn func(*container.Graph)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

func (h *Holder) compile() (*container.Graph, error) {
	c, err := h.build()
	if err != nil {
		return nil, err
	}
	if !c.Compiled() {
		if err := c.Compile(); err != nil {
			return nil, err
		}
	}
	return c.Graph(), nil
}

// WatchFiles reloads the container when one of paths is written or
// recreated. Parent directories are watched so editors that save by rename
// are seen.
func (h *Holder) WatchFiles(paths ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		h.watcher = watcher
		h.watched = make(map[string]bool)
		go h.watchLoop(watcher)
	}

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("absolute path: %w", err)
		}
		if err := h.watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		h.watched[abs] = true
		h.logger.Info().Str("path", abs).Msg("watching definitions for changes")
	}
	return nil
}

// WatchSignals reloads the container on SIGHUP.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading container")
				if _, err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload container")
}

// Stop stops watching files and signals. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) isWatched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.watched[abs]
}

func (h *Holder) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !h.isWatched(event.Name) {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("definition file changed")

				if _, err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}
