package container_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/container"
)

type recordingObserver struct {
	mu       sync.Mutex
	compiles []error
	built    []string
}

func (o *recordingObserver) Compiled(_ int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compiles = append(o.compiles, err)
}

func (o *recordingObserver) ServiceBuilt(id string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.built = append(o.built, id)
}

func TestGraph_ScopesHaveIndependentInstances(t *testing.T) {
	c, _ := newsletterContainer(t)
	require.NoError(t, c.Compile())
	g := c.Graph()

	first := g.Scope()
	second := g.Scope()

	a := container.MustResolve[*NewsletterManager](first, "newsletter_manager")
	b := container.MustResolve[*NewsletterManager](second, "newsletter_manager")

	assert.NotSame(t, a, b)
	assert.Same(t, a, container.MustResolve[*NewsletterManager](first, "newsletter_manager"))
	assert.True(t, first.Compiled())
	assert.False(t, c.Initialized("newsletter_manager"), "scopes never fill the parent cache")
}

func TestGraph_ScopeIsFrozen(t *testing.T) {
	c, _ := newsletterContainer(t)
	require.NoError(t, c.Compile())

	scope := c.Graph().Scope()
	assert.ErrorIs(t, scope.SetParameter("x", 1), container.ErrContainerFrozen)
	_, err := scope.Register("x", "Mailer")
	assert.ErrorIs(t, err, container.ErrContainerFrozen)
}

func TestGraph_ConcurrentScopes(t *testing.T) {
	c := container.New(container.WithConstructors(container.Constructors{
		"Mailer": func(args ...any) (any, error) {
			return &Mailer{Transport: args[0].(string)}, nil
		},
		"NewsletterManager": func(args ...any) (any, error) {
			return &NewsletterManager{Mailer: args[0].(*Mailer)}, nil
		},
	}))
	require.NoError(t, c.SetParameter("mailer.transport", "sendmail"))
	register(t, c, "mailer", "Mailer", container.Param("mailer.transport"))
	register(t, c, "newsletter_manager", "NewsletterManager", container.Ref("mailer"))
	require.NoError(t, c.Compile())
	g := c.Graph()

	const workers = 8
	managers := make([]*NewsletterManager, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scope := g.Scope()
			managers[i] = container.MustResolve[*NewsletterManager](scope, "newsletter_manager")
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.NotSame(t, managers[0], managers[i])
		assert.Equal(t, "sendmail", managers[i].Mailer.Transport)
	}
}

func TestGraph_Dependents(t *testing.T) {
	c, _ := newsletterContainer(t)
	require.NoError(t, c.SetAlias("mail", "mailer"))
	register(t, c, "digest", "Box", container.Ref("mail"))
	require.NoError(t, c.Compile())

	assert.Equal(t, []string{"newsletter_manager", "digest"}, c.Graph().Dependents("mailer"))
	assert.Empty(t, c.Graph().Dependents("digest"))
}

func TestObserver_SeesCompilesAndBuilds(t *testing.T) {
	obs := &recordingObserver{}
	l := &buildLog{}
	c := container.New(container.WithConstructors(l.constructors()), container.WithObserver(obs))
	register(t, c, "mailer", "Mailer", container.Param("mailer.transport"))

	require.Error(t, c.Compile())
	require.NoError(t, c.SetParameter("mailer.transport", "sendmail"))
	require.NoError(t, c.Compile())
	_, err := c.Get("mailer")
	require.NoError(t, err)
	_, err = c.Get("mailer")
	require.NoError(t, err)

	require.Len(t, obs.compiles, 2)
	assert.Error(t, obs.compiles[0])
	assert.NoError(t, obs.compiles[1])
	assert.Equal(t, []string{"mailer"}, obs.built)
}

func TestGraph_ScopesCannotMutateSharedValues(t *testing.T) {
	c := container.New(container.WithConstructors(container.Constructors{
		// Rewrites its arguments in place.
		"Greedy": func(args ...any) (any, error) {
			recipients := args[0].([]any)
			recipients[0] = "mallory"
			headers := args[1].(map[string]any)
			headers["X-Seen"] = true
			return recipients, nil
		},
	}))
	require.NoError(t, c.SetParameter("recipients", []any{"alice", "bob"}))
	register(t, c, "greedy", "Greedy",
		container.Param("recipients"),
		container.Value(map[string]any{"From": "shop"}),
	)
	require.NoError(t, c.Compile())
	g := c.Graph()

	_, err := g.Scope().Get("greedy")
	require.NoError(t, err)
	second, err := g.Scope().Get("greedy")
	require.NoError(t, err)

	assert.Equal(t, []any{"mallory", "bob"}, second)
	recipients, _ := g.Parameter("recipients")
	assert.Equal(t, []any{"alice", "bob"}, recipients)
	def, _ := g.Definition("greedy")
	assert.Equal(t, map[string]any{"From": "shop"}, def.Arguments()[1].Value)

	params := g.Parameters()
	params["recipients"].([]any)[1] = "eve"
	recipients, _ = g.Parameter("recipients")
	assert.Equal(t, []any{"alice", "bob"}, recipients)
}
