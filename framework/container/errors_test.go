package container

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Messages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&DuplicateServiceError{ID: "mailer"}, `container: service "mailer" is already registered`},
		{&UnknownServiceError{ID: "mailer"}, `container: unknown service "mailer"`},
		{&UnknownServiceError{ID: "mailer", Referrer: "newsletter_manager"},
			`container: service "newsletter_manager" references unknown service "mailer"`},
		{&UnresolvedParameterError{Name: "mailer.transport", Service: "mailer"},
			`container: service "mailer" references unset parameter "mailer.transport"`},
		{&CyclicDependencyError{Cycle: []string{"a", "b", "a"}}, "container: cyclic dependency detected: a -> b -> a"},
		{&ContainerFrozenError{Op: "compile"}, "container: cannot compile on a compiled container"},
		{&UnknownImplementationError{ID: "mailer", Implementation: "Postman"},
			`container: service "mailer" uses unknown implementation "Postman"`},
		{&BuildError{ID: "mailer", Err: errors.New("no route")}, `container: building service "mailer": no route`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Error())
	}
}

func TestErrors_MatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&DuplicateServiceError{}, ErrDuplicateService},
		{&UnknownServiceError{}, ErrUnknownService},
		{&UnresolvedParameterError{}, ErrUnresolvedParameter},
		{&CyclicDependencyError{}, ErrCyclicDependency},
		{&ContainerFrozenError{}, ErrContainerFrozen},
		{&UnknownImplementationError{}, ErrUnknownImplementation},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("hook mailer: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.sentinel)
		for _, other := range cases {
			if other.sentinel != tc.sentinel {
				assert.NotErrorIs(t, tc.err, other.sentinel)
			}
		}
	}
}

func TestSentinels_Distinct(t *testing.T) {
	sentinels := []error{
		ErrDuplicateService,
		ErrUnknownService,
		ErrUnresolvedParameter,
		ErrCyclicDependency,
		ErrContainerFrozen,
		ErrUnknownImplementation,
		ErrNotCompiled,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel[%d] == sentinel[%d]: %v and %v should be distinct", i, j, a, b)
			}
		}
	}
}
