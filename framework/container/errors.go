package container

import (
	"errors"
	"strconv"
	"strings"
)

// ErrDuplicateService is returned when an identifier is registered twice.
var ErrDuplicateService = errors.New("container: duplicate service")

// ErrUnknownService is returned when an identifier was never registered.
var ErrUnknownService = errors.New("container: unknown service")

// ErrUnresolvedParameter is returned when a parameter reference has no matching parameter.
var ErrUnresolvedParameter = errors.New("container: unresolved parameter")

// ErrCyclicDependency is returned when service references form a cycle.
var ErrCyclicDependency = errors.New("container: cyclic dependency")

// ErrContainerFrozen is returned when a compiled container is mutated.
var ErrContainerFrozen = errors.New("container: container is frozen")

// ErrUnknownImplementation is returned when no constructor is registered for an implementation.
var ErrUnknownImplementation = errors.New("container: unknown implementation")

// ErrNotCompiled is returned when services are requested from a container that was never compiled.
var ErrNotCompiled = errors.New("container: container is not compiled")

// DuplicateServiceError reports a second registration of ID.
type DuplicateServiceError struct{ ID string }

func (e *DuplicateServiceError) Error() string {
	return "container: service " + strconv.Quote(e.ID) + " is already registered"
}

func (e *DuplicateServiceError) Is(target error) bool { return target == ErrDuplicateService }

// UnknownServiceError reports a lookup or reference to an unregistered ID.
// Referrer is the service holding the reference, empty for direct lookups.
type UnknownServiceError struct {
	ID       string
	Referrer string
}

func (e *UnknownServiceError) Error() string {
	if e.Referrer != "" {
		return "container: service " + strconv.Quote(e.Referrer) +
			" references unknown service " + strconv.Quote(e.ID)
	}
	return "container: unknown service " + strconv.Quote(e.ID)
}

func (e *UnknownServiceError) Is(target error) bool { return target == ErrUnknownService }

// UnresolvedParameterError reports a %Name% reference with no parameter.
type UnresolvedParameterError struct {
	Name    string
	Service string
}

func (e *UnresolvedParameterError) Error() string {
	return "container: service " + strconv.Quote(e.Service) +
		" references unset parameter " + strconv.Quote(e.Name)
}

func (e *UnresolvedParameterError) Is(target error) bool { return target == ErrUnresolvedParameter }

// CyclicDependencyError reports a reference cycle. Cycle starts and ends
// with the same identifier.
type CyclicDependencyError struct{ Cycle []string }

func (e *CyclicDependencyError) Error() string {
	return "container: cyclic dependency detected: " + strings.Join(e.Cycle, " -> ")
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// ContainerFrozenError reports a mutation attempted after Compile.
type ContainerFrozenError struct{ Op string }

func (e *ContainerFrozenError) Error() string {
	return "container: cannot " + e.Op + " on a compiled container"
}

func (e *ContainerFrozenError) Is(target error) bool { return target == ErrContainerFrozen }

// UnknownImplementationError reports a definition whose implementation has
// no registered constructor.
type UnknownImplementationError struct {
	ID             string
	Implementation string
}

func (e *UnknownImplementationError) Error() string {
	return "container: service " + strconv.Quote(e.ID) +
		" uses unknown implementation " + strconv.Quote(e.Implementation)
}

func (e *UnknownImplementationError) Is(target error) bool { return target == ErrUnknownImplementation }

// BuildError wraps a constructor failure for service ID.
type BuildError struct {
	ID  string
	Err error
}

func (e *BuildError) Error() string {
	return "container: building service " + strconv.Quote(e.ID) + ": " + e.Err.Error()
}

func (e *BuildError) Unwrap() error { return e.Err }
