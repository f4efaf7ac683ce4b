// Package command defines the capability surface a script can reach.
//
// A Registry maps verb names to capabilities. The interpreter core only
// consumes the registry; the semantics of each capability (moving the turtle,
// collecting souls, ...) belong to whoever built it.
package command

import (
	"errors"
	"fmt"
	"sort"
)

// Func is a single capability. It accepts any number of arguments, performs a
// side effect and may return a value to the script.
type Func func(args ...any) (any, error)

// Callable is a script-level function value handed to a capability,
// e.g. the callback of ritual(count, fn).
type Callable interface {
	Call(args ...any) (any, error)
}

// Provider exposes a registry.
type Provider interface {
	Commands() Registry
}

// Registry maps verb names to capabilities.
type Registry map[string]Func

// Names returns the verb names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the capability registered under name.
func (r Registry) Lookup(name string) (Func, bool) {
	fn, ok := r[name]
	return fn, ok && fn != nil
}

// Has reports whether name is registered.
func (r Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Commands lets a bare Registry act as a Provider.
func (r Registry) Commands() Registry {
	return r
}

// UnknownVerbError reports a call to a name missing from the registry.
type UnknownVerbError struct {
	Verb string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("unknown spell: %s", e.Verb)
}

// CapabilityError wraps an error returned (or a panic raised) by a
// capability. Its message is the underlying message so that users see what
// the capability said.
type CapabilityError struct {
	Verb string
	Err  error
}

func (e *CapabilityError) Error() string {
	return e.Err.Error()
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Invoke calls the named capability, converting a panic inside the
// capability into an error so that one faulty verb cannot take the caller down.
func (r Registry) Invoke(name string, args ...any) (result any, err error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownVerbError{Verb: name}
	}
	return Call(name, fn, args...)
}

// Call runs fn on behalf of verb. Errors come back as *CapabilityError.
func Call(verb string, fn Func, args ...any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &CapabilityError{Verb: verb, Err: fmt.Errorf("%s: %v", verb, rec)}
		}
	}()
	result, err = fn(args...)
	if err != nil {
		var ce *CapabilityError
		if !errors.As(err, &ce) {
			err = &CapabilityError{Verb: verb, Err: err}
		}
		return nil, err
	}
	return result, nil
}
