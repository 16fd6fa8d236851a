package hooks

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrDependsCycle is returned when a dependency factory produces another
// dependency: factories may not themselves use Depends.
var ErrDependsCycle = errors.New("dependency factory may not use Depends")

// Factory produces a value for a handler parameter slot. Returning a nil
// value (with nil error) marks the dependency unavailable; the handler is
// silently skipped.
type Factory func(ctx context.Context) (any, error)

// Dependency wraps a factory for injection into a parameter slot.
// Construct with Depends.
type Dependency struct {
	factory Factory
}

// Depends declares a dependency on the value produced by factory.
func Depends(factory Factory) Dependency {
	return Dependency{factory: factory}
}

func (d Dependency) valid() bool { return d.factory != nil }

// resolve invokes the factory and enforces the cycle rule.
func (d Dependency) resolve(ctx context.Context) (any, error) {
	if d.factory == nil {
		return nil, fmt.Errorf("dependency has no factory")
	}
	v, err := d.factory(ctx)
	if err != nil {
		return nil, err
	}
	if _, nested := v.(Dependency); nested {
		return nil, ErrDependsCycle
	}
	return v, nil
}

// ParamSource tells the dispatcher where a parameter's value comes from.
type ParamSource int

const (
	// SourceAuto resolves kwargs by name first, then positional args by
	// declared type.
	SourceAuto ParamSource = iota
	// SourceDep resolves through the parameter's dependency factory.
	SourceDep
)

// Param declares one handler parameter beyond the leading event. The
// declared type drives positional binding: a caller-supplied positional
// argument binds when its runtime type is assignable to Type.
type Param struct {
	Name       string
	Type       reflect.Type
	Source     ParamSource
	Dep        Dependency
	Default    any
	HasDefault bool
}

// P declares an auto-bound parameter. The type is taken from the zero
// sample, e.g. P[string]("user_id").
func P[T any](name string) Param {
	return Param{Name: name, Type: reflect.TypeOf((*T)(nil)).Elem(), Source: SourceAuto}
}

// PDep declares a dependency-backed parameter.
func PDep(name string, dep Dependency) Param {
	return Param{Name: name, Source: SourceDep, Dep: dep}
}

// PDefault declares an auto-bound parameter with a fallback value.
func PDefault[T any](name string, def T) Param {
	p := P[T](name)
	p.Default = def
	p.HasDefault = true
	return p
}
