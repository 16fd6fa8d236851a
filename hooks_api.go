package amrita

import (
	"context"

	"github.com/amrita-ai/amrita/internal/hooks"
)

// Hook registration surface. Handlers, options and parameter builders
// come from the hooks package; these wrappers only pin the event kind.
type (
	Handler    = hooks.Handler
	HookOption = hooks.Option
	Param      = hooks.Param
	Dependency = hooks.Dependency

	Event              = hooks.Event
	PreCompletionEvent = hooks.PreCompletionEvent
	CompletionEvent    = hooks.CompletionEvent
	FallbackEvent      = hooks.FallbackEvent
	CustomEvent        = hooks.CustomEvent
)

// Option constructors, re-exported for call-site brevity.
var (
	WithName     = hooks.WithName
	WithPriority = hooks.WithPriority
	WithBlock    = hooks.WithBlock
	WithParams   = hooks.WithParams
)

// Depends wraps a factory whose result is injected into a handler
// parameter slot.
func Depends(factory hooks.Factory) Dependency { return hooks.Depends(factory) }

// OnPreCompletion registers a handler fired before each adapter call.
func (r *Runtime) OnPreCompletion(h Handler, opts ...HookOption) (string, error) {
	return r.hooks.Register(hooks.KindPreCompletion, h, opts...)
}

// OnCompletion registers a handler fired after each terminal response.
func (r *Runtime) OnCompletion(h Handler, opts ...HookOption) (string, error) {
	return r.hooks.Register(hooks.KindCompletion, h, opts...)
}

// OnPresetFallback registers a handler fired on adapter failure; it may
// switch the preset for the retry or abort the chain.
func (r *Runtime) OnPresetFallback(h Handler, opts ...HookOption) (string, error) {
	return r.hooks.Register(hooks.KindFallback, h, opts...)
}

// OnEvent registers a handler for a user-defined event name.
func (r *Runtime) OnEvent(name string, h Handler, opts ...HookOption) (string, error) {
	return r.hooks.Register(hooks.CustomKind(name), h, opts...)
}

// EmitEvent dispatches a custom event on the runtime's hook registry.
func (r *Runtime) EmitEvent(ctx context.Context, name string, payload any) error {
	return r.hooks.Trigger(ctx, &hooks.CustomEvent{Name: name, Payload: payload}, hooks.Call{})
}

// Default-runtime wrappers.

func OnPreCompletion(h Handler, opts ...HookOption) (string, error) {
	return Default().OnPreCompletion(h, opts...)
}

func OnCompletion(h Handler, opts ...HookOption) (string, error) {
	return Default().OnCompletion(h, opts...)
}

func OnPresetFallback(h Handler, opts ...HookOption) (string, error) {
	return Default().OnPresetFallback(h, opts...)
}

func OnEvent(name string, h Handler, opts ...HookOption) (string, error) {
	return Default().OnEvent(name, h, opts...)
}
