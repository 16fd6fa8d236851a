// Package hooks provides the event/matcher subsystem: typed events, a
// registry of matchers keyed by event kind, and concurrent dependency
// resolution for handler parameters.
package hooks

import (
	"github.com/amrita-ai/amrita/pkg/models"
)

// Kind identifies an event category.
type Kind string

const (
	KindPreCompletion Kind = "pre_completion"
	KindCompletion    Kind = "completion"
	KindFallback      Kind = "preset_fallback"

	customPrefix = "custom."
)

// CustomKind builds the kind for a user-defined event name.
func CustomKind(name string) Kind { return Kind(customPrefix + name) }

// Event is any dispatchable event. Events are mutable records passed by
// pointer; handlers run sequentially, so earlier handlers' mutations are
// visible to later ones.
type Event interface {
	Kind() Kind
}

// TurnHandle is the view of a running chat turn that hooks and custom
// tools receive. Implementations must not be retained past the handler
// invocation.
type TurnHandle interface {
	StreamID() string
	SessionID() string
	// YieldResponse pushes a side chunk to the turn's consumer.
	YieldResponse(chunk string) error
}

// PreCompletionEvent fires before each adapter call. Handlers may mutate
// Messages; the engine sends the mutated slice.
type PreCompletionEvent struct {
	Messages []models.Message
	Turn     TurnHandle
}

func (*PreCompletionEvent) Kind() Kind { return KindPreCompletion }

// CompletionEvent fires after each terminal adapter response, before tool
// dispatch.
type CompletionEvent struct {
	Response *models.UniResponse
	Turn     TurnHandle
}

func (*CompletionEvent) Kind() Kind { return KindCompletion }

// FallbackEvent fires when an adapter call fails. Handlers may switch
// Preset for the retry, or call Fail to abort the turn.
type FallbackEvent struct {
	Preset models.ModelPreset
	Err    error
	Config *models.AmritaConfig
	Memory *models.MemoryModel
	Term   int

	failed     bool
	failReason string
}

func (*FallbackEvent) Kind() Kind { return KindFallback }

// Fail aborts the fallback; the turn terminates with FallbackFailed.
func (e *FallbackEvent) Fail(reason string) {
	e.failed = true
	e.failReason = reason
}

// Failed reports whether a handler called Fail, and the reason.
func (e *FallbackEvent) Failed() (bool, string) { return e.failed, e.failReason }

// CustomEvent is a user-defined event routed by name.
type CustomEvent struct {
	Name    string
	Payload any
}

func (e *CustomEvent) Kind() Kind { return CustomKind(e.Name) }
