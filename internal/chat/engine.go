// Package chat implements the turn engine: the agent loop driving
// adapter calls, tool dispatch, hook events, streaming delivery and the
// memory commit of one user turn.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amrita-ai/amrita/internal/adapter"
	"github.com/amrita-ai/amrita/internal/config"
	"github.com/amrita-ai/amrita/internal/hooks"
	"github.com/amrita-ai/amrita/internal/memory"
	"github.com/amrita-ai/amrita/internal/metrics"
	"github.com/amrita-ai/amrita/internal/preset"
	"github.com/amrita-ai/amrita/internal/sessions"
	"github.com/amrita-ai/amrita/internal/tools"
	"github.com/amrita-ai/amrita/pkg/models"
)

// Engine bundles the registries a turn executes against. All fields but
// Metrics and Tracker are required.
type Engine struct {
	Config   *config.Registry
	Presets  *preset.Registry
	Adapters *adapter.Registry
	Hooks    *hooks.Registry
	Tools    *tools.Registry
	Sessions *sessions.Registry
	Metrics  *metrics.Set
	Tracker  *Tracker
	Logger   *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default().With("component", "chat")
}

// TurnOptions are the per-turn construction inputs.
type TurnOptions struct {
	SessionID string
	UserInput string
	// Train is the system-prompt bundle prefixed to every request window.
	Train memory.Train
	// Callback, when set, selects callback delivery; the turn then has no
	// queue.
	Callback func(chunk string) error
	// Config overrides the effective configuration for this turn only.
	Config *models.AmritaConfig
	// Preset overrides the default preset for this turn only.
	Preset *models.ModelPreset

	HookArgs   []any
	HookKwargs map[string]any
	// Ignored errors raised by hook handlers abort the turn instead of
	// being aggregated.
	Ignored []error

	AutoCreateSession bool
	QueueSize         int
	OverflowQueueSize int
}

// NewTurn constructs a turn against the engine's registries. An unknown
// session fails unless AutoCreateSession is set.
func (e *Engine) NewTurn(opts TurnOptions) (*ChatTurn, error) {
	session, err := e.Sessions.Get(opts.SessionID)
	if err != nil {
		if !opts.AutoCreateSession {
			return nil, fmt.Errorf("chat turn: %w", err)
		}
		opts.SessionID = e.Sessions.New(nil)
		session, err = e.Sessions.Get(opts.SessionID)
		if err != nil {
			return nil, fmt.Errorf("chat turn: %w", err)
		}
	}

	cfg, err := e.Config.Resolve(session.Config)
	if err != nil {
		return nil, fmt.Errorf("chat turn: %w", err)
	}
	if opts.Config != nil {
		if err := opts.Config.Validate(); err != nil {
			return nil, fmt.Errorf("chat turn config override: %w", err)
		}
		cfg = opts.Config.Clone()
	}

	return newChatTurn(e, opts, session, cfg), nil
}

// pickPreset resolves the preset a turn starts with: the explicit
// override, then the session default, then the global default.
func (e *Engine) pickPreset(t *ChatTurn) (models.ModelPreset, error) {
	if t.opts.Preset != nil {
		return t.opts.Preset.Clone(), nil
	}
	if p, err := t.session.Presets.Default(); err == nil {
		return p, nil
	}
	p, err := e.Presets.Default()
	if err != nil {
		return models.ModelPreset{}, fmt.Errorf("no preset for turn: %w", err)
	}
	return p, nil
}

// buildAdapter resolves and constructs the adapter for a preset.
func (e *Engine) buildAdapter(p models.ModelPreset, llm models.LLMConfig) (adapter.Adapter, error) {
	ctor, err := e.Adapters.Resolve(p)
	if err != nil {
		return nil, err
	}
	return ctor(p, llm)
}

// summarizer backs the memory compressor with a non-streaming call on
// the given preset.
func (e *Engine) summarizer(p models.ModelPreset, llm models.LLMConfig) memory.Summarizer {
	p = p.Clone()
	p.Config.Stream = false
	return func(ctx context.Context, request []models.Message) (string, error) {
		ad, err := e.buildAdapter(p, llm)
		if err != nil {
			return "", err
		}
		ch, err := ad.CallAPI(ctx, request, nil)
		if err != nil {
			return "", err
		}
		for chunk := range ch {
			if chunk.Err != nil {
				return "", chunk.Err
			}
			if chunk.Final != nil {
				return chunk.Final.Content, nil
			}
		}
		return "", fmt.Errorf("summarizer stream ended without a terminal response")
	}
}
