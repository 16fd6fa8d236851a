// Package amrita is the embedding API of the runtime: a Runtime bundles
// the registries and the chat engine, and package-level wrappers operate
// on a process-wide default instance.
package amrita

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/amrita-ai/amrita/internal/adapter"
	"github.com/amrita-ai/amrita/internal/builtin"
	"github.com/amrita-ai/amrita/internal/chat"
	"github.com/amrita-ai/amrita/internal/config"
	"github.com/amrita-ai/amrita/internal/hooks"
	"github.com/amrita-ai/amrita/internal/memory"
	"github.com/amrita-ai/amrita/internal/metrics"
	"github.com/amrita-ai/amrita/internal/preset"
	"github.com/amrita-ai/amrita/internal/sessions"
	"github.com/amrita-ai/amrita/internal/tools"
	"github.com/amrita-ai/amrita/pkg/models"
)

// Re-exported turn types; embedders construct turns through NewChatTurn.
type (
	ChatTurn    = chat.ChatTurn
	TurnOptions = chat.TurnOptions
	Train       = memory.Train
	ProbeResult = preset.ProbeResult
)

// Runtime is one isolated instance of the core: registries, tracker and
// engine. Tests build their own; production code usually goes through
// the package-level default.
type Runtime struct {
	config   *config.Registry
	presets  *preset.Registry
	groups   *preset.MultiRegistry
	adapters *adapter.Registry
	hooks    *hooks.Registry
	tools    *tools.Registry
	sessions *sessions.Registry
	metrics  *metrics.Set
	tracker  *chat.Tracker
	engine   *chat.Engine
	logger   *slog.Logger

	initOnce sync.Once
	initErr  error
	ready    bool
}

// NewRuntime builds an uninitialized runtime. A nil logger falls back to
// slog.Default; a nil registerer leaves the metrics unexported.
func NewRuntime(logger *slog.Logger, reg prometheus.Registerer) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runtime{
		config:   config.NewRegistry(),
		presets:  preset.NewRegistry(),
		groups:   preset.NewMultiRegistry(),
		adapters: adapter.NewRegistry(),
		hooks:    hooks.NewRegistry(logger),
		tools:    tools.NewRegistry(),
		sessions: sessions.NewRegistry(logger),
		metrics:  metrics.New(reg),
		tracker:  chat.NewTracker(),
		logger:   logger.With("component", "amrita"),
	}
	r.engine = &chat.Engine{
		Config:   r.config,
		Presets:  r.presets,
		Adapters: r.adapters,
		Hooks:    r.hooks,
		Tools:    r.tools,
		Sessions: r.sessions,
		Metrics:  r.metrics,
		Tracker:  r.tracker,
		Logger:   logger.With("component", "chat"),
	}
	return r
}

// Init registers the built-in tools and the reference adapter. Calling
// it again is a no-op.
func (r *Runtime) Init() error {
	r.initOnce.Do(func() {
		if err := builtin.Register(r.tools); err != nil {
			r.initErr = err
			return
		}
		if err := adapter.RegisterOpenAI(r.adapters); err != nil {
			r.initErr = err
			return
		}
		r.ready = true
		r.logger.Info("runtime initialized",
			"protocols", r.adapters.Protocols(), "tools", r.tools.Names())
	})
	return r.initErr
}

// SetConfig validates and installs the global configuration.
func (r *Runtime) SetConfig(cfg *models.AmritaConfig) error {
	return r.config.Set(cfg)
}

// GetConfig returns a copy of the global configuration.
func (r *Runtime) GetConfig() (*models.AmritaConfig, error) {
	return r.config.Get()
}

// LoadConfigFile loads and installs the configuration from a YAML or
// JSON file.
func (r *Runtime) LoadConfigFile(path string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	return r.config.Set(cfg)
}

// LoadAmrita materializes external resources for every live session,
// MCP clients included. SetConfig must have been called.
func (r *Runtime) LoadAmrita(ctx context.Context) error {
	if err := r.Init(); err != nil {
		return err
	}
	cfg, err := r.config.Get()
	if err != nil {
		return fmt.Errorf("load amrita: %w", err)
	}
	for _, id := range r.sessions.List() {
		if err := r.sessions.Init(ctx, id, cfg); err != nil {
			return fmt.Errorf("load amrita: %w", err)
		}
	}
	return nil
}

// Accessors for the runtime's registries.

func (r *Runtime) Sessions() *sessions.Registry { return r.sessions }

func (r *Runtime) Presets() *preset.Registry { return r.presets }

func (r *Runtime) PresetGroups() *preset.MultiRegistry { return r.groups }

func (r *Runtime) Adapters() *adapter.Registry { return r.adapters }

func (r *Runtime) Hooks() *hooks.Registry { return r.hooks }

func (r *Runtime) Tools() *tools.Registry { return r.tools }

func (r *Runtime) Tracker() *chat.Tracker { return r.tracker }

// NewChatTurn constructs one turn against the runtime. Init and
// SetConfig must have been called.
func (r *Runtime) NewChatTurn(opts TurnOptions) (*ChatTurn, error) {
	if err := r.Init(); err != nil {
		return nil, err
	}
	return r.engine.NewTurn(opts)
}

// ProbePresets issues a minimal completion against every registered
// preset and reports per-preset health. A preset whose adapter cannot
// be resolved, constructed or called carries the error in its result;
// probing never aborts early.
func (r *Runtime) ProbePresets(ctx context.Context) ([]ProbeResult, error) {
	if err := r.Init(); err != nil {
		return nil, err
	}
	cfg, err := r.config.Get()
	if err != nil {
		return nil, fmt.Errorf("probe presets: %w", err)
	}
	return preset.Probe(ctx, r.presets, func(ctx context.Context, p models.ModelPreset) error {
		ctor, err := r.adapters.Resolve(p)
		if err != nil {
			return err
		}
		ad, err := ctor(p, cfg.LLM)
		if err != nil {
			return err
		}
		ch, err := ad.CallAPI(ctx, []models.Message{models.NewUserMessage("ping")}, nil)
		if err != nil {
			return err
		}
		for chunk := range ch {
			if chunk.Err != nil {
				return chunk.Err
			}
			if chunk.Final != nil {
				return nil
			}
		}
		return fmt.Errorf("preset %q stream ended without a terminal response", p.Name)
	}), nil
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// Default returns the process-wide runtime.
func Default() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = NewRuntime(nil, nil)
	})
	return defaultRuntime
}

// Package-level wrappers over the default runtime.

func Init() error { return Default().Init() }

func SetConfig(cfg *models.AmritaConfig) error { return Default().SetConfig(cfg) }

func GetConfig() (*models.AmritaConfig, error) { return Default().GetConfig() }

func LoadAmrita(ctx context.Context) error { return Default().LoadAmrita(ctx) }

func Sessions() *sessions.Registry { return Default().Sessions() }

func Presets() *preset.Registry { return Default().Presets() }

func NewChatTurn(opts TurnOptions) (*ChatTurn, error) { return Default().NewChatTurn(opts) }

func ProbePresets(ctx context.Context) ([]ProbeResult, error) { return Default().ProbePresets(ctx) }
