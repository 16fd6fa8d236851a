package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Handler processes one event. The resolved parameter values arrive in
// args, in the order the matcher declared them.
type Handler func(ctx context.Context, event Event, args []any) error

// Matcher binds an event kind to a handler with declared parameters.
type matcher struct {
	id       string
	kind     Kind
	name     string
	priority int
	block    bool
	seq      int
	params   []Param
	handler  Handler
}

// Option configures a registration.
type Option func(*matcher)

// WithName attaches a diagnostic name used in logs.
func WithName(name string) Option {
	return func(m *matcher) { m.name = name }
}

// WithPriority sets the dispatch priority; lower fires earlier. Equal
// priorities fire in registration order.
func WithPriority(p int) Option {
	return func(m *matcher) { m.priority = p }
}

// WithBlock stops dispatch to later matchers once this handler has run.
func WithBlock() Option {
	return func(m *matcher) { m.block = true }
}

// WithParams declares the handler's parameter schema.
func WithParams(params ...Param) Option {
	return func(m *matcher) { m.params = params }
}

// Registry routes events to matchers. Matchers for one kind execute
// sequentially in (priority, registration) order; dependency factories
// for a single matcher resolve in parallel.
type Registry struct {
	mu       sync.RWMutex
	matchers map[Kind][]*matcher
	nextSeq  int
	logger   *slog.Logger
}

// NewRegistry creates a registry. A nil logger falls back to slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		matchers: map[Kind][]*matcher{},
		logger:   logger.With("component", "hooks"),
	}
}

// Register adds a matcher and returns its registration ID.
func (r *Registry) Register(kind Kind, h Handler, opts ...Option) (string, error) {
	if h == nil {
		return "", fmt.Errorf("handler must not be nil")
	}
	m := &matcher{
		id:      uuid.New().String(),
		kind:    kind,
		handler: h,
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, p := range m.params {
		if p.Source == SourceDep && !p.Dep.valid() {
			return "", fmt.Errorf("param %q declares a dependency without a factory", p.Name)
		}
		if p.Source == SourceAuto && p.Type == nil && !p.HasDefault {
			return "", fmt.Errorf("param %q has no declared type", p.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m.seq = r.nextSeq
	r.nextSeq++
	r.matchers[kind] = append(r.matchers[kind], m)
	return m.id, nil
}

// Unregister removes a matcher by ID. Returns false if unknown.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, list := range r.matchers {
		for i, m := range list {
			if m.id == id {
				r.matchers[kind] = append(list[:i], list[i+1:]...)
				return true
			}
		}
	}
	return false
}

// MatcherCount returns the number of matchers registered for a kind.
func (r *Registry) MatcherCount(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matchers[kind])
}

// Call carries the caller-supplied binding material for one dispatch.
type Call struct {
	// Args are positional values bound to parameters by declared type.
	Args []any
	// Kwargs are named values bound to parameters by name.
	Kwargs map[string]any
	// Ignored errors (matched with errors.Is) are re-raised to the
	// caller instead of being aggregated.
	Ignored []error
}

// Trigger dispatches the event to every matcher of its kind. Matchers
// whose parameters cannot be resolved are skipped. Non-ignored resolution
// and handler errors are aggregated and returned after all matchers ran;
// ignored errors abort dispatch immediately.
func (r *Registry) Trigger(ctx context.Context, ev Event, call Call) error {
	r.mu.RLock()
	list := append([]*matcher(nil), r.matchers[ev.Kind()]...)
	r.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority < list[j].priority
		}
		return list[i].seq < list[j].seq
	})

	var agg *multierror.Error
	for _, m := range list {
		args, skip, err := r.resolveParams(ctx, m, call)
		if err != nil {
			if isIgnored(err, call.Ignored) {
				return err
			}
			r.logger.Warn("matcher skipped: dependency resolution failed",
				"matcher", m.logName(), "event", string(ev.Kind()), "error", err)
			agg = multierror.Append(agg, err)
			continue
		}
		if skip {
			continue
		}

		if err := r.callHandler(ctx, m, ev, args); err != nil {
			if isIgnored(err, call.Ignored) {
				return err
			}
			r.logger.Error("hook handler failed",
				"matcher", m.logName(), "event", string(ev.Kind()), "error", err)
			agg = multierror.Append(agg, err)
			continue
		}
		if m.block {
			break
		}
	}
	return agg.ErrorOrNil()
}

func (m *matcher) logName() string {
	if m.name != "" {
		return m.name
	}
	return m.id
}

// resolveParams binds every declared parameter. skip=true means the
// matcher must not fire (missing binding or unavailable dependency).
func (r *Registry) resolveParams(ctx context.Context, m *matcher, call Call) (args []any, skip bool, err error) {
	args = make([]any, len(m.params))

	type task struct {
		idx int
		dep Dependency
	}
	var tasks []task

	for i, p := range m.params {
		switch p.Source {
		case SourceDep:
			tasks = append(tasks, task{i, p.Dep})
		default:
			if v, ok := call.Kwargs[p.Name]; ok {
				if dep, isDep := v.(Dependency); isDep {
					tasks = append(tasks, task{i, dep})
				} else {
					args[i] = v
				}
				continue
			}
			if v, dep, found := findPositional(call.Args, p.Type); found {
				if dep != nil {
					tasks = append(tasks, task{i, *dep})
				} else {
					args[i] = v
				}
				continue
			}
			if p.HasDefault {
				args[i] = p.Default
				continue
			}
			return nil, true, nil
		}
	}

	if len(tasks) == 0 {
		return args, false, nil
	}

	// Resolve all factories in parallel; results replace their slots.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		resolved = make([]any, len(tasks))
		errs     []error
	)
	wg.Add(len(tasks))
	for ti, t := range tasks {
		go func(ti int, t task) {
			defer wg.Done()
			v, err := t.dep.resolve(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			resolved[ti] = v
		}(ti, t)
	}
	wg.Wait()

	if len(errs) > 0 {
		for _, e := range errs {
			if isIgnored(e, call.Ignored) {
				return nil, false, e
			}
		}
		var agg *multierror.Error
		for _, e := range errs {
			agg = multierror.Append(agg, e)
		}
		return nil, false, fmt.Errorf("resolve dependencies for %s: %w", m.logName(), agg.ErrorOrNil())
	}

	for ti, t := range tasks {
		if resolved[ti] == nil {
			// Unavailable dependency: skip the handler silently.
			return nil, true, nil
		}
		args[t.idx] = resolved[ti]
	}
	return args, false, nil
}

// findPositional locates the first positional arg whose runtime type is
// assignable to want. A Dependency arg binds to any typed slot and is
// returned for resolution.
func findPositional(posArgs []any, want reflect.Type) (any, *Dependency, bool) {
	if want == nil {
		return nil, nil, false
	}
	for _, a := range posArgs {
		if dep, ok := a.(Dependency); ok {
			return nil, &dep, true
		}
		if a == nil {
			continue
		}
		if reflect.TypeOf(a).AssignableTo(want) {
			return a, nil, true
		}
	}
	return nil, nil, false
}

func (r *Registry) callHandler(ctx context.Context, m *matcher, ev Event, args []any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook handler %s panicked: %v", m.logName(), rec)
		}
	}()
	return m.handler(ctx, ev, args)
}

func isIgnored(err error, ignored []error) bool {
	for _, target := range ignored {
		if target != nil && errors.Is(err, target) {
			return true
		}
	}
	return false
}
