package hooks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amrita-ai/amrita/pkg/models"
)

func TestRegistry_RegisterAndTrigger(t *testing.T) {
	r := NewRegistry(nil)

	called := false
	id, err := r.Register(KindPreCompletion, func(ctx context.Context, e Event, args []any) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == "" {
		t.Error("expected non-empty registration ID")
	}
	if r.MatcherCount(KindPreCompletion) != 1 {
		t.Errorf("expected 1 matcher, got %d", r.MatcherCount(KindPreCompletion))
	}

	ev := &PreCompletionEvent{Messages: []models.Message{models.NewUserMessage("hi")}}
	if err := r.Trigger(context.Background(), ev, Call{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry(nil)
	id, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Unregister(id) {
		t.Error("expected Unregister to return true")
	}
	if r.Unregister(id) {
		t.Error("expected Unregister to return false for removed matcher")
	}
	if r.MatcherCount(KindCompletion) != 0 {
		t.Error("matcher still present after unregister")
	}
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatal(err)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("matchers fired out of registration order: %v", order)
		}
	}
}

func TestRegistry_PriorityBeforeOrder(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	reg := func(name string, prio int) {
		if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
			order = append(order, name)
			return nil
		}, WithName(name), WithPriority(prio)); err != nil {
			t.Fatal(err)
		}
	}
	reg("late", 10)
	reg("early", 1)
	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "early" {
		t.Errorf("priority not honored: %v", order)
	}
}

func TestRegistry_BlockStopsDispatch(t *testing.T) {
	r := NewRegistry(nil)
	var calls int
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		calls++
		return nil
	}, WithBlock()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		calls++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("blocking matcher did not stop dispatch, %d handlers ran", calls)
	}
}

func TestRegistry_EventMutationVisible(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Register(KindPreCompletion, func(ctx context.Context, e Event, args []any) error {
		pre := e.(*PreCompletionEvent)
		pre.Messages = append(pre.Messages, models.NewSystemMessage("injected"))
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	var seen int
	if _, err := r.Register(KindPreCompletion, func(ctx context.Context, e Event, args []any) error {
		seen = len(e.(*PreCompletionEvent).Messages)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	ev := &PreCompletionEvent{Messages: []models.Message{models.NewUserMessage("hi")}}
	if err := r.Trigger(context.Background(), ev, Call{}); err != nil {
		t.Fatal(err)
	}
	if seen != 2 {
		t.Errorf("second matcher saw %d messages, want 2", seen)
	}
	if len(ev.Messages) != 2 {
		t.Errorf("caller sees %d messages, want 2", len(ev.Messages))
	}
}

func TestRegistry_KwargBinding(t *testing.T) {
	r := NewRegistry(nil)
	var got string
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		got = args[0].(string)
		return nil
	}, WithParams(P[string]("user"))); err != nil {
		t.Fatal(err)
	}

	err := r.Trigger(context.Background(), &CompletionEvent{}, Call{
		Kwargs: map[string]any{"user": "alice"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "alice" {
		t.Errorf("kwarg not bound: %q", got)
	}
}

func TestRegistry_PositionalBindingByType(t *testing.T) {
	r := NewRegistry(nil)
	var gotInt int
	var gotStr string
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		gotStr = args[0].(string)
		gotInt = args[1].(int)
		return nil
	}, WithParams(P[string]("label"), P[int]("count"))); err != nil {
		t.Fatal(err)
	}

	err := r.Trigger(context.Background(), &CompletionEvent{}, Call{
		Args: []any{42, "tagged"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotStr != "tagged" || gotInt != 42 {
		t.Errorf("positional binding wrong: %q %d", gotStr, gotInt)
	}
}

func TestRegistry_UnresolvableParamSkipsMatcher(t *testing.T) {
	r := NewRegistry(nil)
	called := false
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		called = true
		return nil
	}, WithParams(P[string]("missing"))); err != nil {
		t.Fatal(err)
	}

	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatalf("skip must not be an error: %v", err)
	}
	if called {
		t.Error("matcher with unresolvable param must be skipped")
	}
}

func TestRegistry_DefaultParam(t *testing.T) {
	r := NewRegistry(nil)
	var got int
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		got = args[0].(int)
		return nil
	}, WithParams(PDefault("retries", 3))); err != nil {
		t.Fatal(err)
	}
	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("default not applied: %d", got)
	}
}

func TestRegistry_DependencyResolution(t *testing.T) {
	r := NewRegistry(nil)
	dep := Depends(func(ctx context.Context) (any, error) {
		return "from-factory", nil
	})
	var got string
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		got = args[0].(string)
		return nil
	}, WithParams(PDep("v", dep))); err != nil {
		t.Fatal(err)
	}
	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatal(err)
	}
	if got != "from-factory" {
		t.Errorf("dependency not resolved: %q", got)
	}
}

func TestRegistry_DependenciesResolveConcurrently(t *testing.T) {
	r := NewRegistry(nil)
	var inFlight, peak int32
	slow := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "v", nil
	}
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		return nil
	}, WithParams(PDep("a", Depends(slow)), PDep("b", Depends(slow)), PDep("c", Depends(slow)))); err != nil {
		t.Fatal(err)
	}
	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&peak) < 2 {
		t.Errorf("factories did not overlap, peak in-flight = %d", peak)
	}
}

func TestRegistry_NilFactoryResultSkipsHandler(t *testing.T) {
	r := NewRegistry(nil)
	called := false
	dep := Depends(func(ctx context.Context) (any, error) { return nil, nil })
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		called = true
		return nil
	}, WithParams(PDep("v", dep))); err != nil {
		t.Fatal(err)
	}
	if err := r.Trigger(context.Background(), &CompletionEvent{}, Call{}); err != nil {
		t.Fatalf("unavailable dependency must skip silently: %v", err)
	}
	if called {
		t.Error("handler ran despite unavailable dependency")
	}
}

func TestRegistry_FactoryErrorAggregated(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("factory boom")
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		t.Error("handler must not run")
		return nil
	}, WithParams(PDep("v", Depends(func(ctx context.Context) (any, error) { return nil, boom })))); err != nil {
		t.Fatal(err)
	}

	ran := false
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	err := r.Trigger(context.Background(), &CompletionEvent{}, Call{})
	if !errors.Is(err, boom) {
		t.Errorf("aggregate should wrap factory error, got %v", err)
	}
	if !ran {
		t.Error("later matcher must still run after an aggregated failure")
	}
}

func TestRegistry_IgnoredErrorReRaised(t *testing.T) {
	r := NewRegistry(nil)
	sentinel := errors.New("stop the world")
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		return nil
	}, WithParams(PDep("v", Depends(func(ctx context.Context) (any, error) { return nil, sentinel })))); err != nil {
		t.Fatal(err)
	}

	laterRan := false
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		laterRan = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	err := r.Trigger(context.Background(), &CompletionEvent{}, Call{Ignored: []error{sentinel}})
	if !errors.Is(err, sentinel) {
		t.Fatalf("ignored error must be re-raised, got %v", err)
	}
	if laterRan {
		t.Error("dispatch must abort on a re-raised error")
	}
}

func TestRegistry_DependsCycleRejected(t *testing.T) {
	r := NewRegistry(nil)
	nested := Depends(func(ctx context.Context) (any, error) {
		return Depends(func(ctx context.Context) (any, error) { return "inner", nil }), nil
	})
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		return nil
	}, WithParams(PDep("v", nested))); err != nil {
		t.Fatal(err)
	}

	err := r.Trigger(context.Background(), &CompletionEvent{}, Call{})
	if !errors.Is(err, ErrDependsCycle) {
		t.Errorf("expected ErrDependsCycle, got %v", err)
	}
}

func TestRegistry_HandlerPanicRecovered(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Register(KindCompletion, func(ctx context.Context, e Event, args []any) error {
		panic("oops")
	}); err != nil {
		t.Fatal(err)
	}
	err := r.Trigger(context.Background(), &CompletionEvent{}, Call{})
	if err == nil {
		t.Error("panic should surface as an aggregated error")
	}
}

func TestRegistry_CustomEventRouting(t *testing.T) {
	r := NewRegistry(nil)
	var got any
	if _, err := r.Register(CustomKind("cookie.leak"), func(ctx context.Context, e Event, args []any) error {
		got = e.(*CustomEvent).Payload
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := r.Trigger(context.Background(), &CustomEvent{Name: "cookie.leak", Payload: "s1"}, Call{}); err != nil {
		t.Fatal(err)
	}
	if got != "s1" {
		t.Errorf("custom event payload = %v", got)
	}

	// Other custom names do not match.
	if err := r.Trigger(context.Background(), &CustomEvent{Name: "other", Payload: "x"}, Call{}); err != nil {
		t.Fatal(err)
	}
	if got != "s1" {
		t.Error("matcher fired for wrong custom event name")
	}
}

func TestRegistry_FallbackEventFail(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Register(KindFallback, func(ctx context.Context, e Event, args []any) error {
		e.(*FallbackEvent).Fail("no more presets")
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	ev := &FallbackEvent{Term: 1, Err: errors.New("timeout")}
	if err := r.Trigger(context.Background(), ev, Call{}); err != nil {
		t.Fatal(err)
	}
	failed, reason := ev.Failed()
	if !failed || reason != "no more presets" {
		t.Errorf("Fail not recorded: %v %q", failed, reason)
	}
}
