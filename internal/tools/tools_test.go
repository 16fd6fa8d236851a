package tools

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/amrita-ai/amrita/pkg/models"
)

func echoTool() Tool {
	return NewSimple("echo", "Echoes the input with a bang").
		String("x", "text to echo").
		Handle(func(ctx context.Context, args map[string]any) (string, error) {
			return args["x"].(string) + "!", nil
		})
}

func TestRegistry_RegisterGetRemove(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Has("echo") {
		t.Error("Has(echo) = false")
	}

	tool, err := r.Get("echo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tool.Name() != "echo" {
		t.Errorf("Name() = %q", tool.Name())
	}

	r.Remove("echo")
	if _, err := r.Get("echo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_RejectsBadTool(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Tool{}); err == nil {
		t.Error("empty tool accepted")
	}
	both := echoTool()
	both.CustomRun = func(ctx context.Context, inv *Invocation) (string, bool, error) { return "", false, nil }
	if err := r.Register(both); err == nil {
		t.Error("tool with both bodies accepted")
	}
}

func TestRegistry_SetEnabled(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool()); err != nil {
		t.Fatal(err)
	}
	if err := r.SetEnabled("echo", false); err != nil {
		t.Fatal(err)
	}

	m := MultiRegistry{Global: r}
	if got := m.ListActive(ListContext{Config: models.DefaultConfig()}); len(got) != 0 {
		t.Errorf("disabled tool still listed: %v", got)
	}

	if err := r.SetEnabled("echo", true); err != nil {
		t.Fatal(err)
	}
	if got := m.ListActive(ListContext{Config: models.DefaultConfig()}); len(got) != 1 {
		t.Errorf("re-enabled tool missing: %v", got)
	}
}

func TestMultiRegistry_ModeFiltering(t *testing.T) {
	g := NewRegistry()
	if err := g.Register(echoTool()); err != nil {
		t.Fatal(err)
	}
	m := MultiRegistry{Global: g}

	cfg := models.DefaultConfig()
	cfg.Function.ToolCallingMode = models.ToolModeNone
	if got := m.ListActive(ListContext{Config: cfg}); len(got) != 0 {
		t.Errorf("mode none must yield no tools, got %d", len(got))
	}

	cfg.Function.ToolCallingMode = models.ToolModeAgent
	if got := m.ListActive(ListContext{Config: cfg}); len(got) != 1 {
		t.Errorf("mode agent: got %d tools", len(got))
	}

	cfg.Function.ToolCallingMode = models.ToolModeRAG
	if got := m.ListActive(ListContext{Config: cfg}); len(got) != 1 {
		t.Errorf("mode rag: got %d tools", len(got))
	}
}

func TestMultiRegistry_ChatModeHidesReasoningTools(t *testing.T) {
	g := NewRegistry()
	reason := NewSimple("think_and_reason", "Records a reasoning step").
		String("content", "the reasoning").
		Handle(func(ctx context.Context, args map[string]any) (string, error) { return "", nil })
	reason.Reasoning = true
	if err := g.Register(reason); err != nil {
		t.Fatal(err)
	}
	if err := g.Register(echoTool()); err != nil {
		t.Fatal(err)
	}

	cfg := models.DefaultConfig()
	cfg.Function.AgentThoughtMode = models.ThoughtChat
	got := MultiRegistry{Global: g}.ListActive(ListContext{Config: cfg})
	if len(got) != 1 || got[0].Name() != "echo" {
		t.Errorf("chat mode should hide reasoning tools, got %v", names(got))
	}
}

func TestMultiRegistry_SessionShadowsGlobal(t *testing.T) {
	g := NewRegistry()
	s := NewRegistry()
	if err := g.Register(echoTool()); err != nil {
		t.Fatal(err)
	}
	shadow := NewSimple("echo", "session override").
		String("x", "text").
		Handle(func(ctx context.Context, args map[string]any) (string, error) { return "session", nil })
	if err := s.Register(shadow); err != nil {
		t.Fatal(err)
	}

	m := MultiRegistry{Global: g, Session: s}
	got := m.ListActive(ListContext{Config: models.DefaultConfig()})
	if len(got) != 1 || got[0].Schema.Function.Description != "session override" {
		t.Errorf("session tool should shadow global: %v", got)
	}

	tool, err := m.Resolve("echo")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tool.Run(context.Background(), map[string]any{"x": "ignored"})
	if err != nil || out != "session" {
		t.Errorf("Resolve returned wrong layer: %q %v", out, err)
	}
}

func TestEnableIf_EvaluatedPerCall(t *testing.T) {
	enabled := true
	tool := NewSimple("toggle", "conditionally available").
		String("x", "text").
		EnableIf(func(lc ListContext) bool { return enabled }).
		Handle(func(ctx context.Context, args map[string]any) (string, error) { return "", nil })
	g := NewRegistry()
	if err := g.Register(tool); err != nil {
		t.Fatal(err)
	}
	m := MultiRegistry{Global: g}
	lc := ListContext{Config: models.DefaultConfig()}

	if len(m.ListActive(lc)) != 1 {
		t.Error("tool should be listed while enabled")
	}
	enabled = false
	if len(m.ListActive(lc)) != 0 {
		t.Error("tool should vanish when predicate flips")
	}
}

func TestValidateArgs(t *testing.T) {
	tool := echoTool()

	args, err := ValidateArgs(tool, `{"x":"hello"}`)
	if err != nil {
		t.Fatalf("valid args rejected: %v", err)
	}
	if args["x"] != "hello" {
		t.Errorf("args = %v", args)
	}

	var sv *SchemaViolationError
	if _, err := ValidateArgs(tool, `{}`); !errors.As(err, &sv) {
		t.Errorf("missing required field: expected SchemaViolationError, got %v", err)
	}
	if _, err := ValidateArgs(tool, `{"x":42}`); !errors.As(err, &sv) {
		t.Errorf("wrong type: expected SchemaViolationError, got %v", err)
	}
	if _, err := ValidateArgs(tool, `{"x":`); !errors.As(err, &sv) {
		t.Errorf("broken JSON: expected SchemaViolationError, got %v", err)
	}
}

func TestValidateArgs_DefaultsAndEmpty(t *testing.T) {
	tool := Tool{
		Schema: models.NewToolFunctionSchema(models.FunctionDefinitionSchema{
			Name:        "greet",
			Description: "greets",
			Parameters: models.FunctionParametersSchema{
				Type: "object",
				Properties: map[string]models.PropertySchema{
					"name": {Type: "string", Default: "world"},
				},
			},
		}),
		Run: func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	}

	args, err := ValidateArgs(tool, "")
	if err != nil {
		t.Fatalf("empty args: %v", err)
	}
	if args["name"] != "world" {
		t.Errorf("default not applied: %v", args)
	}
}

func TestInvoke_DefaultMode(t *testing.T) {
	res, err := Invoke(context.Background(), echoTool(), `{"x":"hello"}`, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Content != "hello!" || !res.Append {
		t.Errorf("result = %+v", res)
	}
}

type captureEmitter struct{ chunks []string }

func (c *captureEmitter) YieldResponse(chunk string) error {
	c.chunks = append(c.chunks, chunk)
	return nil
}

func TestInvoke_CustomRun(t *testing.T) {
	tool := Tool{
		Schema: models.NewToolFunctionSchema(models.FunctionDefinitionSchema{
			Name:        "streamer",
			Description: "streams a chunk",
			Parameters: models.FunctionParametersSchema{
				Type: "object",
				Properties: map[string]models.PropertySchema{
					"content": {Type: "string"},
				},
				Required: []string{"content"},
			},
		}),
		CustomRun: func(ctx context.Context, inv *Invocation) (string, bool, error) {
			if err := inv.Emitter.YieldResponse(inv.Data["content"].(string)); err != nil {
				return "", false, err
			}
			return "", false, nil
		},
	}

	em := &captureEmitter{}
	res, err := Invoke(context.Background(), tool, `{"content":"working on it"}`, em)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Append {
		t.Error("custom tool returning nothing must not append a result")
	}
	if !reflect.DeepEqual(em.chunks, []string{"working on it"}) {
		t.Errorf("emitted chunks = %v", em.chunks)
	}
}

func TestCoerceResult(t *testing.T) {
	if got := CoerceResult("plain"); got != "plain" {
		t.Errorf("string passthrough broken: %q", got)
	}
	if got := CoerceResult(map[string]any{"ok": true}); got != `{"ok":true}` {
		t.Errorf("JSON coercion = %q", got)
	}
	if got := CoerceResult(42); got != "42" {
		t.Errorf("number coercion = %q", got)
	}
}

func names(list []Tool) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Name()
	}
	return out
}
