package preset

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/amrita-ai/amrita/pkg/models"
)

func testPreset(name string) models.ModelPreset {
	return models.ModelPreset{
		Name:     name,
		Model:    "gpt-4o-mini",
		BaseURL:  "https://api.example.com/v1",
		APIKey:   "sk-test",
		Protocol: "openai",
		Config:   models.DefaultModelConfig(),
	}
}

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(testPreset("a")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := r.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("unexpected preset: %+v", got)
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	r.Remove("a")
	if _, err := r.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
}

func TestRegistry_DuplicateAddReplaces(t *testing.T) {
	r := NewRegistry()
	first := testPreset("a")
	if err := r.Add(first); err != nil {
		t.Fatal(err)
	}
	second := testPreset("a")
	second.Model = "gpt-4o"
	if err := r.Add(second); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get("a")
	if got.Model != "gpt-4o" {
		t.Errorf("duplicate Add did not replace: %+v", got)
	}
	if r.Len() != 1 {
		t.Errorf("expected single entry, got %d", r.Len())
	}
}

func TestRegistry_Default(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Default(); !errors.Is(err, ErrNoDefault) {
		t.Errorf("expected ErrNoDefault, got %v", err)
	}

	if err := r.SetDefault("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetDefault of unknown preset: got %v", err)
	}

	if err := r.Add(testPreset("a")); err != nil {
		t.Fatal(err)
	}
	if err := r.SetDefault("a"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	got, err := r.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if got.Name != "a" {
		t.Errorf("Default() = %q", got.Name)
	}

	// Removing the default clears it.
	r.Remove("a")
	if _, err := r.Default(); !errors.Is(err, ErrNoDefault) {
		t.Errorf("expected ErrNoDefault after removing default, got %v", err)
	}
}

func TestFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.json")
	p := testPreset("round")
	p.Extra = map[string]any{"region": "us"}

	if err := SaveFile(path, p); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	back, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !reflect.DeepEqual(p.Normalize(), back) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, p.Normalize())
	}
}

func TestFile_LoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.json")
	if err := SaveFile(path, models.ModelPreset{Name: "bare", Model: "m"}); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Protocol != "__main__" || got.Config.TopP != 1.0 {
		t.Errorf("normalization not applied: %+v", got)
	}
}

func TestMultiRegistry_Group(t *testing.T) {
	m := NewMultiRegistry()
	g1 := m.Group("alpha")
	if err := g1.Add(testPreset("a")); err != nil {
		t.Fatal(err)
	}

	// Same name returns the same registry; other names are isolated.
	if m.Group("alpha") != g1 {
		t.Error("Group is not stable for the same name")
	}
	if m.Group("beta").Len() != 0 {
		t.Error("groups share presets")
	}
	if got := m.Groups(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("Groups() = %v", got)
	}
}

func TestProbe(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(testPreset("good")); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(testPreset("bad")); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("unreachable")
	results := Probe(context.Background(), r, func(_ context.Context, p models.ModelPreset) error {
		if p.Name == "bad" {
			return boom
		}
		return nil
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		switch res.Name {
		case "good":
			if res.Err != nil {
				t.Errorf("good preset reported error: %v", res.Err)
			}
		case "bad":
			if !errors.Is(res.Err, boom) {
				t.Errorf("bad preset error = %v", res.Err)
			}
		}
	}
}
