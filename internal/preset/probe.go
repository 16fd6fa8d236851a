package preset

import (
	"context"

	"github.com/amrita-ai/amrita/pkg/models"
)

// ProbeResult reports the health of one preset.
type ProbeResult struct {
	Name string
	Err  error
}

// CallFunc issues a minimal request against a preset and returns the
// error, if any. The chat layer supplies an adapter-backed implementation.
type CallFunc func(ctx context.Context, p models.ModelPreset) error

// Probe calls every preset in the registry and collects a per-preset
// report. Probing continues past failures.
func Probe(ctx context.Context, r *Registry, call CallFunc) []ProbeResult {
	names := r.List()
	results := make([]ProbeResult, 0, len(names))
	for _, name := range names {
		p, err := r.Get(name)
		if err == nil {
			err = call(ctx, p)
		}
		results = append(results, ProbeResult{Name: name, Err: err})
	}
	return results
}
