package models

// ModelConfig holds generation parameters attached to a preset.
type ModelConfig struct {
	TopK              int     `json:"top_k" yaml:"top_k"`
	TopP              float64 `json:"top_p" yaml:"top_p"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`
	Stream            bool    `json:"stream" yaml:"stream"`
	ThoughtChainModel bool    `json:"thought_chain_model" yaml:"thought_chain_model"`
	Multimodal        bool    `json:"multimodal" yaml:"multimodal"`
}

// DefaultModelConfig mirrors the defaults a fresh preset carries.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		TopP:        1.0,
		Temperature: 0.7,
		Stream:      true,
	}
}

// ModelPreset is a named bundle of model identity, endpoint, credentials
// and generation parameters. Protocol selects the adapter implementation.
type ModelPreset struct {
	Name     string         `json:"name" yaml:"name"`
	Model    string         `json:"model" yaml:"model"`
	BaseURL  string         `json:"base_url" yaml:"base_url"`
	APIKey   string         `json:"api_key" yaml:"api_key"`
	Protocol string         `json:"protocol" yaml:"protocol"`
	Config   ModelConfig    `json:"config" yaml:"config"`
	Extra    map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// DefaultPreset returns a preset with normalized defaults applied.
func DefaultPreset() ModelPreset {
	return ModelPreset{
		Name:     "default",
		Protocol: "__main__",
		Config:   DefaultModelConfig(),
	}
}

// Normalize fills zero-valued fields with their defaults; load paths call
// this so a round-trip is stable.
func (p ModelPreset) Normalize() ModelPreset {
	if p.Protocol == "" {
		p.Protocol = "__main__"
	}
	if p.Config.TopP == 0 {
		p.Config.TopP = 1.0
	}
	return p
}

// Clone returns a deep copy of the preset.
func (p ModelPreset) Clone() ModelPreset {
	if p.Extra != nil {
		extra := make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}
