package aimodel

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/chefmayhem/carbonai-go/common"
	"github.com/valyala/fastjson"
)

//go:embed models.json
var defaultModels []byte

// DefaultQuantizationBits is the weight precision assumed when serving a model.
const DefaultQuantizationBits = 16

type AIModel struct {
	name         string
	provider     Provider
	architecture Architecture
	warnings     []Warning
	sources      []string
}

type Provider string

const (
	Anthropic      Provider = "anthropic"
	Mistralai      Provider = "mistralai"
	OpenAI         Provider = "openai"
	HuggingfaceHub Provider = "huggingface_hub"
	Cohere         Provider = "cohere"
	Google         Provider = "google"
)

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ArchitectureType string

const (
	DENSE ArchitectureType = "dense"
	MOE   ArchitectureType = "moe"
)

// Parameters holds parameter counts in billions. Dense models have Active equal to Total.
type Parameters struct {
	Total  common.RangeValue `json:"total"`
	Active common.RangeValue `json:"active"`
}

type Architecture struct {
	Type       ArchitectureType `json:"type"`
	Parameters Parameters       `json:"parameters"`
}

func (a *AIModel) Provider() Provider {
	return a.provider
}

func (a *AIModel) Name() string {
	return a.name
}

func (a *AIModel) Architecture() Architecture {
	return a.architecture
}

func (a *AIModel) Sources() []string {
	return a.sources
}

func (a *AIModel) Warnings() []Warning {
	return a.warnings
}

// RequiredMemoryGB computes the GPU memory needed to load the model with the given weight precision.
func (a *AIModel) RequiredMemoryGB(quantizationBits float64) float64 {
	return 1.2 * a.architecture.Parameters.Total.Max * quantizationBits / 8
}

// Registry indexes models by name and alias.
type Registry struct {
	models  map[string]AIModel
	aliases map[string]string
}

// DefaultRegistry returns the catalog bundled with the package.
func DefaultRegistry() (*Registry, error) {
	return ParseRegistry(defaultModels)
}

// ReadRegistry loads a catalog file from disk.
func ReadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a catalog of the form {"aliases": [...], "models": [...]}.
func ParseRegistry(data []byte) (*Registry, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse models: %w", err)
	}

	r := &Registry{
		models:  make(map[string]AIModel),
		aliases: make(map[string]string),
	}
	for _, mv := range v.GetArray("models") {
		model, err := parseModel(mv)
		if err != nil {
			return nil, err
		}
		r.models[model.name] = model
	}
	for _, av := range v.GetArray("aliases") {
		alias := string(av.GetStringBytes("alias"))
		name := string(av.GetStringBytes("name"))
		if alias == "" || name == "" {
			return nil, errors.New("alias entries must have a name and an alias")
		}
		r.aliases[alias] = name
	}
	return r, nil
}

// Len returns the number of models in the registry, aliases excluded.
func (r *Registry) Len() int {
	return len(r.models)
}

// Lookup resolves name directly or through an alias.
func (r *Registry) Lookup(name string) (*AIModel, error) {
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}
	if m, ok := r.models[name]; ok {
		return &m, nil
	}
	if target, ok := r.aliases[name]; ok {
		if m, ok := r.models[target]; ok {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("unknown model %q", name)
}

func parseModel(v *fastjson.Value) (AIModel, error) {
	name := string(v.GetStringBytes("name"))
	if name == "" {
		return AIModel{}, errors.New("model name cannot be empty")
	}
	arch := v.Get("architecture")
	if arch == nil {
		return AIModel{}, fmt.Errorf("model %s has no architecture", name)
	}
	archType := ArchitectureType(arch.GetStringBytes("type"))
	params, err := parseParameters(archType, arch.Get("parameters"))
	if err != nil {
		return AIModel{}, fmt.Errorf("model %s: %w", name, err)
	}
	return AIModel{
		name:     name,
		provider: Provider(v.GetStringBytes("provider")),
		architecture: Architecture{
			Type:       archType,
			Parameters: params,
		},
		warnings: parseWarnings(v.GetArray("warnings")),
		sources:  parseStringArray(v.GetArray("sources")),
	}, nil
}

// parseParameters accepts {"total": x, "active": y} for mixture of experts models and a single
// count or range for dense ones.
func parseParameters(archType ArchitectureType, v *fastjson.Value) (Parameters, error) {
	if v == nil {
		return Parameters{}, errors.New("missing parameters")
	}
	if archType == DENSE {
		total, err := parseRangeValue(v)
		if err != nil {
			return Parameters{}, fmt.Errorf("parameters: %w", err)
		}
		return Parameters{Total: total, Active: total}, nil
	}
	total, err := parseRangeValue(v.Get("total"))
	if err != nil {
		return Parameters{}, fmt.Errorf("parameters.total: %w", err)
	}
	active, err := parseRangeValue(v.Get("active"))
	if err != nil {
		return Parameters{}, fmt.Errorf("parameters.active: %w", err)
	}
	return Parameters{Total: total, Active: active}, nil
}

// parseRangeValue accepts a number or an object with min and/or max. A missing bound takes the
// value of the other one.
func parseRangeValue(v *fastjson.Value) (common.RangeValue, error) {
	if v == nil {
		return common.RangeValue{}, errors.New("missing value")
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		return common.Point(v.GetFloat64()), nil
	case fastjson.TypeObject:
		minV, maxV := v.Get("min"), v.Get("max")
		if minV == nil && maxV == nil {
			return common.RangeValue{}, errors.New("range needs min or max")
		}
		if minV == nil {
			minV = maxV
		}
		if maxV == nil {
			maxV = minV
		}
		lo, err := minV.Float64()
		if err != nil {
			return common.RangeValue{}, fmt.Errorf("unexpected type for min: %w", err)
		}
		hi, err := maxV.Float64()
		if err != nil {
			return common.RangeValue{}, fmt.Errorf("unexpected type for max: %w", err)
		}
		return common.RangeValue{Min: lo, Max: hi}, nil
	default:
		return common.RangeValue{}, fmt.Errorf("unexpected type %s", v.Type())
	}
}

func parseWarnings(arr []*fastjson.Value) []Warning {
	warnings := make([]Warning, 0, len(arr))
	for _, w := range arr {
		warnings = append(warnings, Warning{
			Code:    string(w.GetStringBytes("code")),
			Message: string(w.GetStringBytes("message")),
		})
	}
	return warnings
}

func parseStringArray(arr []*fastjson.Value) []string {
	out := make([]string, 0, len(arr))
	for _, s := range arr {
		out = append(out, string(s.GetStringBytes()))
	}
	return out
}
