package imagegen

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelInfo describes one pretrained model in the catalog.
// This is an atom-level type with no dependencies.
type ModelInfo struct {
	// Name is the catalog key, e.g. "stable-diffusion".
	Name string `json:"name" yaml:"name"`

	// Description is a one-line human-readable summary.
	Description string `json:"description" yaml:"description"`

	// Checkpoint is the backend checkpoint identifier, e.g. the
	// SD WebUI model title or a HuggingFace repo id.
	Checkpoint string `json:"checkpoint" yaml:"checkpoint"`

	// MaxResolution is the largest edge length the model handles well.
	MaxResolution int `json:"max_resolution" yaml:"max_resolution"`

	// DefaultStrength, DefaultGuidanceScale and DefaultSteps are applied
	// when a request leaves the corresponding field at its zero value.
	DefaultStrength      float64 `json:"default_strength" yaml:"default_strength"`
	DefaultGuidanceScale float64 `json:"default_guidance_scale" yaml:"default_guidance_scale"`
	DefaultSteps         int     `json:"default_steps" yaml:"default_steps"`

	// InstructionBased marks models that take edit instructions
	// ("make it a watercolor") rather than scene descriptions.
	InstructionBased bool `json:"instruction_based" yaml:"instruction_based"`
}

// builtinModels is the catalog shipped with the binary.
// A YAML file can extend or override it (see LoadCatalog).
var builtinModels = []ModelInfo{
	{
		Name:                 "stable-diffusion",
		Description:          "Stable Diffusion v1.5 image-to-image",
		Checkpoint:           "runwayml/stable-diffusion-v1-5",
		MaxResolution:        768,
		DefaultStrength:      0.75,
		DefaultGuidanceScale: 7.5,
		DefaultSteps:         50,
	},
	{
		Name:                 "stable-diffusion-xl",
		Description:          "Stable Diffusion XL image-to-image (higher quality, slower)",
		Checkpoint:           "stabilityai/stable-diffusion-xl-base-1.0",
		MaxResolution:        1024,
		DefaultStrength:      0.7,
		DefaultGuidanceScale: 7.5,
		DefaultSteps:         40,
	},
	{
		Name:                 "instruct-pix2pix",
		Description:          "InstructPix2Pix instruction-based editing",
		Checkpoint:           "timbrooks/instruct-pix2pix",
		MaxResolution:        768,
		DefaultStrength:      1.0,
		DefaultGuidanceScale: 7.5,
		DefaultSteps:         30,
		InstructionBased:     true,
	},
}

// Catalog is the set of models available to a Generator.
// Lookup is by catalog name; the zero value is unusable, use NewCatalog.
type Catalog struct {
	models map[string]ModelInfo
}

// NewCatalog returns a catalog containing the builtin models.
func NewCatalog() *Catalog {
	c := &Catalog{models: make(map[string]ModelInfo, len(builtinModels))}
	for _, m := range builtinModels {
		c.models[m.Name] = m
	}
	return c
}

// LoadCatalog returns the builtin catalog extended by the YAML file at
// path. Entries in the file with a Name matching a builtin model replace
// that model; other entries are added. A missing file is not an error.
//
// The file format is a list of ModelInfo entries:
//
//   - name: my-finetune
//     description: Custom fine-tune
//     checkpoint: local/my-finetune
//     max_resolution: 768
//     default_strength: 0.8
//     default_guidance_scale: 7.0
//     default_steps: 35
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("imagegen: read catalog %s: %w", path, err)
	}

	var entries []ModelInfo
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("imagegen: parse catalog %s: %w", path, err)
	}

	for _, m := range entries {
		if m.Name == "" {
			return nil, fmt.Errorf("imagegen: catalog %s: entry missing name", path)
		}
		c.models[m.Name] = m
	}
	return c, nil
}

// Lookup returns the model with the given catalog name.
func (c *Catalog) Lookup(name string) (ModelInfo, error) {
	m, ok := c.models[name]
	if !ok {
		return ModelInfo{}, NewGenerationError(ErrCodeModelNotFound,
			fmt.Sprintf("unknown model %q (available: %v)", name, c.Names()), false, nil)
	}
	return m, nil
}

// Names returns the catalog names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all models sorted by name.
func (c *Catalog) List() []ModelInfo {
	models := make([]ModelInfo, 0, len(c.models))
	for _, name := range c.Names() {
		models = append(models, c.models[name])
	}
	return models
}

// ApplyDefaults fills unspecified tunables in the request from the
// model's defaults. Strength uses a negative sentinel for "unspecified"
// because zero is a valid value; guidance scale and steps treat zero as
// unspecified since zero is outside their valid ranges.
// This is a pure function with no side effects.
func (m ModelInfo) ApplyDefaults(req Request) Request {
	if req.Strength < 0 {
		req.Strength = m.DefaultStrength
	}
	if req.GuidanceScale == 0 {
		req.GuidanceScale = m.DefaultGuidanceScale
	}
	if req.Steps == 0 {
		req.Steps = m.DefaultSteps
	}
	return req
}
