package imagegen

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNewCatalogBuiltins(t *testing.T) {
	c := NewCatalog()

	want := []string{"instruct-pix2pix", "stable-diffusion", "stable-diffusion-xl"}
	if got := c.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	m, err := c.Lookup("instruct-pix2pix")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !m.InstructionBased {
		t.Error("instruct-pix2pix should be instruction based")
	}
}

func TestCatalogLookupUnknown(t *testing.T) {
	_, err := NewCatalog().Lookup("no-such-model")
	if err == nil {
		t.Fatal("Lookup() = nil error for unknown model")
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Lookup() error type = %T, want *GenerationError", err)
	}
	if genErr.Code != ErrCodeModelNotFound {
		t.Errorf("Code = %q, want %q", genErr.Code, ErrCodeModelNotFound)
	}
	if genErr.Retryable {
		t.Error("unknown model should not be retryable")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	content := `- name: my-finetune
  description: Custom fine-tune
  checkpoint: local/my-finetune
  max_resolution: 768
  default_strength: 0.8
  default_guidance_scale: 7.0
  default_steps: 35
- name: stable-diffusion
  description: Overridden entry
  checkpoint: local/sd15-custom
  max_resolution: 512
  default_strength: 0.6
  default_guidance_scale: 6.0
  default_steps: 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if len(c.Names()) != 4 {
		t.Errorf("Names() = %v, want 4 entries", c.Names())
	}

	custom, err := c.Lookup("my-finetune")
	if err != nil {
		t.Fatalf("Lookup(my-finetune) error = %v", err)
	}
	if custom.DefaultSteps != 35 {
		t.Errorf("DefaultSteps = %d, want 35", custom.DefaultSteps)
	}

	overridden, err := c.Lookup("stable-diffusion")
	if err != nil {
		t.Fatalf("Lookup(stable-diffusion) error = %v", err)
	}
	if overridden.Checkpoint != "local/sd15-custom" {
		t.Errorf("Checkpoint = %q, want override applied", overridden.Checkpoint)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	c, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v for missing file", err)
	}
	if len(c.Names()) != 3 {
		t.Errorf("Names() = %v, want builtins only", c.Names())
	}
}

func TestLoadCatalogInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Error("LoadCatalog() = nil error for invalid YAML")
	}
}

func TestApplyDefaults(t *testing.T) {
	m := ModelInfo{
		Name:                 "test",
		DefaultStrength:      0.7,
		DefaultGuidanceScale: 8.0,
		DefaultSteps:         40,
	}

	tests := []struct {
		name string
		req  Request
		want Request
	}{
		{
			name: "all unspecified filled from defaults",
			req:  Request{Prompt: "p", Strength: -1},
			want: Request{Prompt: "p", Strength: 0.7, GuidanceScale: 8.0, Steps: 40},
		},
		{
			name: "explicit values kept",
			req:  Request{Prompt: "p", Strength: 0.5, GuidanceScale: 5.0, Steps: 20},
			want: Request{Prompt: "p", Strength: 0.5, GuidanceScale: 5.0, Steps: 20},
		},
		{
			name: "explicit zero strength kept",
			req:  Request{Prompt: "p", Strength: 0, GuidanceScale: 5.0, Steps: 20},
			want: Request{Prompt: "p", Strength: 0, GuidanceScale: 5.0, Steps: 20},
		},
		{
			name: "partial fill",
			req:  Request{Prompt: "p", Strength: 0.9},
			want: Request{Prompt: "p", Strength: 0.9, GuidanceScale: 8.0, Steps: 40},
		},
		{
			name: "negative strength replaced",
			req:  Request{Prompt: "p", Strength: -1, GuidanceScale: 5.0, Steps: 20},
			want: Request{Prompt: "p", Strength: 0.7, GuidanceScale: 5.0, Steps: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ApplyDefaults(tt.req)
			if got != tt.want {
				t.Errorf("ApplyDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
