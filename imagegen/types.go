// Package imagegen implements image-to-image transformation on top of
// pretrained diffusion model backends.
//
// The package is organized by atomic design:
//   - Atoms: Request, Response, GenerationError (types.go)
//   - Molecules: Provider implementations (sdwebui.go, openai_provider.go, stub_provider.go)
//   - Organisms: Generator (generator.go) orchestrating validation, resizing,
//     provider calls and retries
package imagegen

import (
	"fmt"
	"image"
	"time"
)

// Parameter bounds for transformation requests.
// These mirror the ranges exposed by the studio sliders.
const (
	// MinStrength and MaxStrength bound how much the output may deviate
	// from the input image. 0.0 returns the input nearly unchanged,
	// 1.0 ignores it almost entirely.
	MinStrength = 0.0
	MaxStrength = 1.0

	// MinGuidanceScale and MaxGuidanceScale bound prompt adherence.
	MinGuidanceScale = 1.0
	MaxGuidanceScale = 20.0

	// MinSteps and MaxSteps bound the number of denoising steps.
	MinSteps = 10
	MaxSteps = 100

	// MaxPromptLength is the maximum prompt length in bytes.
	MaxPromptLength = 1000
)

// Request describes one image-to-image transformation.
// This is an atom-level type with no dependencies on other packages.
type Request struct {
	// Image is the decoded input image to transform.
	Image image.Image `json:"-"`

	// Prompt is the text instruction guiding the transformation.
	Prompt string `json:"prompt"`

	// NegativePrompt lists concepts to steer away from.
	NegativePrompt string `json:"negative_prompt,omitempty"`

	// Model is the catalog name of the model to use,
	// e.g. "stable-diffusion" or "instruct-pix2pix".
	Model string `json:"model"`

	// Strength controls how far the output may drift from the input.
	// Must be within [MinStrength, MaxStrength] once defaults are
	// applied. A negative value means "not specified" and is replaced
	// by the model's default; zero is a valid, explicit choice that
	// returns the input nearly unchanged.
	Strength float64 `json:"strength"`

	// GuidanceScale controls prompt adherence.
	// Must be within [MinGuidanceScale, MaxGuidanceScale].
	GuidanceScale float64 `json:"guidance_scale"`

	// Steps is the number of denoising steps.
	// Must be within [MinSteps, MaxSteps].
	Steps int `json:"num_inference_steps"`

	// Seed makes generation reproducible. -1 selects a random seed.
	Seed int64 `json:"seed"`

	// Style is an optional label recorded in output filenames and
	// metadata, e.g. "oil-painting". Free-form.
	Style string `json:"style,omitempty"`
}

// Validate checks the request parameters against the documented bounds.
// Returns nil if valid, or an error describing the first problem found.
// This is a pure function with no side effects.
func (r Request) Validate() error {
	if r.Image == nil {
		return fmt.Errorf("input image is required")
	}
	if r.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if len(r.Prompt) > MaxPromptLength {
		return fmt.Errorf("prompt length %d exceeds maximum %d", len(r.Prompt), MaxPromptLength)
	}
	if len(r.NegativePrompt) > MaxPromptLength {
		return fmt.Errorf("negative prompt length %d exceeds maximum %d", len(r.NegativePrompt), MaxPromptLength)
	}
	if r.Strength < MinStrength || r.Strength > MaxStrength {
		return fmt.Errorf("strength %.2f must be between %.1f and %.1f", r.Strength, MinStrength, MaxStrength)
	}
	if r.GuidanceScale < MinGuidanceScale || r.GuidanceScale > MaxGuidanceScale {
		return fmt.Errorf("guidance_scale %.2f must be between %.1f and %.1f", r.GuidanceScale, MinGuidanceScale, MaxGuidanceScale)
	}
	if r.Steps < MinSteps || r.Steps > MaxSteps {
		return fmt.Errorf("num_inference_steps %d must be between %d and %d", r.Steps, MinSteps, MaxSteps)
	}
	return nil
}

// WithPrompt returns a copy with the specified prompt.
// Builder pattern for immutable updates.
func (r Request) WithPrompt(prompt string) Request {
	r.Prompt = prompt
	return r
}

// WithStrength returns a copy with the specified strength.
// Builder pattern for immutable updates.
func (r Request) WithStrength(strength float64) Request {
	r.Strength = strength
	return r
}

// WithSteps returns a copy with the specified step count.
// Builder pattern for immutable updates.
func (r Request) WithSteps(steps int) Request {
	r.Steps = steps
	return r
}

// WithSeed returns a copy with the specified seed.
// Builder pattern for immutable updates.
func (r Request) WithSeed(seed int64) Request {
	r.Seed = seed
	return r
}

// Response contains the result of one transformation.
type Response struct {
	// Image is the transformed output image.
	Image image.Image `json:"-"`

	// Model is the catalog name of the model that produced the output.
	Model string `json:"model"`

	// Prompt echoes the request prompt.
	Prompt string `json:"prompt"`

	// NegativePrompt echoes the request negative prompt, if any.
	NegativePrompt string `json:"negative_prompt,omitempty"`

	// Strength, GuidanceScale and Steps echo the effective parameters,
	// after per-model defaults were applied.
	Strength      float64 `json:"strength"`
	GuidanceScale float64 `json:"guidance_scale"`
	Steps         int     `json:"num_inference_steps"`

	// Seed that was used. Useful for reproducing results.
	Seed int64 `json:"seed"`

	// Device the backend reported running on ("cuda", "cpu", ...).
	Device string `json:"device"`

	// InputWidth/InputHeight are the dimensions the input was resized to
	// before being handed to the backend.
	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`

	// OutputWidth/OutputHeight are the dimensions of the produced image.
	OutputWidth  int `json:"output_width"`
	OutputHeight int `json:"output_height"`

	// Duration is how long the transformation took end to end.
	Duration time.Duration `json:"-"`

	// GenerationTime is Duration in seconds, for metadata sidecars.
	GenerationTime float64 `json:"generation_time"`
}

// IsValid reports whether the response carries a usable image.
func (r Response) IsValid() bool {
	return r.Image != nil && r.OutputWidth > 0 && r.OutputHeight > 0
}

// Common error codes used by GenerationError.
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeModelNotFound      = "model_not_found"
	ErrCodeBackendUnavailable = "backend_unavailable"
	ErrCodeTimeout            = "timeout"
	ErrCodeOutOfMemory        = "out_of_memory"
	ErrCodeGenerationFailed   = "generation_failed"
)

// GenerationError represents an error during transformation.
type GenerationError struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Retryable indicates whether the operation might succeed on retry.
	Retryable bool `json:"retryable"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// NewGenerationError creates a GenerationError.
func NewGenerationError(code, message string, retryable bool, cause error) *GenerationError {
	return &GenerationError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}
