package imagegen

import (
	"errors"
	"image"
	"strings"
	"testing"
)

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func validRequest() Request {
	return Request{
		Image:         testImage(512, 512),
		Prompt:        "a watercolor painting",
		Model:         "stable-diffusion",
		Strength:      0.75,
		GuidanceScale: 7.5,
		Steps:         50,
		Seed:          -1,
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr string
	}{
		{
			name:   "valid request",
			mutate: func(r *Request) {},
		},
		{
			name:    "missing image",
			mutate:  func(r *Request) { r.Image = nil },
			wantErr: "image is required",
		},
		{
			name:    "missing prompt",
			mutate:  func(r *Request) { r.Prompt = "" },
			wantErr: "prompt is required",
		},
		{
			name:    "prompt too long",
			mutate:  func(r *Request) { r.Prompt = strings.Repeat("x", MaxPromptLength+1) },
			wantErr: "exceeds maximum",
		},
		{
			name:    "negative prompt too long",
			mutate:  func(r *Request) { r.NegativePrompt = strings.Repeat("x", MaxPromptLength+1) },
			wantErr: "exceeds maximum",
		},
		{
			name:    "strength too high",
			mutate:  func(r *Request) { r.Strength = 1.5 },
			wantErr: "strength",
		},
		{
			name:    "strength negative",
			mutate:  func(r *Request) { r.Strength = -0.1 },
			wantErr: "strength",
		},
		{
			name:    "guidance too low",
			mutate:  func(r *Request) { r.GuidanceScale = 0.5 },
			wantErr: "guidance_scale",
		},
		{
			name:    "guidance too high",
			mutate:  func(r *Request) { r.GuidanceScale = 25 },
			wantErr: "guidance_scale",
		},
		{
			name:    "steps too low",
			mutate:  func(r *Request) { r.Steps = 5 },
			wantErr: "num_inference_steps",
		},
		{
			name:    "steps too high",
			mutate:  func(r *Request) { r.Steps = 150 },
			wantErr: "num_inference_steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRequestBuilders(t *testing.T) {
	base := validRequest()

	modified := base.WithPrompt("new prompt").WithStrength(0.5).WithSteps(30).WithSeed(42)

	if modified.Prompt != "new prompt" || modified.Strength != 0.5 || modified.Steps != 30 || modified.Seed != 42 {
		t.Errorf("builders did not apply: %+v", modified)
	}
	if base.Prompt != "a watercolor painting" || base.Steps != 50 {
		t.Errorf("builders mutated the original: %+v", base)
	}
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewGenerationError(ErrCodeBackendUnavailable, "backend not reachable", true, cause)

	if got := err.Error(); !strings.Contains(got, ErrCodeBackendUnavailable) || !strings.Contains(got, "connection refused") {
		t.Errorf("Error() = %q, want code and cause included", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should unwrap to the cause")
	}

	bare := NewGenerationError(ErrCodeInvalidRequest, "prompt is required", false, nil)
	if got := bare.Error(); strings.Contains(got, "(") {
		t.Errorf("Error() without cause = %q, want no cause suffix", got)
	}
}

func TestResponseIsValid(t *testing.T) {
	resp := Response{Image: testImage(64, 64), OutputWidth: 64, OutputHeight: 64}
	if !resp.IsValid() {
		t.Error("IsValid() = false for populated response")
	}
	if (Response{}).IsValid() {
		t.Error("IsValid() = true for zero response")
	}
}
