package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
)

// encodeTestPNG returns base64 PNG bytes for a blank image.
func encodeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	data, err := imaging.EncodePNG(testImage(w, h))
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestWebUIProviderTransform(t *testing.T) {
	var captured img2imgRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/img2img" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := img2imgResponse{
			Images: []string{encodeTestPNG(t, 512, 384)},
			Info:   `{"seed": 12345}`,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewWebUIProvider(server.URL)
	model := ModelInfo{Name: "stable-diffusion", Checkpoint: "runwayml/stable-diffusion-v1-5"}
	req := validRequest()
	req.Image = testImage(512, 384)

	result, err := p.Transform(context.Background(), model, req)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	if captured.DenoisingStrength != req.Strength {
		t.Errorf("denoising_strength = %v, want %v", captured.DenoisingStrength, req.Strength)
	}
	if captured.CFGScale != req.GuidanceScale {
		t.Errorf("cfg_scale = %v, want %v", captured.CFGScale, req.GuidanceScale)
	}
	if captured.Steps != req.Steps {
		t.Errorf("steps = %v, want %v", captured.Steps, req.Steps)
	}
	if captured.Width != 512 || captured.Height != 384 {
		t.Errorf("size = %dx%d, want 512x384", captured.Width, captured.Height)
	}
	if len(captured.InitImages) != 1 {
		t.Fatalf("init_images count = %d, want 1", len(captured.InitImages))
	}
	initData, err := base64.StdEncoding.DecodeString(captured.InitImages[0])
	if err != nil || !imaging.IsPNG(initData) {
		t.Error("init_images[0] should be base64 PNG")
	}
	if got := captured.OverrideSettings["sd_model_checkpoint"]; got != "runwayml/stable-diffusion-v1-5" {
		t.Errorf("override checkpoint = %v", got)
	}

	if result.Seed != 12345 {
		t.Errorf("Seed = %d, want seed from info blob", result.Seed)
	}
	if b := result.Image.Bounds(); b.Dx() != 512 || b.Dy() != 384 {
		t.Errorf("output size = %dx%d, want 512x384", b.Dx(), b.Dy())
	}
}

func TestWebUIProviderInstructionModel(t *testing.T) {
	var captured img2imgRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(img2imgResponse{Images: []string{encodeTestPNG(t, 64, 64)}})
	}))
	defer server.Close()

	p := NewWebUIProvider(server.URL)
	model := ModelInfo{Name: "instruct-pix2pix", InstructionBased: true}
	if _, err := p.Transform(context.Background(), model, validRequest()); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if captured.ImageCFGScale == 0 {
		t.Error("image_cfg_scale should be set for instruction-based models")
	}
}

func TestWebUIProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  string
		retryable bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "cuda out of memory", http.StatusInternalServerError)
			},
			wantCode:  ErrCodeGenerationFailed,
			retryable: true,
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad request", http.StatusUnprocessableEntity)
			},
			wantCode:  ErrCodeGenerationFailed,
			retryable: false,
		},
		{
			name: "empty images",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(img2imgResponse{Images: nil})
			},
			wantCode:  ErrCodeGenerationFailed,
			retryable: false,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
			wantCode:  ErrCodeGenerationFailed,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			p := NewWebUIProvider(server.URL)
			_, err := p.Transform(context.Background(), ModelInfo{Name: "m"}, validRequest())
			if err == nil {
				t.Fatal("Transform() = nil error")
			}
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("error type = %T, want *GenerationError", err)
			}
			if genErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", genErr.Code, tt.wantCode)
			}
			if genErr.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", genErr.Retryable, tt.retryable)
			}
		})
	}
}

func TestWebUIProviderUnreachable(t *testing.T) {
	p := NewWebUIProvider("http://127.0.0.1:1")

	_, err := p.Transform(context.Background(), ModelInfo{Name: "m"}, validRequest())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error type = %T, want *GenerationError", err)
	}
	if genErr.Code != ErrCodeBackendUnavailable || !genErr.Retryable {
		t.Errorf("got code %q retryable %v, want retryable %q", genErr.Code, genErr.Retryable, ErrCodeBackendUnavailable)
	}

	if err := p.Ping(context.Background()); err == nil {
		t.Error("Ping() = nil error for unreachable backend")
	}
}

func TestWebUIProviderPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/options" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	if err := NewWebUIProvider(server.URL).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
