package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
)

// OpenAIProvider transforms images through the OpenAI image edit API.
// It is an alternative backend for hosts without a local diffusion
// runtime; strength, guidance scale and steps have no effect there and
// are recorded in metadata only.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider using the given API key.
// baseURL overrides the API endpoint when non-empty (for proxies and
// compatible servers). model defaults to dall-e-2 when empty.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.CreateImageModelDallE2
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Ping implements Provider by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return NewGenerationError(ErrCodeBackendUnavailable, "openai API not reachable", true, err)
	}
	return nil
}

// editSize maps image bounds to a size string the edit API accepts.
// The edit endpoint only takes square 256, 512 or 1024 outputs.
func editSize(width, height int) string {
	edge := width
	if height > edge {
		edge = height
	}
	switch {
	case edge <= 256:
		return openai.CreateImageSize256x256
	case edge <= 512:
		return openai.CreateImageSize512x512
	default:
		return openai.CreateImageSize1024x1024
	}
}

// Transform implements Provider.
//
// The edit API takes a PNG file upload, so the input image is staged
// through a temporary file.
func (p *OpenAIProvider) Transform(ctx context.Context, model ModelInfo, req Request) (*ProviderResult, error) {
	tmpDir, err := os.MkdirTemp("", "img2img-edit-*")
	if err != nil {
		return nil, fmt.Errorf("imagegen: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "input.png")
	if err := imaging.SavePNG(req.Image, tmpPath); err != nil {
		return nil, NewGenerationError(ErrCodeInvalidRequest, "stage input image", false, err)
	}
	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("imagegen: open staged image: %w", err)
	}
	defer f.Close()

	bounds := req.Image.Bounds()
	resp, err := p.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          f,
		Prompt:         req.Prompt,
		Model:          p.model,
		N:              1,
		Size:           editSize(bounds.Dx(), bounds.Dy()),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "openai image edit", true, err)
	}
	if len(resp.Data) == 0 {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "openai returned no images", false, nil)
	}

	imgData, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "decode openai image", false, err)
	}
	img, err := imaging.Decode(imgData)
	if err != nil {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "parse openai image", false, err)
	}

	return &ProviderResult{Image: img, Seed: req.Seed, Device: "remote"}, nil
}
