package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
)

// DefaultSamplerName is the sampler requested from the WebUI backend.
const DefaultSamplerName = "DPM++ 2M Karras"

// img2imgRequest is the wire format of the WebUI img2img endpoint.
type img2imgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	DenoisingStrength float64  `json:"denoising_strength"`
	CFGScale          float64  `json:"cfg_scale"`
	Steps             int      `json:"steps"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Seed              int64    `json:"seed"`
	SamplerName       string   `json:"sampler_name"`
	// ImageCFGScale only affects instruction-based checkpoints
	// (InstructPix2Pix); other models ignore it.
	ImageCFGScale    float64        `json:"image_cfg_scale,omitempty"`
	OverrideSettings map[string]any `json:"override_settings,omitempty"`
}

// img2imgResponse is the wire format of the WebUI img2img result.
type img2imgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
}

// img2imgInfo is the subset of the Info blob we care about.
type img2imgInfo struct {
	Seed int64 `json:"seed"`
}

// WebUIProvider talks to a Stable Diffusion WebUI instance over its
// /sdapi/v1 HTTP API. This is a molecule-level component.
type WebUIProvider struct {
	baseURL string
	client  *http.Client
}

// WebUIOption configures a WebUIProvider.
type WebUIOption func(*WebUIProvider)

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(client *http.Client) WebUIOption {
	return func(p *WebUIProvider) {
		p.client = client
	}
}

// NewWebUIProvider creates a provider for the WebUI at baseURL,
// e.g. "http://127.0.0.1:7861".
func NewWebUIProvider(baseURL string, opts ...WebUIOption) *WebUIProvider {
	p := &WebUIProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *WebUIProvider) Name() string {
	return "sd-webui"
}

// Ping implements Provider by probing the WebUI options endpoint.
func (p *WebUIProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/sdapi/v1/options", nil)
	if err != nil {
		return fmt.Errorf("imagegen: build ping request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return NewGenerationError(ErrCodeBackendUnavailable,
			fmt.Sprintf("backend %s not reachable", p.baseURL), true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return NewGenerationError(ErrCodeBackendUnavailable,
			fmt.Sprintf("backend %s returned status %d", p.baseURL, resp.StatusCode), true, nil)
	}
	return nil
}

// Transform implements Provider.
func (p *WebUIProvider) Transform(ctx context.Context, model ModelInfo, req Request) (*ProviderResult, error) {
	initPNG, err := imaging.EncodePNG(req.Image)
	if err != nil {
		return nil, NewGenerationError(ErrCodeInvalidRequest, "encode input image", false, err)
	}

	bounds := req.Image.Bounds()
	wire := img2imgRequest{
		InitImages:        []string{base64.StdEncoding.EncodeToString(initPNG)},
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		DenoisingStrength: req.Strength,
		CFGScale:          req.GuidanceScale,
		Steps:             req.Steps,
		Width:             bounds.Dx(),
		Height:            bounds.Dy(),
		Seed:              req.Seed,
		SamplerName:       DefaultSamplerName,
	}
	if model.InstructionBased {
		// InstructPix2Pix conditions on the input image separately.
		wire.ImageCFGScale = 1.5
	}
	if model.Checkpoint != "" {
		wire.OverrideSettings = map[string]any{
			"sd_model_checkpoint": model.Checkpoint,
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("imagegen: marshal img2img request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/sdapi/v1/img2img", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imagegen: build img2img request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewGenerationError(ErrCodeTimeout, "generation timed out", true, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, NewGenerationError(ErrCodeTimeout, "generation timed out", true, err)
		}
		return nil, NewGenerationError(ErrCodeBackendUnavailable,
			fmt.Sprintf("backend %s not reachable", p.baseURL), true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The WebUI reports CUDA OOM as a plain 500; treat server
		// errors as retryable so the caller can back off.
		retryable := resp.StatusCode >= 500
		return nil, NewGenerationError(ErrCodeGenerationFailed,
			fmt.Sprintf("backend returned status %d", resp.StatusCode), retryable, nil)
	}

	var wireResp img2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "decode backend response", false, err)
	}
	if len(wireResp.Images) == 0 {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "backend returned no images", false, nil)
	}

	imgData, err := base64.StdEncoding.DecodeString(wireResp.Images[0])
	if err != nil {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "decode backend image", false, err)
	}
	img, err := imaging.Decode(imgData)
	if err != nil {
		return nil, NewGenerationError(ErrCodeGenerationFailed, "parse backend image", false, err)
	}

	result := &ProviderResult{Image: img, Seed: req.Seed}
	if wireResp.Info != "" {
		var info img2imgInfo
		if err := json.Unmarshal([]byte(wireResp.Info), &info); err == nil && info.Seed != 0 {
			result.Seed = info.Seed
		}
	}
	return result, nil
}
