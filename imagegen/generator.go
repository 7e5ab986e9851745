package imagegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
	"github.com/tarun02-git/Prodigy-GenAI-Task4/logging"
)

// Generator default tuning. Overridable via options.
const (
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 2 * time.Second
	DefaultTimeout       = 300 * time.Second
	DefaultMaxConcurrent = 2
)

// Generator orchestrates image-to-image transformations: it validates
// requests, applies per-model defaults, fits the input to the model's
// resolution limits, calls the provider with retries, and assembles the
// response. This is an organism-level component.
type Generator struct {
	catalog       *Catalog
	provider      Provider
	logger        *logging.Logger
	maxRetries    int
	retryDelay    time.Duration
	timeout       time.Duration
	maxConcurrent int
	sem           chan struct{}
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets the logger used for progress and retry logging.
func WithLogger(logger *logging.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithMaxRetries sets how many attempts are made per generation.
func WithMaxRetries(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts.
// The delay doubles after each failure.
func WithRetryDelay(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.retryDelay = d
		}
	}
}

// WithTimeout sets the per-generation deadline.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxConcurrent bounds how many generations run at once.
// Diffusion backends degrade badly when oversubscribed.
func WithMaxConcurrent(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxConcurrent = n
		}
	}
}

// NewGenerator creates a Generator over the given catalog and provider.
func NewGenerator(catalog *Catalog, provider Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{
		catalog:       catalog,
		provider:      provider,
		maxRetries:    DefaultMaxRetries,
		retryDelay:    DefaultRetryDelay,
		timeout:       DefaultTimeout,
		maxConcurrent: DefaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.sem = make(chan struct{}, g.maxConcurrent)
	return g
}

// Catalog returns the model catalog in use.
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Provider returns the backend provider in use.
func (g *Generator) Provider() Provider {
	return g.provider
}

// Generate runs one transformation end to end.
//
// Zero-valued tunables in the request are filled from the model's
// defaults before validation, so callers may set only the fields they
// care about. Retryable provider failures are retried with exponential
// backoff up to the configured attempt count.
func (g *Generator) Generate(ctx context.Context, req Request) (*Response, error) {
	model, err := g.catalog.Lookup(req.Model)
	if err != nil {
		return nil, err
	}
	req = model.ApplyDefaults(req)

	if err := req.Validate(); err != nil {
		return nil, NewGenerationError(ErrCodeInvalidRequest, err.Error(), false, nil)
	}

	// Fit the input to the model's working resolution. Diffusion models
	// require dimensions divisible by the latent grid size.
	maxEdge := model.MaxResolution
	if maxEdge <= 0 {
		maxEdge = 768
	}
	fitted := imaging.ResizeToFit(req.Image, maxEdge)
	req.Image = fitted
	inBounds := fitted.Bounds()

	select {
	case g.sem <- struct{}{}:
		defer func() { <-g.sem }()
	case <-ctx.Done():
		return nil, NewGenerationError(ErrCodeTimeout, "waiting for generation slot", true, ctx.Err())
	}

	start := time.Now()
	result, err := g.transformWithRetry(ctx, model, req)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	outBounds := result.Image.Bounds()
	resp := &Response{
		Image:          result.Image,
		Model:          model.Name,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Strength:       req.Strength,
		GuidanceScale:  req.GuidanceScale,
		Steps:          req.Steps,
		Seed:           result.Seed,
		Device:         result.Device,
		InputWidth:     inBounds.Dx(),
		InputHeight:    inBounds.Dy(),
		OutputWidth:    outBounds.Dx(),
		OutputHeight:   outBounds.Dy(),
		Duration:       duration,
		GenerationTime: duration.Seconds(),
	}

	if g.logger != nil {
		g.logger.Infow("generation complete",
			"model", model.Name,
			"provider", g.provider.Name(),
			"duration", duration.Round(time.Millisecond).String(),
			"output_size", fmt.Sprintf("%dx%d", resp.OutputWidth, resp.OutputHeight),
		)
	}
	return resp, nil
}

// transformWithRetry calls the provider, retrying retryable failures
// with exponential backoff.
func (g *Generator) transformWithRetry(ctx context.Context, model ModelInfo, req Request) (*ProviderResult, error) {
	var lastErr error
	delay := g.retryDelay

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		result, err := g.provider.Transform(attemptCtx, model, req)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var genErr *GenerationError
		if errors.As(err, &genErr) && !genErr.Retryable {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, NewGenerationError(ErrCodeTimeout, "generation cancelled", false, ctx.Err())
		}
		if attempt == g.maxRetries {
			break
		}

		if g.logger != nil {
			g.logger.Warnw("generation attempt failed, retrying",
				"model", model.Name,
				"attempt", attempt,
				"max_attempts", g.maxRetries,
				"retry_in", delay.String(),
				"error", err.Error(),
			)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, NewGenerationError(ErrCodeTimeout, "generation cancelled", false, ctx.Err())
		}
		delay *= 2
	}

	return nil, NewGenerationError(ErrCodeGenerationFailed,
		fmt.Sprintf("all %d attempts failed", g.maxRetries), false, lastErr)
}
