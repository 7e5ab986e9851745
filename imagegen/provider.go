package imagegen

import (
	"context"
	"image"
)

// Provider is the interface implemented by diffusion backends.
//
// Transform runs one image-to-image generation. The request has already
// been validated and had per-model defaults applied; implementations only
// translate it to their wire format and decode the result.
//
// Implementations must respect ctx cancellation and return errors as
// *GenerationError where the failure mode is known.
type Provider interface {
	// Transform runs a single image-to-image generation.
	Transform(ctx context.Context, model ModelInfo, req Request) (*ProviderResult, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Name identifies the provider for logging and metadata.
	Name() string
}

// ProviderResult is the raw outcome of a provider call, before the
// Generator wraps it into a Response.
type ProviderResult struct {
	// Image is the decoded output image.
	Image image.Image

	// Seed is the seed the backend actually used. Backends that pick a
	// random seed for -1 report the chosen value here.
	Seed int64

	// Device is the compute device the backend reported, if known.
	Device string
}
