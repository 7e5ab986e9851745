package imagegen

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"math"
)

// StubProvider produces deterministic stylized output without any
// backend. It exists for demo mode on hosts with no diffusion runtime
// and for tests; output is a prompt-seeded tint and contrast pass over
// the input, not a real generation.
type StubProvider struct{}

// NewStubProvider creates a StubProvider.
func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

// Name implements Provider.
func (p *StubProvider) Name() string {
	return "stub"
}

// Ping implements Provider. The stub is always available.
func (p *StubProvider) Ping(ctx context.Context) error {
	return nil
}

// Transform implements Provider.
//
// The tint hue derives from the prompt and the blend amount from the
// request strength, so the same request always yields the same bytes.
func (p *StubProvider) Transform(ctx context.Context, model ModelInfo, req Request) (*ProviderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewGenerationError(ErrCodeTimeout, "stub generation cancelled", false, err)
	}

	h := fnv.New32a()
	h.Write([]byte(req.Prompt))
	h.Write([]byte(model.Name))
	hue := float64(h.Sum32()%360) / 360.0
	tintR, tintG, tintB := hueToRGB(hue)

	blend := req.Strength * 0.6

	bounds := req.Image.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := req.Image.At(x, y).RGBA()
			out.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{
				R: blendChannel(uint8(r>>8), tintR, blend),
				G: blendChannel(uint8(g>>8), tintG, blend),
				B: blendChannel(uint8(b>>8), tintB, blend),
				A: 255,
			})
		}
	}

	seed := req.Seed
	if seed < 0 {
		seed = int64(h.Sum32())
	}
	return &ProviderResult{Image: out, Seed: seed, Device: "cpu"}, nil
}

// blendChannel mixes an input channel toward a tint value.
func blendChannel(in, tint uint8, amount float64) uint8 {
	v := float64(in)*(1-amount) + float64(tint)*amount
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

// hueToRGB converts a hue in [0,1) to a saturated RGB triple.
func hueToRGB(hue float64) (uint8, uint8, uint8) {
	section := hue * 6
	f := section - math.Floor(section)
	q := uint8(math.Round(255 * (1 - f)))
	t := uint8(math.Round(255 * f))
	switch int(section) % 6 {
	case 0:
		return 255, t, 0
	case 1:
		return q, 255, 0
	case 2:
		return 0, 255, t
	case 3:
		return 0, q, 255
	case 4:
		return t, 0, 255
	default:
		return 255, 0, q
	}
}
