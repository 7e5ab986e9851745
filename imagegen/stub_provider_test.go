package imagegen

import (
	"context"
	"image"
	"testing"

	"github.com/tarun02-git/Prodigy-GenAI-Task4/imaging"
)

func TestStubProviderDeterministic(t *testing.T) {
	p := NewStubProvider()
	model := ModelInfo{Name: "stable-diffusion"}
	req := validRequest()

	first, err := p.Transform(context.Background(), model, req)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	second, err := p.Transform(context.Background(), model, req)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	firstPNG, _ := imaging.EncodePNG(first.Image)
	secondPNG, _ := imaging.EncodePNG(second.Image)
	if string(firstPNG) != string(secondPNG) {
		t.Error("same request should produce identical output")
	}
	if first.Seed != second.Seed {
		t.Errorf("seeds differ: %d vs %d", first.Seed, second.Seed)
	}
	if first.Device != "cpu" {
		t.Errorf("Device = %q, want cpu", first.Device)
	}
}

func TestStubProviderPromptChangesOutput(t *testing.T) {
	p := NewStubProvider()
	model := ModelInfo{Name: "stable-diffusion"}

	// Non-black input so the tint has something to blend against.
	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range src.Pix {
		src.Pix[i] = 128
	}

	a, err := p.Transform(context.Background(), model, validRequest().WithPrompt("a red barn"))
	if err != nil {
		t.Fatal(err)
	}
	req := validRequest().WithPrompt("a blue ocean full of whales")
	b, err := p.Transform(context.Background(), model, req)
	if err != nil {
		t.Fatal(err)
	}
	if a.Seed == b.Seed {
		t.Error("different prompts should derive different seeds")
	}
}

func TestStubProviderPreservesSize(t *testing.T) {
	p := NewStubProvider()
	req := validRequest()
	req.Image = testImage(320, 200)

	result, err := p.Transform(context.Background(), ModelInfo{Name: "m"}, req)
	if err != nil {
		t.Fatal(err)
	}
	if b := result.Image.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Errorf("output size = %dx%d, want 320x200", b.Dx(), b.Dy())
	}
}

func TestStubProviderExplicitSeedKept(t *testing.T) {
	p := NewStubProvider()
	req := validRequest().WithSeed(777)

	result, err := p.Transform(context.Background(), ModelInfo{Name: "m"}, req)
	if err != nil {
		t.Fatal(err)
	}
	if result.Seed != 777 {
		t.Errorf("Seed = %d, want 777", result.Seed)
	}
}

func TestStubProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewStubProvider().Transform(ctx, ModelInfo{Name: "m"}, validRequest()); err == nil {
		t.Error("Transform() = nil error for cancelled context")
	}
}
