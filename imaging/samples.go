package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
)

// SampleSpec names a synthetic demo input and the prompt that suits it.
type SampleSpec struct {
	// Name is the file stem (e.g., "landscape")
	Name string
	// Prompt is a transformation prompt that works well on this sample
	Prompt string
}

// SampleSpecs lists the bundled synthetic inputs used by demo mode.
// They exist so the tool can be exercised without hunting for photos.
var SampleSpecs = []SampleSpec{
	{Name: "landscape", Prompt: "a vibrant oil painting of mountains at sunset"},
	{Name: "portrait", Prompt: "a renaissance style portrait painting"},
	{Name: "abstract", Prompt: "a futuristic neon cyberpunk scene"},
}

// GenerateSample draws a synthetic sample image by name.
// Known names: landscape (512x384), portrait (384x512), abstract (512x512).
func GenerateSample(name string) (image.Image, error) {
	switch name {
	case "landscape":
		return drawLandscape(512, 384), nil
	case "portrait":
		return drawPortrait(384, 512), nil
	case "abstract":
		return drawAbstract(512, 512), nil
	default:
		return nil, fmt.Errorf("imaging: unknown sample %q", name)
	}
}

// WriteSamples generates all synthetic samples into dir as PNG files and
// returns the written paths. Existing files are overwritten.
func WriteSamples(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("imaging: create samples dir: %w", err)
	}

	paths := make([]string, 0, len(SampleSpecs))
	for _, spec := range SampleSpecs {
		img, err := GenerateSample(spec.Name)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, spec.Name+".png")
		if err := SavePNG(img, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// drawLandscape renders a gradient sky, a sun, and mountain silhouettes.
func drawLandscape(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	horizon := h * 2 / 3
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y < horizon {
				// Sky gradient from deep to pale blue
				t := float64(y) / float64(horizon)
				img.Set(x, y, color.RGBA{
					R: uint8(100 + 100*t),
					G: uint8(150 + 80*t),
					B: 255,
					A: 255,
				})
			} else {
				// Ground
				img.Set(x, y, color.RGBA{R: 60, G: 140, B: 60, A: 255})
			}
		}
	}

	// Sun
	fillCircle(img, w*3/4, h/5, 36, color.RGBA{R: 255, G: 220, B: 80, A: 255})

	// Two mountain triangles
	fillTriangle(img, w/6, horizon, w/2, h/6, color.RGBA{R: 110, G: 90, B: 80, A: 255})
	fillTriangle(img, w/2, horizon, w*5/6, h/4, color.RGBA{R: 90, G: 75, B: 70, A: 255})

	return img
}

// drawPortrait renders a simple head-and-shoulders figure.
func drawPortrait(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	// Muted background
	fillRect(img, 0, 0, w, h, color.RGBA{R: 210, G: 200, B: 190, A: 255})

	skin := color.RGBA{R: 230, G: 190, B: 160, A: 255}
	// Head
	fillCircle(img, w/2, h/3, w/4, skin)
	// Shoulders
	fillRect(img, w/6, h*2/3, w*5/6, h, color.RGBA{R: 70, G: 80, B: 120, A: 255})
	// Eyes
	eyeY := h/3 - w/24
	fillCircle(img, w/2-w/10, eyeY, w/32, color.RGBA{R: 40, G: 40, B: 50, A: 255})
	fillCircle(img, w/2+w/10, eyeY, w/32, color.RGBA{R: 40, G: 40, B: 50, A: 255})
	// Mouth
	fillRect(img, w/2-w/12, h/3+w/8, w/2+w/12, h/3+w/8+6, color.RGBA{R: 180, G: 90, B: 90, A: 255})

	return img
}

// drawAbstract renders overlapping translucent circles on a dark field.
func drawAbstract(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fillRect(img, 0, 0, w, h, color.RGBA{R: 25, G: 25, B: 40, A: 255})

	palette := []color.RGBA{
		{R: 240, G: 80, B: 120, A: 255},
		{R: 80, G: 200, B: 240, A: 255},
		{R: 250, G: 200, B: 60, A: 255},
		{R: 140, G: 90, B: 220, A: 255},
		{R: 70, G: 220, B: 140, A: 255},
	}

	for i, c := range palette {
		angle := float64(i) / float64(len(palette)) * 2 * math.Pi
		cx := w/2 + int(float64(w)/4*math.Cos(angle))
		cy := h/2 + int(float64(h)/4*math.Sin(angle))
		fillCircle(img, cx, cy, w/6, c)
	}

	return img
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.Set(x, y, c)
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, c)
			}
		}
	}
}

// fillTriangle draws an isoceles triangle with its base on baseY, centered
// on peakX, rising to peakY.
func fillTriangle(img *image.RGBA, baseLeft, baseY, peakX, peakY int, c color.RGBA) {
	height := baseY - peakY
	if height <= 0 {
		return
	}
	halfBase := peakX - baseLeft
	for y := peakY; y <= baseY; y++ {
		t := float64(y-peakY) / float64(height)
		span := int(t * float64(halfBase))
		for x := peakX - span; x <= peakX+span; x++ {
			img.Set(x, y, c)
		}
	}
}
