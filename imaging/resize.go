package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// SizeMultiple is the pixel alignment diffusion backends require.
// Latent-space models work on 8-pixel blocks.
const SizeMultiple = 8

// AlignDown rounds a dimension down to the nearest multiple of SizeMultiple,
// never going below SizeMultiple itself.
// This is a pure function with no side effects.
func AlignDown(n int) int {
	aligned := n - n%SizeMultiple
	if aligned < SizeMultiple {
		aligned = SizeMultiple
	}
	return aligned
}

// FitWithin computes the dimensions an image should be resized to so that
// its longest edge is at most maxSize, aspect ratio is preserved, and both
// dimensions land on the 8-pixel grid. Images already within bounds are only
// snapped to the grid.
// This is a pure function with no side effects.
func FitWithin(width, height, maxSize int) (int, int) {
	if width <= 0 || height <= 0 {
		return SizeMultiple, SizeMultiple
	}

	scale := 1.0
	longest := width
	if height > longest {
		longest = height
	}
	if longest > maxSize {
		scale = float64(maxSize) / float64(longest)
	}

	return AlignDown(int(float64(width) * scale)), AlignDown(int(float64(height) * scale))
}

// ResizeToFit scales an image down so its longest edge is at most maxSize and
// both dimensions are multiples of 8, using Catmull-Rom interpolation for
// quality. The original image is returned unchanged if it already satisfies
// both constraints.
func ResizeToFit(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	newWidth, newHeight := FitWithin(width, height, maxSize)
	if newWidth == width && newHeight == height {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// ToRGBA converts any image to RGBA, returning it unchanged when it already is.
// This is a pure function with no side effects.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}
