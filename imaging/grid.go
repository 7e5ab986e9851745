package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// gridGutter is the pixel gap between panels in a comparison grid.
const gridGutter = 8

// ComparisonGrid lays out the input image and its transformation side by
// side on a white background, each panel scaled to the same height. The demo
// runner saves these next to the raw results so before/after pairs are easy
// to eyeball.
func ComparisonGrid(before, after image.Image) image.Image {
	panelHeight := before.Bounds().Dy()
	if h := after.Bounds().Dy(); h > panelHeight {
		panelHeight = h
	}

	beforeW := scaledWidth(before, panelHeight)
	afterW := scaledWidth(after, panelHeight)

	dst := image.NewRGBA(image.Rect(0, 0, beforeW+gridGutter+afterW, panelHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawScaled(dst, before, image.Rect(0, 0, beforeW, panelHeight))
	drawScaled(dst, after, image.Rect(beforeW+gridGutter, 0, beforeW+gridGutter+afterW, panelHeight))

	return dst
}

// scaledWidth returns the width an image takes at the target height with
// aspect ratio preserved.
func scaledWidth(img image.Image, targetHeight int) int {
	b := img.Bounds()
	if b.Dy() == 0 {
		return 0
	}
	return b.Dx() * targetHeight / b.Dy()
}

// drawScaled scales img into the destination rectangle.
func drawScaled(dst *image.RGBA, img image.Image, rect image.Rectangle) {
	draw.CatmullRom.Scale(dst, rect, img, img.Bounds(), draw.Over, nil)
}
