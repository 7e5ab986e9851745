// Package imaging provides the image plumbing for the img2img pipeline:
// decoding uploads in the supported formats, high-quality resizing to
// backend-friendly dimensions, PNG encoding, and comparison grids.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image errors
var (
	ErrEmptyImage        = errors.New("imaging: empty image data")
	ErrInvalidImage      = errors.New("imaging: invalid image data")
	ErrUnsupportedFormat = errors.New("imaging: unsupported image format")
	ErrNotPNG            = errors.New("imaging: image data is not a valid PNG")
)

// supportedExtensions are the input file extensions the pipeline accepts.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// SupportedExtensions returns the accepted input extensions in display order.
func SupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp"}
}

// IsSupportedFormat reports whether the filename's extension is an accepted
// input format. The check is case-insensitive.
// This is a pure function with no side effects.
func IsSupportedFormat(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Decode decodes image data in any supported format (PNG, JPEG, GIF, BMP,
// TIFF, WebP). This is a pure function with no side effects.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return img, nil
}

// LoadImage reads and decodes an image file, rejecting unsupported extensions
// before touching the decoder.
func LoadImage(path string) (image.Image, error) {
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(path), strings.Join(SupportedExtensions(), ", "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imaging: read %s: %w", path, err)
	}

	return Decode(data)
}

// pngMagic is the PNG file signature.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// IsPNG checks if the data starts with the PNG signature.
// This is a pure function with no side effects.
func IsPNG(data []byte) bool {
	return len(data) >= len(pngMagic) && bytes.Equal(data[:len(pngMagic)], pngMagic)
}

// ValidatePNG validates that data is a decodable PNG image. Backend
// responses are expected to be PNG, so this runs before anything is saved.
func ValidatePNG(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	if !IsPNG(data) {
		return ErrNotPNG
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// EncodePNG encodes an image to PNG bytes.
// This is a pure function with no side effects.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG encodes an image and writes it to path.
func SavePNG(img image.Image, path string) error {
	data, err := EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("imaging: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("imaging: write %s: %w", path, err)
	}
	return nil
}
