package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// DefaultMaxDimension bounds the longer image side after optimization.
	DefaultMaxDimension = 1800

	jpegQuality = 85
)

// ImageOptimizer re-encodes source images for packaging: bounded downscale,
// alpha flattening for JPEG targets, format normalization.
type ImageOptimizer struct {
	MaxDimension int
}

// OptimizedImage is the candidate output for one source image. Filename may
// differ from the input when the format had to change.
type OptimizedImage struct {
	Filename  string
	MediaType string
	Data      []byte
	Width     int
	Height    int
}

// NewImageOptimizer creates an optimizer, substituting the default bound for
// non-positive values.
func NewImageOptimizer(maxDimension int) *ImageOptimizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &ImageOptimizer{MaxDimension: maxDimension}
}

// Optimize decodes input and re-encodes it for the package. JPEG sources
// stay JPEG (quality 85), PNG sources stay PNG (best compression), GIF
// passes through untouched so animation frames survive, and any other
// decodable format is converted to JPEG with the extension renamed to match.
// If either dimension exceeds MaxDimension the image is downscaled with
// Lanczos resampling, preserving aspect ratio.
func (o *ImageOptimizer) Optimize(filename string, input []byte) (OptimizedImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".gif" {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
		if err != nil {
			return OptimizedImage{}, fmt.Errorf("decode %s: %w", filename, err)
		}
		return OptimizedImage{
			Filename:  filename,
			MediaType: "image/gif",
			Data:      input,
			Width:     cfg.Width,
			Height:    cfg.Height,
		}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return OptimizedImage{}, fmt.Errorf("decode %s: %w", filename, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > o.MaxDimension || bounds.Dy() > o.MaxDimension {
		src = imaging.Fit(src, o.MaxDimension, o.MaxDimension, imaging.Lanczos)
	}

	out := OptimizedImage{
		Width:  src.Bounds().Dx(),
		Height: src.Bounds().Dy(),
	}

	switch ext {
	case ".png":
		data, err := encodePNG(src)
		if err != nil {
			return OptimizedImage{}, fmt.Errorf("encode %s: %w", filename, err)
		}
		out.Filename = filename
		out.MediaType = "image/png"
		out.Data = data
	case ".jpg", ".jpeg":
		data, err := encodeJPEG(flattenAlpha(src))
		if err != nil {
			return OptimizedImage{}, fmt.Errorf("encode %s: %w", filename, err)
		}
		out.Filename = filename
		out.MediaType = "image/jpeg"
		out.Data = data
	default:
		data, err := encodeJPEG(flattenAlpha(src))
		if err != nil {
			return OptimizedImage{}, fmt.Errorf("encode %s: %w", filename, err)
		}
		out.Filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
		out.MediaType = "image/jpeg"
		out.Data = data
	}

	return out, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flattenAlpha composites img onto a white background. JPEG has no alpha
// channel, so transparent regions must become opaque before encoding.
func flattenAlpha(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
