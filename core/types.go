package core

import (
	"context"
	"image"
	"time"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatWebP    Format = "webp"
	FormatPPM     Format = "ppm"
	FormatAVIF    Format = "avif"
	FormatUnknown Format = "unknown"
)

// ColorSpace represents the image colour model.
type ColorSpace string

const (
	ColorSpaceRGB   ColorSpace = "rgb"
	ColorSpaceRGBA  ColorSpace = "rgba"
	ColorSpaceLuma  ColorSpace = "luma"
	ColorSpaceLumaA ColorSpace = "lumaa"
	ColorSpaceCMYK  ColorSpace = "cmyk"
	ColorSpaceYCbCr ColorSpace = "ycbcr"
	ColorSpaceHSL   ColorSpace = "hsl"
	ColorSpaceHSV   ColorSpace = "hsv"
)

// Metadata holds image information that travels alongside the pixels.
type Metadata struct {
	Width      int
	Height     int
	Format     Format
	ColorSpace ColorSpace
	Depth      int // bits per sample: 8 or 16
	HasAlpha   bool
	// EXIF orientation tag (1-8); 0 when absent.
	Orientation int
	// Frame is the index of this image within a multi-frame source.
	Frame int
}

// ImageData is one decoded frame passed through a pipeline. Operations never
// mutate the value they receive; they return a new ImageData.
type ImageData struct {
	Image  image.Image
	Format Format
	Meta   Metadata

	// Size of the encoded source in bytes, 0 when unknown.
	OriginalSize int64
}

// DecodeOptions bounds what a decoder accepts.
type DecodeOptions struct {
	MaxWidth  int // 0 = unlimited
	MaxHeight int // 0 = unlimited
	Strict    bool
}

// EncodeOptions carries format-specific encoding parameters.
type EncodeOptions struct {
	Quality  int  // 1-100; 0 = use encoder default
	Lossless bool // PNG best compression, TIFF deflate, WebP lossless
}

// Operation transforms one image into a new image or fails.
type Operation interface {
	Name() string
	Apply(ctx context.Context, img *ImageData) (*ImageData, error)
}

// Hook is an optional observer invoked around the decode and every operation.
// BeforeStep may return a derived context that is passed to the step and to
// the matching AfterStep call.
type Hook interface {
	BeforeStep(ctx context.Context, stepName string, img *ImageData) context.Context
	AfterStep(ctx context.Context, stepName string, img *ImageData, d time.Duration, err error)
}

// StorageKey uniquely identifies a stored image.
type StorageKey struct {
	Bucket string
	Path   string
}
