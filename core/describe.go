package core

import "image"

// Describe returns base with the geometry and colour fields refreshed from img.
// Format, Orientation and Frame are carried over unchanged.
func Describe(img image.Image, base Metadata) Metadata {
	b := img.Bounds()
	base.Width = b.Dx()
	base.Height = b.Dy()
	base.ColorSpace = colorSpace(img, base.ColorSpace)
	base.HasAlpha = hasAlpha(img)
	base.Depth = depth(img)
	return base
}

func colorSpace(img image.Image, prev ColorSpace) ColorSpace {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return ColorSpaceLuma
	case *image.CMYK:
		return ColorSpaceCMYK
	case *image.YCbCr:
		return ColorSpaceYCbCr
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted:
		// hsl/hsv pixels are stored in RGBA containers
		if prev == ColorSpaceHSL || prev == ColorSpaceHSV {
			return prev
		}
		if prev == ColorSpaceLumaA {
			return prev
		}
		if hasAlpha(img) {
			return ColorSpaceRGBA
		}
	}
	return ColorSpaceRGB
}

// hasAlpha reports whether img carries an alpha channel that is not fully
// opaque.
func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted, *image.Alpha, *image.Alpha16:
		if o, ok := img.(interface{ Opaque() bool }); ok {
			return !o.Opaque()
		}
		return true
	}
	return false
}

func depth(img image.Image) int {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64, *image.Alpha16:
		return 16
	}
	return 8
}
