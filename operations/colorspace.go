package operations

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// ParseColorSpace resolves a colour space name.
func ParseColorSpace(s string) (core.ColorSpace, error) {
	switch cs := core.ColorSpace(s); cs {
	case core.ColorSpaceRGB, core.ColorSpaceRGBA, core.ColorSpaceLuma, core.ColorSpaceLumaA,
		core.ColorSpaceCMYK, core.ColorSpaceYCbCr, core.ColorSpaceHSL, core.ColorSpaceHSV:
		return cs, nil
	}
	return "", fmt.Errorf("unknown colorspace %q, expected one of rgb, rgba, luma, lumaa, cmyk, ycbcr, hsl, hsv", s)
}

// Grayscale converts to single channel luma.
type Grayscale struct{}

func (Grayscale) Name() string { return "grayscale" }

func (o Grayscale) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	src = toRGB(src, img.Meta.ColorSpace)
	if !is8Bit(src) {
		return withColorSpace(output(img, convert(src, true, true)), core.ColorSpaceLuma), nil
	}
	// bild weights the channels; the result is repacked as single channel luma.
	return withColorSpace(output(img, convert(effect.Grayscale(src), true, false)), core.ColorSpaceLuma), nil
}

// ColorSpaceConv converts the pixels to Target.
type ColorSpaceConv struct {
	Target core.ColorSpace
}

func (ColorSpaceConv) Name() string { return "colorspace" }

func (o ColorSpaceConv) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if o.Target == img.Meta.ColorSpace {
		return img, nil
	}
	src = toRGB(src, img.Meta.ColorSpace)
	wide := !is8Bit(src)

	var dst image.Image
	switch o.Target {
	case core.ColorSpaceRGB:
		dst = opaque(convert(src, false, wide))
	case core.ColorSpaceRGBA:
		dst = convert(src, false, wide)
	case core.ColorSpaceLuma:
		dst = convert(src, true, wide)
	case core.ColorSpaceLumaA:
		dst = lumaAlpha(src)
	case core.ColorSpaceCMYK:
		c := image.NewCMYK(src.Bounds().Sub(src.Bounds().Min))
		mapPixels(src, func(x, y int, px color.NRGBA) {
			c.Set(x, y, color.CMYKModel.Convert(px))
		})
		dst = c
	case core.ColorSpaceYCbCr:
		dst = toYCbCr(src)
	case core.ColorSpaceHSL, core.ColorSpaceHSV:
		dst = toHue(src, o.Target)
	default:
		return nil, apperrors.New(apperrors.CategoryPipeline, o.Name(),
			fmt.Errorf("unsupported colorspace %q", o.Target))
	}
	return withColorSpace(output(img, dst), o.Target), nil
}

func withColorSpace(d *core.ImageData, cs core.ColorSpace) *core.ImageData {
	d.Meta.ColorSpace = cs
	return d
}

// mapPixels calls fn for every pixel with origin-relative coordinates.
func mapPixels(src image.Image, fn func(x, y int, px color.NRGBA)) {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			fn(x-b.Min.X, y-b.Min.Y, color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA))
		}
	}
}

func opaque(img image.Image) image.Image {
	switch d := img.(type) {
	case *image.NRGBA:
		for i := 3; i < len(d.Pix); i += 4 {
			d.Pix[i] = 0xFF
		}
	case *image.NRGBA64:
		for i := 6; i < len(d.Pix); i += 8 {
			d.Pix[i], d.Pix[i+1] = 0xFF, 0xFF
		}
	}
	return img
}

func lumaAlpha(src image.Image) image.Image {
	dst := image.NewNRGBA(src.Bounds().Sub(src.Bounds().Min))
	mapPixels(src, func(x, y int, px color.NRGBA) {
		g := color.GrayModel.Convert(color.NRGBA{R: px.R, G: px.G, B: px.B, A: 0xFF}).(color.Gray).Y
		dst.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: px.A})
	})
	return dst
}

func toYCbCr(src image.Image) image.Image {
	if y, ok := src.(*image.YCbCr); ok {
		return y
	}
	r := src.Bounds().Sub(src.Bounds().Min)
	dst := image.NewYCbCr(r, image.YCbCrSubsampleRatio444)
	mapPixels(src, func(x, y int, px color.NRGBA) {
		yy, cb, cr := color.RGBToYCbCr(px.R, px.G, px.B)
		dst.Y[dst.YOffset(x, y)] = yy
		dst.Cb[dst.COffset(x, y)] = cb
		dst.Cr[dst.COffset(x, y)] = cr
	})
	return dst
}

// toHue stores hue, saturation and lightness (or value) in the R, G and B
// channels, each scaled to 0-255.
func toHue(src image.Image, cs core.ColorSpace) image.Image {
	dst := image.NewNRGBA(src.Bounds().Sub(src.Bounds().Min))
	mapPixels(src, func(x, y int, px color.NRGBA) {
		c := colorful.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}
		var h, s, l float64
		if cs == core.ColorSpaceHSV {
			h, s, l = c.Hsv()
		} else {
			h, s, l = c.Hsl()
		}
		dst.SetNRGBA(x, y, color.NRGBA{
			R: uint8(clamp(h/360*255, 255)),
			G: uint8(clamp(s*255, 255)),
			B: uint8(clamp(l*255, 255)),
			A: px.A,
		})
	})
	return dst
}

// toRGB undoes a hue encoding so that further conversions start from RGB.
// Other colour spaces are returned untouched.
func toRGB(src image.Image, cs core.ColorSpace) image.Image {
	if cs != core.ColorSpaceHSL && cs != core.ColorSpaceHSV {
		return src
	}
	dst := image.NewNRGBA(src.Bounds().Sub(src.Bounds().Min))
	mapPixels(src, func(x, y int, px color.NRGBA) {
		h := float64(px.R) / 255 * 360
		s := float64(px.G) / 255
		l := float64(px.B) / 255
		var c colorful.Color
		if cs == core.ColorSpaceHSV {
			c = colorful.Hsv(h, s, l)
		} else {
			c = colorful.Hsl(h, s, l)
		}
		r, g, b := c.Clamped().RGB255()
		dst.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: px.A})
	})
	return dst
}
