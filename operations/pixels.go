package operations

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

func blank(r image.Rectangle, gray, wide bool) draw.Image {
	switch {
	case gray && wide:
		return image.NewGray16(r)
	case gray:
		return image.NewGray(r)
	case wide:
		return image.NewNRGBA64(r)
	}
	return image.NewNRGBA(r)
}

// convert redraws src into a fresh image of the requested shape, anchored at
// the origin.
func convert(src image.Image, gray, wide bool) draw.Image {
	r := src.Bounds()
	r = r.Sub(r.Min)
	dst := blank(r, gray, wide)
	draw.Draw(dst, r, src, src.Bounds().Min, draw.Src)
	return dst
}

// keepsModel reports whether src needs remap rather than an 8-bit RGBA
// helper to keep its luma or 16-bit samples.
func keepsModel(src image.Image) bool {
	return isGray(src) || !is8Bit(src)
}

// remap builds a w x h image in src's sample model where each pixel is read
// from the source coordinate returned by from, relative to src's origin.
func remap(src image.Image, w, h int, from func(x, y int) (int, int)) image.Image {
	dst := blank(image.Rect(0, 0, w, h), isGray(src), !is8Bit(src))
	origin := src.Bounds().Min
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := from(x, y)
			dst.Set(x, y, src.At(origin.X+sx, origin.Y+sy))
		}
	}
	return dst
}

// mapSamples applies fn to every colour sample of src, leaving alpha alone.
// fn receives the sample and the maximum sample value for the depth and
// returns the new value, which is rounded and clamped. Grey images stay grey
// and 16-bit images stay 16-bit.
func mapSamples(src image.Image, fn func(v, max float64) float64) image.Image {
	dst := convert(src, isGray(src), !is8Bit(src))
	switch d := dst.(type) {
	case *image.Gray:
		for i, v := range d.Pix {
			d.Pix[i] = uint8(clamp(fn(float64(v), 255), 255))
		}
	case *image.Gray16:
		for i := 0; i < len(d.Pix); i += 2 {
			v := uint16(clamp(fn(float64(uint16(d.Pix[i])<<8|uint16(d.Pix[i+1])), 65535), 65535))
			d.Pix[i], d.Pix[i+1] = uint8(v>>8), uint8(v)
		}
	case *image.NRGBA:
		for i := 0; i < len(d.Pix); i += 4 {
			for c := 0; c < 3; c++ {
				d.Pix[i+c] = uint8(clamp(fn(float64(d.Pix[i+c]), 255), 255))
			}
		}
	case *image.NRGBA64:
		for i := 0; i < len(d.Pix); i += 8 {
			for c := 0; c < 6; c += 2 {
				v := uint16(clamp(fn(float64(uint16(d.Pix[i+c])<<8|uint16(d.Pix[i+c+1])), 65535), 65535))
				d.Pix[i+c], d.Pix[i+c+1] = uint8(v>>8), uint8(v)
			}
		}
	}
	return dst
}

func clamp(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return math.Round(v)
}
