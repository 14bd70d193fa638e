package operations

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
	"github.com/Erithax/zune-image/utils"
)

// ── Flip / flop / transpose ───────────────────────────────────────────────────

// Flip turns the image upside down.
type Flip struct{}

func (Flip) Name() string { return "flip" }

func (o Flip) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if keepsModel(src) {
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		return output(img, remap(src, w, h, func(x, y int) (int, int) { return x, h - 1 - y })), nil
	}
	return output(img, imaging.FlipV(src)), nil
}

// Flop mirrors the image left to right.
type Flop struct{}

func (Flop) Name() string { return "flop" }

func (o Flop) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if keepsModel(src) {
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		return output(img, remap(src, w, h, func(x, y int) (int, int) { return w - 1 - x, y })), nil
	}
	return output(img, imaging.FlipH(src)), nil
}

// HFlip is a horizontal flip.
type HFlip struct{}

func (HFlip) Name() string { return "h-flip" }

func (o HFlip) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if keepsModel(src) {
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		return output(img, remap(src, w, h, func(x, y int) (int, int) { return w - 1 - x, y })), nil
	}
	return output(img, transform.FlipH(src)), nil
}

// Transpose swaps rows and columns.
type Transpose struct{}

func (Transpose) Name() string { return "transpose" }

func (o Transpose) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if keepsModel(src) {
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		return output(img, remap(src, h, w, func(x, y int) (int, int) { return y, x })), nil
	}
	return output(img, imaging.Transpose(src)), nil
}

// ── Mirror ────────────────────────────────────────────────────────────────────

type MirrorMode int

const (
	// MirrorNorth reflects the top half onto the bottom half.
	MirrorNorth MirrorMode = iota
	// MirrorSouth reflects the bottom half onto the top half.
	MirrorSouth
	// MirrorEast reflects the right half onto the left half.
	MirrorEast
	// MirrorWest reflects the left half onto the right half.
	MirrorWest
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorNorth:
		return "north"
	case MirrorSouth:
		return "south"
	case MirrorEast:
		return "east"
	case MirrorWest:
		return "west"
	}
	return fmt.Sprintf("MirrorMode(%d)", int(m))
}

type Mirror struct {
	Mode MirrorMode
}

func (Mirror) Name() string { return "mirror" }

func (o Mirror) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if keepsModel(src) {
		w, h := src.Bounds().Dx(), src.Bounds().Dy()
		return output(img, remap(src, w, h, o.source(w, h))), nil
	}
	dst := imaging.Clone(src)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	row := func(y int) []uint8 { return dst.Pix[y*dst.Stride : y*dst.Stride+w*4] }

	switch o.Mode {
	case MirrorNorth:
		for y := h / 2; y < h; y++ {
			copy(row(y), row(h-1-y))
		}
	case MirrorSouth:
		for y := 0; y < h/2; y++ {
			copy(row(y), row(h-1-y))
		}
	case MirrorEast, MirrorWest:
		for y := 0; y < h; y++ {
			r := row(y)
			for x := 0; x < w/2; x++ {
				l, rr := x*4, (w-1-x)*4
				if o.Mode == MirrorWest {
					copy(r[rr:rr+4], r[l:l+4])
				} else {
					copy(r[l:l+4], r[rr:rr+4])
				}
			}
		}
	}
	return output(img, dst), nil
}

// source maps a destination pixel to the pixel it is reflected from.
func (o Mirror) source(w, h int) func(x, y int) (int, int) {
	return func(x, y int) (int, int) {
		switch o.Mode {
		case MirrorNorth:
			if y >= h/2 {
				return x, h - 1 - y
			}
		case MirrorSouth:
			if y < h/2 {
				return x, h - 1 - y
			}
		case MirrorEast:
			if x < w/2 {
				return w - 1 - x, y
			}
		case MirrorWest:
			if x >= w-w/2 {
				return w - 1 - x, y
			}
		}
		return x, y
	}
}

// ── Invert ────────────────────────────────────────────────────────────────────

type Invert struct{}

func (Invert) Name() string { return "invert" }

func (o Invert) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if !is8Bit(src) {
		return output(img, mapSamples(src, func(v, max float64) float64 { return max - v })), nil
	}
	return output(img, imaging.Invert(src)), nil
}

// ── Auto orient ───────────────────────────────────────────────────────────────

// AutoOrient applies the EXIF orientation recorded at decode time and resets
// it to 1.
type AutoOrient struct{}

func (AutoOrient) Name() string { return "auto-orient" }

func (o AutoOrient) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	var dst image.Image
	switch img.Meta.Orientation {
	case 2:
		dst = imaging.FlipH(src)
	case 3:
		dst = imaging.Rotate180(src)
	case 4:
		dst = imaging.FlipV(src)
	case 5:
		dst = imaging.Transpose(src)
	case 6:
		dst = imaging.Rotate270(src)
	case 7:
		dst = imaging.Transverse(src)
	case 8:
		dst = imaging.Rotate90(src)
	default:
		return img, nil
	}
	out := output(img, dst)
	out.Meta.Orientation = 1
	return out, nil
}

// ── Median / statistic ────────────────────────────────────────────────────────

type Median struct {
	Radius int
}

func (Median) Name() string { return "median" }

func (o Median) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if o.Radius == 0 {
		return img, nil
	}
	return output(img, effect.Median(src, float64(o.Radius))), nil
}

type StatisticMode int

const (
	StatisticMedian StatisticMode = iota
	StatisticMin
	StatisticMax
	StatisticMean
)

// ParseStatisticMode resolves a statistic name. "minimum" and "maximum" are
// accepted as long forms.
func ParseStatisticMode(s string) (StatisticMode, error) {
	switch s {
	case "median":
		return StatisticMedian, nil
	case "min", "minimum":
		return StatisticMin, nil
	case "max", "maximum":
		return StatisticMax, nil
	case "mean":
		return StatisticMean, nil
	}
	return 0, fmt.Errorf("unknown statistic mode %q, expected one of median, min, max, mean", s)
}

// Statistic replaces each pixel with a statistic of its neighbourhood.
type Statistic struct {
	Radius int
	Mode   StatisticMode
}

func (Statistic) Name() string { return "statistic" }

func (o Statistic) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if o.Radius == 0 {
		return img, nil
	}
	r := float64(o.Radius)
	var dst image.Image
	switch o.Mode {
	case StatisticMin:
		dst = effect.Erode(src, r)
	case StatisticMax:
		dst = effect.Dilate(src, r)
	case StatisticMean:
		dst = blur.Box(src, r)
	default:
		dst = effect.Median(src, r)
	}
	return output(img, dst), nil
}

// ── Tone ──────────────────────────────────────────────────────────────────────

// Brighten shifts every sample by Value, a fraction of full scale in [-1, 1].
type Brighten struct {
	Value float32
}

func (Brighten) Name() string { return "brighten" }

func (o Brighten) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	v := math.Max(-1, math.Min(1, float64(o.Value)))
	if !is8Bit(src) {
		return output(img, mapSamples(src, func(s, max float64) float64 { return s + v*max })), nil
	}
	return output(img, adjust.Brightness(src, v)), nil
}

type Gamma struct {
	Value float32
}

func (Gamma) Name() string { return "gamma" }

func (o Gamma) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	return output(img, imaging.AdjustGamma(src, float64(o.Value))), nil
}

// Contrast changes contrast by Value percent, clamped to [-100, 100].
type Contrast struct {
	Value float32
}

func (Contrast) Name() string { return "contrast" }

func (o Contrast) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	return output(img, imaging.AdjustContrast(src, float64(o.Value))), nil
}

// Exposure scales samples by 2^Exposure after subtracting the black point.
// Black is a fraction of full scale.
type Exposure struct {
	Exposure float32
	Black    float32
}

func (Exposure) Name() string { return "exposure" }

func (o Exposure) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	gain := math.Pow(2, float64(o.Exposure))
	black := float64(o.Black)
	return output(img, mapSamples(src, func(v, max float64) float64 {
		return (v - black*max) * gain
	})), nil
}

// StretchContrast maps [Lower, Upper] linearly onto the full sample range.
// Samples outside the window saturate.
type StretchContrast struct {
	Lower, Upper uint16
}

func (StretchContrast) Name() string { return "stretch_contrast" }

func (o StretchContrast) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	lo, hi := float64(o.Lower), float64(o.Upper)
	if hi <= lo {
		return nil, apperrors.New(apperrors.CategoryPipeline, o.Name(),
			fmt.Errorf("upper bound %d must be greater than lower bound %d", o.Upper, o.Lower))
	}
	return output(img, mapSamples(src, func(v, max float64) float64 {
		l, h := math.Min(lo, max), math.Min(hi, max)
		switch {
		case v <= l:
			return 0
		case v >= h:
			return max
		case h == l:
			return max
		}
		return (v - l) * max / (h - l)
	})), nil
}

// ── Threshold ─────────────────────────────────────────────────────────────────

type ThresholdMode int

const (
	ThresholdBinary ThresholdMode = iota
	ThresholdBinaryInv
	ThresholdTrunc
	ThresholdToZero
)

func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch s {
	case "binary":
		return ThresholdBinary, nil
	case "binary_inv":
		return ThresholdBinaryInv, nil
	case "thresh_trunc":
		return ThresholdTrunc, nil
	case "thresh_to_zero":
		return ThresholdToZero, nil
	}
	return 0, fmt.Errorf("unknown threshold mode %q, expected one of binary, binary_inv, thresh_trunc, thresh_to_zero", s)
}

// Threshold compares every sample against Value.
type Threshold struct {
	Value uint16
	Mode  ThresholdMode
}

func (Threshold) Name() string { return "threshold" }

func (o Threshold) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if _, ok := src.(*image.Gray); ok && o.Mode == ThresholdBinary && o.Value < 255 {
		// segment.Threshold sets samples >= level; ours sets samples > Value.
		return output(img, segment.Threshold(src, uint8(o.Value)+1)), nil
	}
	t := float64(o.Value)
	return output(img, mapSamples(src, func(v, max float64) float64 {
		switch o.Mode {
		case ThresholdBinary:
			if v > t {
				return max
			}
			return 0
		case ThresholdBinaryInv:
			if v > t {
				return 0
			}
			return max
		case ThresholdTrunc:
			return math.Min(v, t)
		default:
			if v > t {
				return v
			}
			return 0
		}
	})), nil
}

// ── Geometry ──────────────────────────────────────────────────────────────────

// Crop extracts a Width x Height rectangle whose top-left corner is (X, Y).
type Crop struct {
	Width, Height, X, Y int
}

func (Crop) Name() string { return "crop" }

func (o Crop) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	rect := image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height).Add(b.Min)
	if rect.Empty() || !rect.In(b) {
		return nil, apperrors.New(apperrors.CategoryPipeline, o.Name(),
			fmt.Errorf("%w: crop %dx%d at (%d,%d) exceeds image %dx%d",
				apperrors.ErrInvalidDimensions, o.Width, o.Height, o.X, o.Y, b.Dx(), b.Dy()))
	}
	return output(img, imaging.Crop(src, rect)), nil
}

type ResizeMethod int

const (
	ResizeBilinear ResizeMethod = iota
)

// Resize scales to Width x Height. A zero dimension is derived from the other
// so the aspect ratio is kept.
type Resize struct {
	Width, Height int
	Method        ResizeMethod
}

func (Resize) Name() string { return "resize" }

func (o Resize) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := utils.ScaleDimensions(b.Dx(), b.Dy(), o.Width, o.Height)
	if w <= 0 || h <= 0 {
		return nil, apperrors.New(apperrors.CategoryPipeline, o.Name(), apperrors.ErrInvalidDimensions)
	}
	if w == b.Dx() && h == b.Dy() {
		return img, nil
	}
	return output(img, resize.Resize(uint(w), uint(h), src, resize.Bilinear)), nil
}

// ── Depth ─────────────────────────────────────────────────────────────────────

// Depth converts samples to 8 or 16 bits.
type Depth struct {
	Bits int
}

func (Depth) Name() string { return "depth" }

func (o Depth) Apply(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := input(ctx, o.Name(), img)
	if err != nil {
		return nil, err
	}
	if o.Bits != 8 && o.Bits != 16 {
		return nil, apperrors.New(apperrors.CategoryPipeline, o.Name(),
			fmt.Errorf("unsupported depth %d", o.Bits))
	}
	wide := o.Bits == 16
	if is8Bit(src) != wide {
		return img, nil
	}
	return output(img, convert(src, isGray(src), wide)), nil
}
