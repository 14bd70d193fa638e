package decoder

import (
	"context"
	"image"
	"image/gif"
	"io"

	"golang.org/x/image/draw"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// GIF decodes every frame of a GIF. Frames are composited onto the logical
// screen so each returned image is a full picture, not a delta.
type GIF struct{}

func NewGIF() *GIF { return &GIF{} }

func (g *GIF) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "gif.decode", err)
	}
	anim, err := gif.DecodeAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "gif.decode", err)
	}
	if len(anim.Image) == 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "gif.decode", apperrors.ErrEmptyInput)
	}

	screen := image.Rect(0, 0, anim.Config.Width, anim.Config.Height)
	if screen.Empty() {
		screen = anim.Image[0].Bounds()
	}
	if err := checkBounds("gif.decode", screen.Dx(), screen.Dy(), opts); err != nil {
		return nil, err
	}

	canvas := image.NewNRGBA(screen)
	out := make([]*core.ImageData, 0, len(anim.Image))
	for i, pal := range anim.Image {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryDecode, "gif.decode", err)
		}
		var restore *image.NRGBA
		disposal := byte(0)
		if i < len(anim.Disposal) {
			disposal = anim.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			restore = cloneNRGBA(canvas)
		}

		draw.Draw(canvas, pal.Bounds(), pal, pal.Bounds().Min, draw.Over)
		snapshot := cloneNRGBA(canvas)
		d, err := frame("gif.decode", core.FormatGIF, snapshot, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, d)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, pal.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
	}
	return out, nil
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
