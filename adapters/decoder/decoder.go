// Package decoder provides format-specific image decoders.
package decoder

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// decodeFunc is the shape of the standard library style decoders.
type decodeFunc func(io.Reader) (image.Image, error)

// single decodes one frame with fn and wraps it in an ImageData.
func single(ctx context.Context, op string, format core.Format, fn decodeFunc, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	img, err := fn(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	d, err := frame(op, format, img, opts)
	if err != nil {
		return nil, err
	}
	return []*core.ImageData{d}, nil
}

// frame validates img against opts and describes it.
func frame(op string, format core.Format, img image.Image, opts core.DecodeOptions) (*core.ImageData, error) {
	if err := checkBounds(op, img.Bounds().Dx(), img.Bounds().Dy(), opts); err != nil {
		return nil, err
	}
	return &core.ImageData{
		Image:  img,
		Format: format,
		Meta:   core.Describe(img, core.Metadata{Format: format}),
	}, nil
}

func checkBounds(op string, w, h int, opts core.DecodeOptions) error {
	if w <= 0 || h <= 0 {
		return apperrors.New(apperrors.CategoryDecode, op,
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, w, h))
	}
	if (opts.MaxWidth > 0 && w > opts.MaxWidth) || (opts.MaxHeight > 0 && h > opts.MaxHeight) {
		return apperrors.New(apperrors.CategoryDecode, op,
			fmt.Errorf("%w: %dx%d > %dx%d", apperrors.ErrImageTooLarge, w, h, opts.MaxWidth, opts.MaxHeight))
	}
	return nil
}
