// Package operations resolves command-line operation identifiers into typed
// image operations and implements them.
package operations

import (
	"context"
	"image"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// input validates the incoming frame and returns its pixels.
func input(ctx context.Context, name string, img *core.ImageData) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, name, err)
	}
	if img == nil || img.Image == nil {
		return nil, apperrors.New(apperrors.CategoryPipeline, name, apperrors.ErrEmptyInput)
	}
	return img.Image, nil
}

// output returns a copy of in carrying dst, with geometry and colour metadata
// refreshed. in is never modified.
func output(in *core.ImageData, dst image.Image) *core.ImageData {
	out := *in
	out.Image = dst
	out.Meta = core.Describe(dst, in.Meta)
	return &out
}

// is8Bit reports whether every sample of img fits in a byte.
func is8Bit(img image.Image) bool {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64, *image.Alpha16:
		return false
	}
	return true
}
