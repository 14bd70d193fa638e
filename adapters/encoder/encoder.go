// Package encoder provides format-specific image encoders. Every encoder
// streams into the supplied writer and reports the number of bytes written.
package encoder

import (
	"context"
	"image"
	"io"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
	"github.com/Erithax/zune-image/utils"
)

// source validates img and returns its pixels.
func source(ctx context.Context, op string, img *core.ImageData) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, op, err)
	}
	if img == nil || img.Image == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, op, apperrors.ErrEmptyInput)
	}
	return img.Image, nil
}

// counted runs fn against a counting wrapper of w.
func counted(op string, w io.Writer, fn func(io.Writer) error) (int64, error) {
	cw := &utils.CountingWriter{W: w}
	if err := fn(cw); err != nil {
		return cw.N, apperrors.Wrap(apperrors.CategoryEncode, op, err)
	}
	return cw.N, nil
}
