package decoder

import (
	"bytes"
	"context"
	"image/jpeg"
	"io"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// JPEG decodes JPEG images using the standard library and records the EXIF
// orientation so auto-orient can act on it.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.read", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.config", err)
	}
	if err := checkBounds("jpeg.decode", cfg.Width, cfg.Height, opts); err != nil {
		return nil, err
	}

	frames, err := single(ctx, "jpeg.decode", core.FormatJPEG, jpeg.Decode, bytes.NewReader(raw), opts)
	if err != nil {
		return nil, err
	}
	frames[0].Meta.Orientation = Orientation(raw)
	return frames, nil
}
