package encoder

import (
	"context"
	"image/jpeg"
	"io"

	"github.com/Erithax/zune-image/core"
)

// JPEG encodes images to JPEG format.
type JPEG struct {
	DefaultQuality int // used when EncodeOptions.Quality == 0
}

func NewJPEG(defaultQuality int) *JPEG {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &JPEG{DefaultQuality: defaultQuality}
}

func (j *JPEG) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions, w io.Writer) (int64, error) {
	src, err := source(ctx, "jpeg.encode", img)
	if err != nil {
		return 0, err
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = j.DefaultQuality
	}
	return counted("jpeg.encode", w, func(w io.Writer) error {
		return jpeg.Encode(w, src, &jpeg.Options{Quality: quality})
	})
}
