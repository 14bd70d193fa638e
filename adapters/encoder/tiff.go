package encoder

import (
	"context"
	"io"

	"golang.org/x/image/tiff"

	"github.com/Erithax/zune-image/core"
)

// TIFF encodes uncompressed TIFF, or deflate-compressed when lossless output
// is requested.
type TIFF struct{}

func NewTIFF() *TIFF { return &TIFF{} }

func (t *TIFF) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions, w io.Writer) (int64, error) {
	src, err := source(ctx, "tiff.encode", img)
	if err != nil {
		return 0, err
	}
	to := &tiff.Options{Compression: tiff.Uncompressed}
	if opts.Lossless {
		to.Compression = tiff.Deflate
	}
	return counted("tiff.encode", w, func(w io.Writer) error {
		return tiff.Encode(w, src, to)
	})
}
