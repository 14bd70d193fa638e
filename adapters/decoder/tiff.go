package decoder

import (
	"context"
	"io"

	"golang.org/x/image/tiff"

	"github.com/Erithax/zune-image/core"
)

// TIFF decodes the first page of a TIFF file.
type TIFF struct{}

func NewTIFF() *TIFF { return &TIFF{} }

func (t *TIFF) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	return single(ctx, "tiff.decode", core.FormatTIFF, tiff.Decode, r, opts)
}
