package decoder

import (
	"context"
	"io"

	"golang.org/x/image/bmp"

	"github.com/Erithax/zune-image/core"
)

// BMP decodes Windows bitmaps.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (b *BMP) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	return single(ctx, "bmp.decode", core.FormatBMP, bmp.Decode, r, opts)
}
