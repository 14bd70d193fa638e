package decoder

import (
	"context"
	"image/png"
	"io"

	"github.com/Erithax/zune-image/core"
)

// PNG decodes PNG images using the standard library.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	return single(ctx, "png.decode", core.FormatPNG, png.Decode, r, opts)
}
