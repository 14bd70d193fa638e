package encoder

import (
	"context"
	"image/png"
	"io"

	"github.com/Erithax/zune-image/core"
)

// PNG encodes images to PNG format.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions, w io.Writer) (int64, error) {
	src, err := source(ctx, "png.encode", img)
	if err != nil {
		return 0, err
	}
	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if opts.Lossless {
		enc.CompressionLevel = png.BestCompression
	}
	return counted("png.encode", w, func(w io.Writer) error {
		return enc.Encode(w, src)
	})
}
