package encoder

import (
	"context"
	"image/gif"
	"io"

	"github.com/Erithax/zune-image/core"
)

// GIF encodes a single frame, quantising to the web-safe palette with
// Floyd-Steinberg dithering when the image is not already paletted.
type GIF struct{}

func NewGIF() *GIF { return &GIF{} }

func (g *GIF) Encode(ctx context.Context, img *core.ImageData, _ core.EncodeOptions, w io.Writer) (int64, error) {
	src, err := source(ctx, "gif.encode", img)
	if err != nil {
		return 0, err
	}
	return counted("gif.encode", w, func(w io.Writer) error {
		return gif.Encode(w, src, &gif.Options{NumColors: 256})
	})
}
