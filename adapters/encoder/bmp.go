package encoder

import (
	"context"
	"io"

	"golang.org/x/image/bmp"

	"github.com/Erithax/zune-image/core"
)

type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (b *BMP) Encode(ctx context.Context, img *core.ImageData, _ core.EncodeOptions, w io.Writer) (int64, error) {
	src, err := source(ctx, "bmp.encode", img)
	if err != nil {
		return 0, err
	}
	return counted("bmp.encode", w, func(w io.Writer) error {
		return bmp.Encode(w, src)
	})
}
