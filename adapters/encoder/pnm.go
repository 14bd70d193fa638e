package encoder

import (
	"context"
	"image"
	"io"

	"github.com/spakin/netpbm"

	"github.com/Erithax/zune-image/core"
)

// PNM writes raw netpbm: a greymap for luma images, a pixmap otherwise.
// 16-bit images keep their depth with maxval 65535. Alpha is dropped.
type PNM struct{}

func NewPNM() *PNM { return &PNM{} }

func (p *PNM) Encode(ctx context.Context, img *core.ImageData, _ core.EncodeOptions, w io.Writer) (int64, error) {
	src, err := source(ctx, "pnm.encode", img)
	if err != nil {
		return 0, err
	}
	opts := pnmOptions(src)
	return counted("pnm.encode", w, func(w io.Writer) error {
		return netpbm.Encode(w, src, opts)
	})
}

func pnmOptions(src image.Image) *netpbm.EncodeOptions {
	opts := &netpbm.EncodeOptions{Format: netpbm.PPM, MaxValue: 0xFF}
	switch src.(type) {
	case *image.Gray:
		opts.Format = netpbm.PGM
	case *image.Gray16:
		opts.Format, opts.MaxValue = netpbm.PGM, 0xFFFF
	case *image.RGBA64, *image.NRGBA64:
		opts.MaxValue = 0xFFFF
	}
	return opts
}
