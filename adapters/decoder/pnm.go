package decoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/spakin/netpbm"
	"golang.org/x/image/draw"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

// PNM decodes every netpbm variant: bitmaps, greymaps, pixmaps and PAM, in
// plain or raw encoding with 8 or 16 bit samples. Strict mode accepts only
// greymaps and pixmaps.
type PNM struct{}

func NewPNM() *PNM { return &PNM{} }

func (p *PNM) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "pnm.decode", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "pnm.read", err)
	}
	if opts.Strict && !greyOrPixmap(data) {
		return nil, apperrors.New(apperrors.CategoryDecode, "pnm.decode",
			fmt.Errorf("%w: netpbm variant %q in strict mode", apperrors.ErrUnsupportedFormat, magicOf(data)))
	}

	cfg, err := netpbm.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "pnm.header", err)
	}
	if err := checkBounds("pnm.decode", cfg.Width, cfg.Height, opts); err != nil {
		return nil, err
	}
	if err := checkRaster(cfg.Width, cfg.Height, len(data)); err != nil {
		return nil, err
	}

	img, err := netpbm.Decode(bytes.NewReader(data), &netpbm.DecodeOptions{Target: netpbm.PNM})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "pnm.pixels", err)
	}
	d, err := frame("pnm.decode", core.FormatPPM, standard(img), opts)
	if err != nil {
		return nil, err
	}
	return []*core.ImageData{d}, nil
}

// checkRaster rejects headers that promise more pixels than the input can
// hold. Even a raw bitmap needs one bit per pixel, so a header is never
// trusted beyond eight pixels per input byte.
func checkRaster(w, h, available int) error {
	const maxInt = int(^uint(0) >> 1)
	if w > maxInt/h {
		return apperrors.New(apperrors.CategoryDecode, "pnm.decode",
			fmt.Errorf("%w: %dx%d overflows", apperrors.ErrInvalidDimensions, w, h))
	}
	rowBytes := (w + 7) / 8
	if rowBytes > maxInt/h || rowBytes*h > available {
		return apperrors.New(apperrors.CategoryDecode, "pnm.decode",
			fmt.Errorf("%w: %dx%d raster exceeds the %d input bytes", apperrors.ErrInvalidDimensions, w, h, available))
	}
	return nil
}

// standard redraws a netpbm image into the image package's own types so
// operations and encoders see luma as *image.Gray and keep 16-bit depth.
func standard(img netpbm.Image) image.Image {
	r := img.Bounds()
	wide := img.MaxValue() > 0xFF
	gray := img.Format() == netpbm.PBM || img.Format() == netpbm.PGM

	var dst draw.Image
	switch {
	case gray && wide:
		dst = image.NewGray16(r)
	case gray:
		dst = image.NewGray(r)
	case wide:
		dst = image.NewNRGBA64(r)
	default:
		dst = image.NewNRGBA(r)
	}
	draw.Draw(dst, r, img, r.Min, draw.Src)
	return dst
}

func magicOf(data []byte) string {
	if len(data) < 2 {
		return string(data)
	}
	return string(data[:2])
}

func greyOrPixmap(data []byte) bool {
	switch magicOf(data) {
	case "P2", "P3", "P5", "P6":
		return true
	}
	return false
}
