package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/Erithax/zune-image/core"
)

// WebP decodes still WebP images using golang.org/x/image/webp.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	return single(ctx, "webp.decode", core.FormatWebP, webp.Decode, r, opts)
}
