//go:build govips && cgo

// Package vips provides libvips-backed codecs for formats the Go image
// libraries cannot write (WebP) or read at all (AVIF).
package vips

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"runtime"
	"sync"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
	"github.com/Erithax/zune-image/utils"
)

var (
	startupOnce sync.Once
	shutdownMu  sync.Mutex
	started     bool
)

// Available reports whether this build links libvips.
const Available = true

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Backend is a libvips-powered Decoder and Encoder. Each instance handles a
// single format; use Register to install all of them.
type Backend struct {
	cfg    BackendConfig
	format core.Format
}

// Startup initialises libvips once per process.
func Startup(cfg BackendConfig) {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	startupOnce.Do(func() {
		govips.LoggingSettings(nil, govips.LogLevelWarning)
		govips.Startup(&govips.Config{
			ConcurrencyLevel: cfg.MaxWorkers,
			MaxCacheSize:     cfg.MaxCacheSize,
			ReportLeaks:      cfg.ReportLeaks,
		})
		shutdownMu.Lock()
		started = true
		shutdownMu.Unlock()
	})
}

// Shutdown releases all libvips resources. Call once at process exit.
func Shutdown() {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if !started {
		return
	}
	govips.Shutdown()
	started = false
}

// Register starts libvips and installs the WebP encoder plus the AVIF
// decoder and encoder into reg.
func Register(reg core.Registry, cfg BackendConfig) {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	Startup(cfg)
	reg.RegisterEncoder(core.FormatWebP, &Backend{cfg: cfg, format: core.FormatWebP})
	avif := &Backend{cfg: cfg, format: core.FormatAVIF}
	reg.RegisterDecoder(core.FormatAVIF, avif)
	reg.RegisterEncoder(core.FormatAVIF, avif)
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) Decode(ctx context.Context, r io.Reader, opts core.DecodeOptions) ([]*core.ImageData, error) {
	op := "vips.decode." + string(b.format)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	raw, err := utils.DrainReader(ctx, r, 32*1024, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}

	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	defer ref.Close()

	w, h := ref.Width(), ref.Height()
	if (opts.MaxWidth > 0 && w > opts.MaxWidth) || (opts.MaxHeight > 0 && h > opts.MaxHeight) {
		return nil, apperrors.New(apperrors.CategoryDecode, op,
			fmt.Errorf("%w: %dx%d", apperrors.ErrImageTooLarge, w, h))
	}

	img, err := ref.ToImage(govips.NewDefaultExportParams())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	meta := core.Describe(img, core.Metadata{Format: b.format, Orientation: ref.Orientation()})
	return []*core.ImageData{{Image: img, Format: b.format, Meta: meta}}, nil
}

// ─── Encoder ──────────────────────────────────────────────────────────────────

func (b *Backend) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions, w io.Writer) (int64, error) {
	op := "vips.encode." + string(b.format)
	if err := ctx.Err(); err != nil {
		return 0, apperrors.Wrap(apperrors.CategoryEncode, op, err)
	}
	if img == nil || img.Image == nil {
		return 0, apperrors.New(apperrors.CategoryEncode, op, apperrors.ErrEmptyInput)
	}

	ref, err := toRef(img.Image)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CategoryEncode, op, err)
	}
	defer ref.Close()

	quality := opts.Quality
	if quality <= 0 {
		quality = b.cfg.DefaultQuality
	}

	var out []byte
	switch b.format {
	case core.FormatWebP:
		ep := govips.NewWebpExportParams()
		ep.Quality = quality
		ep.Lossless = opts.Lossless
		ep.StripMetadata = true
		out, _, err = ref.ExportWebp(ep)
	case core.FormatAVIF:
		ep := govips.NewAvifExportParams()
		ep.Quality = quality
		ep.Lossless = opts.Lossless
		ep.StripMetadata = true
		out, _, err = ref.ExportAvif(ep)
	default:
		err = fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, b.format)
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CategoryEncode, op, err)
	}
	n, err := w.Write(out)
	return int64(n), apperrors.Wrap(apperrors.CategoryEncode, op, err)
}

// toRef hands pixels to libvips through a fast, lossless PNG round trip.
func toRef(img image.Image) (*govips.ImageRef, error) {
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(buf, img); err != nil {
		return nil, err
	}
	return govips.NewImageFromBuffer(bytes.Clone(buf.Bytes()))
}

// compile-time interface checks
var _ core.Decoder = (*Backend)(nil)
var _ core.Encoder = (*Backend)(nil)
