package zune_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	zune "github.com/Erithax/zune-image"
	"github.com/Erithax/zune-image/adapters/vips"
	"github.com/Erithax/zune-image/config"
	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
	"github.com/Erithax/zune-image/hooks"
	"github.com/Erithax/zune-image/operations"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func ppm(w, h int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P6\n%d %d\n255\n", w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Write([]byte{uint8(x), uint8(y), 128})
		}
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newConverter(t *testing.T, cfg config.Config, stdin []byte, opts ...zune.Option) (*zune.Converter, *bytes.Buffer) {
	t.Helper()
	var stdout bytes.Buffer
	opts = append([]zune.Option{zune.WithStdio(bytes.NewReader(stdin), &stdout)}, opts...)
	c, err := zune.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &stdout
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

type fakeViewer struct{ shown int }

func (v *fakeViewer) Show(_ context.Context, images []*core.ImageData) error {
	v.shown += len(images)
	return nil
}

// ── End to end ────────────────────────────────────────────────────────────────

func TestRun_ResizeGrayscaleToFileAndStream(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "a.ppm", ppm(200, 100))
	out := filepath.Join(dir, "b.png")

	c, stdout := newConverter(t, config.Default(), nil)
	res, err := c.Run(context.Background(), zune.Request{
		Inputs:       []string{in},
		Outputs:      []string{out, "-"},
		OutputFormat: "png",
		Args: operations.List{
			{ID: "in", Values: []string{in}},
			{ID: "resize", Values: []string{"100", "50"}},
			{ID: "grayscale"},
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" || len(res.Sources) != 1 || res.Sources[0].Format != core.FormatPPM {
		t.Fatalf("result: %+v", res)
	}
	if err := res.Sources[0].Report.Err(); err != nil {
		t.Fatalf("targets: %v", err)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for name, img := range map[string]image.Image{"file": decodePNG(t, raw), "stream": decodePNG(t, stdout.Bytes())} {
		if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
			t.Errorf("%s: size %v", name, b)
		}
		if _, ok := img.(*image.Gray); !ok {
			t.Errorf("%s: got %T, want a luma image", name, img)
		}
	}
}

func TestRun_ZeroByteInput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "empty.png", nil)
	out := filepath.Join(dir, "out.png")

	c, _ := newConverter(t, config.Default(), nil)
	_, err := c.Run(context.Background(), zune.Request{Inputs: []string{in}, Outputs: []string{out}})

	var ni *apperrors.DecoderNotIncludedError
	if !errors.As(err, &ni) || ni.Format != "unknown" {
		t.Fatalf("got %v, want DecoderNotIncluded(unknown)", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be produced")
	}
}

func TestRun_DecoderNotImplemented(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	in := writeFile(t, dir, "a.png", buf.Bytes())

	reg := core.NewRegistry()
	reg.RegisterEncoder(core.FormatPNG, nopEncoder{})
	c, _ := newConverter(t, config.Default(), nil, zune.WithRegistry(reg))

	_, err := c.Run(context.Background(), zune.Request{Inputs: []string{in}})
	var nimp *apperrors.DecoderNotImplementedError
	if !errors.As(err, &nimp) || nimp.Format != "png" {
		t.Errorf("got %v", err)
	}
}

func TestRun_AVIFWithoutBackend(t *testing.T) {
	if vips.Available {
		t.Skip("libvips decodes avif in this build")
	}
	dir := t.TempDir()
	in := writeFile(t, dir, "a.avif", []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00mif1avif"))

	c, _ := newConverter(t, config.Default(), nil)
	_, err := c.Run(context.Background(), zune.Request{Inputs: []string{in}})
	var nimp *apperrors.DecoderNotImplementedError
	if !errors.As(err, &nimp) || nimp.Format != "avif" {
		t.Errorf("got %v, want DecoderNotImplemented(avif)", err)
	}
}

func TestRun_OversizedPPMHeader(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "huge.ppm", []byte("P6\n100000000 100000000\n255\n"))

	c, _ := newConverter(t, config.Default(), nil)
	_, err := c.Run(context.Background(), zune.Request{Inputs: []string{in}, Outputs: []string{filepath.Join(dir, "out.png")}})
	if !errors.Is(err, apperrors.ErrInvalidDimensions) {
		t.Errorf("got %v, want ErrInvalidDimensions", err)
	}
}

type nopEncoder struct{}

func (nopEncoder) Encode(context.Context, *core.ImageData, core.EncodeOptions, io.Writer) (int64, error) {
	return 0, nil
}

func TestRun_TargetFailureIsIsolated(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "a.ppm", ppm(8, 8))
	good := filepath.Join(dir, "good.bmp")

	c, _ := newConverter(t, config.Default(), nil)
	res, err := c.Run(context.Background(), zune.Request{
		Inputs:  []string{in},
		Outputs: []string{filepath.Join(dir, "no", "such", "dir.png"), "-", good},
	})
	if err != nil {
		t.Fatalf("target failures must not fail the run: %v", err)
	}
	if n := len(res.Sources[0].Report.Failed()); n != 2 {
		t.Errorf("got %d failed targets, want 2", n)
	}
	if _, err := os.Stat(good); err != nil {
		t.Errorf("valid target missing: %v", err)
	}
}

func TestRun_SourceFailureBlastRadius(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.ppm", []byte("not an image"))
	good := writeFile(t, dir, "good.ppm", ppm(4, 4))
	out := filepath.Join(dir, "out.ppm")
	req := zune.Request{Inputs: []string{bad, good}, Outputs: []string{out}}

	c, _ := newConverter(t, config.Default(), nil)
	res, err := c.Run(context.Background(), req)
	if err == nil || len(res.Sources) != 1 {
		t.Fatalf("default run should stop at the first failing source: err=%v sources=%d", err, len(res.Sources))
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("later sources must not run")
	}

	cfg := config.Default()
	cfg.ContinueOnError = true
	c, _ = newConverter(t, cfg, nil)
	res, err = c.Run(context.Background(), req)
	if err == nil {
		t.Error("the joined source error should still be returned")
	}
	if len(res.Sources) != 2 || res.Sources[1].Err != nil {
		t.Fatalf("keep-going: %+v", res.Sources)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("second source output missing: %v", err)
	}
}

func TestRun_ParameterErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "a.ppm", ppm(4, 4))
	out := filepath.Join(dir, "b.png")

	c, _ := newConverter(t, config.Default(), nil)
	_, err := c.Run(context.Background(), zune.Request{
		Inputs:  []string{in},
		Outputs: []string{out},
		Args:    operations.List{{ID: "mirror", Values: []string{"up"}}},
	})
	var pe *apperrors.ParamError
	if !errors.As(err, &pe) || pe.Value != "up" {
		t.Fatalf("got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be produced")
	}
}

func TestRun_StdinAppliesOperations(t *testing.T) {
	metrics := hooks.NewInMemoryMetrics()
	c, stdout := newConverter(t, config.Default(), ppm(6, 3), zune.WithMetrics(metrics))
	_, err := c.Run(context.Background(), zune.Request{
		Inputs:       []string{"-"},
		Outputs:      []string{"-"},
		OutputFormat: "png",
		Args:         operations.List{{ID: "transpose"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	img := decodePNG(t, stdout.Bytes())
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 6 {
		t.Errorf("transpose was not applied to stdin input: %v", b)
	}
	snap := metrics.Snapshot()
	if snap.Steps["transpose"].Calls != 1 || snap.Steps["encode:png"].Calls != 1 || snap.EncodedBytes == 0 {
		t.Errorf("metrics: %+v", snap)
	}
}

func TestRun_StdinTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxImageBytes = 10
	c, _ := newConverter(t, cfg, ppm(8, 8))
	_, err := c.Run(context.Background(), zune.Request{Inputs: []string{"-"}})
	if !errors.Is(err, apperrors.ErrImageTooLarge) {
		t.Errorf("got %v", err)
	}
}

func TestRun_Probe(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "a.ppm", ppm(7, 5))
	out := filepath.Join(dir, "b.png")

	c, stdout := newConverter(t, config.Default(), nil)
	res, err := c.Run(context.Background(), zune.Request{Inputs: []string{in}, Outputs: []string{out}, Probe: true})
	if err != nil {
		t.Fatal(err)
	}
	var info zune.ImageInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		t.Fatalf("probe output %q: %v", stdout.String(), err)
	}
	if info.Width != 7 || info.Height != 5 || info.Format != core.FormatPPM || info.ColorSpace != core.ColorSpaceRGB {
		t.Errorf("info: %+v", info)
	}
	if len(res.Sources[0].Info) != 1 {
		t.Errorf("result info: %+v", res.Sources[0].Info)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("probe must not write outputs")
	}
}

func TestRun_View(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "a.ppm", ppm(2, 2))
	v := &fakeViewer{}
	c, _ := newConverter(t, config.Default(), nil, zune.WithViewer(v))
	if _, err := c.Run(context.Background(), zune.Request{Inputs: []string{in}, View: true}); err != nil {
		t.Fatal(err)
	}
	if v.shown != 1 {
		t.Errorf("shown %d images", v.shown)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultQuality = 0
	if _, err := zune.New(cfg); !apperrors.IsCategory(err, apperrors.CategoryConfig) {
		t.Errorf("got %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := zune.DefaultRegistry()
	if reg != zune.DefaultRegistry() {
		t.Error("DefaultRegistry should be built once")
	}
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatGIF, core.FormatBMP, core.FormatTIFF, core.FormatPPM} {
		if !reg.HasDecoder(f) || !reg.HasEncoder(f) {
			t.Errorf("%s should decode and encode", f)
		}
	}
	if !reg.HasDecoder(core.FormatWebP) {
		t.Error("webp should decode")
	}
}
