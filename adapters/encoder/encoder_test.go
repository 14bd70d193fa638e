package encoder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/spakin/netpbm"

	"github.com/Erithax/zune-image/core"
	apperrors "github.com/Erithax/zune-image/errors"
)

func testImage(t *testing.T, w, h int) *core.ImageData {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 90, A: 255})
		}
	}
	return &core.ImageData{Image: img, Meta: core.Describe(img, core.Metadata{})}
}

func TestEncoders_ReportBytesWritten(t *testing.T) {
	encoders := map[string]core.Encoder{
		"jpeg": NewJPEG(0),
		"png":  NewPNG(),
		"gif":  NewGIF(),
		"bmp":  NewBMP(),
		"tiff": NewTIFF(),
		"pnm":  NewPNM(),
	}
	img := testImage(t, 6, 4)
	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := enc.Encode(context.Background(), img, core.EncodeOptions{}, &buf)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if n == 0 || n != int64(buf.Len()) {
				t.Errorf("reported %d bytes, buffer has %d", n, buf.Len())
			}
		})
	}
}

func TestEncoders_RejectEmptyImage(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewPNG().Encode(context.Background(), &core.ImageData{}, core.EncodeOptions{}, &buf)
	if !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Errorf("got %v, want ErrEmptyInput", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written")
	}
}

func TestPNM_Gray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	gray.Pix[0] = 200
	var buf bytes.Buffer
	if _, err := NewPNM().Encode(context.Background(), &core.ImageData{Image: gray}, core.EncodeOptions{}, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "P5") {
		t.Errorf("luma should be written as a raw greymap, got %q", buf.String()[:2])
	}
	got, err := netpbm.Decode(&buf, &netpbm.DecodeOptions{Target: netpbm.PNM})
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds().Dx() != 3 || got.Bounds().Dy() != 2 || got.MaxValue() != 255 {
		t.Errorf("decoded %v maxval %d", got.Bounds(), got.MaxValue())
	}
	if y := color.GrayModel.Convert(got.At(0, 0)).(color.Gray).Y; y != 200 {
		t.Errorf("sample: %d", y)
	}
}

func TestPNM_Wide(t *testing.T) {
	img := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	img.SetNRGBA64(0, 0, color.NRGBA64{R: 0x1234, G: 0, B: 0xFFFF, A: 0xFFFF})
	var buf bytes.Buffer
	if _, err := NewPNM().Encode(context.Background(), &core.ImageData{Image: img}, core.EncodeOptions{}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "P6") {
		t.Errorf("colour should be written as a raw pixmap, got %q", buf.String()[:2])
	}
	got, err := netpbm.Decode(&buf, &netpbm.DecodeOptions{Target: netpbm.PNM})
	if err != nil {
		t.Fatal(err)
	}
	if got.MaxValue() != 0xFFFF {
		t.Errorf("maxval: %d", got.MaxValue())
	}
	c := color.NRGBA64Model.Convert(got.At(0, 0)).(color.NRGBA64)
	if c.R != 0x1234 || c.G != 0 || c.B != 0xFFFF {
		t.Errorf("pixel: %+v", c)
	}
}

func TestPNG_Lossless(t *testing.T) {
	img := testImage(t, 16, 16)
	var buf bytes.Buffer
	if _, err := NewPNG().Encode(context.Background(), img, core.EncodeOptions{Lossless: true}, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != img.Image.Bounds() {
		t.Errorf("bounds: %v", got.Bounds())
	}
}
