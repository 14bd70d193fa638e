package utils

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/Erithax/zune-image/errors"
)

func TestDrainReader(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	got, err := DrainReader(context.Background(), bytes.NewReader(data), 7, 0)
	if err != nil {
		t.Fatalf("DrainReader: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("got %d bytes, want %d", len(got), len(data))
	}
}

func TestDrainReader_Limit(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)
	_, err := DrainReader(context.Background(), bytes.NewReader(data), 16, 50)
	if !errors.Is(err, apperrors.ErrImageTooLarge) {
		t.Errorf("got %v, want ErrImageTooLarge", err)
	}
}

func TestDrainReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DrainReader(ctx, strings.NewReader("abc"), 0, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &CountingWriter{W: &buf}
	cw.Write([]byte("hello"))
	cw.Write([]byte(" world"))
	if cw.N != 11 || buf.String() != "hello world" {
		t.Errorf("N=%d buf=%q", cw.N, buf.String())
	}
}

func TestFramePath(t *testing.T) {
	cases := []struct {
		path     string
		n, total int
		want     string
	}{
		{"out/b.png", 0, 1, "out/b.png"},
		{"out/b.png", 0, 3, "out/b-0.png"},
		{"out/b.png", 2, 3, "out/b-2.png"},
		{"noext", 1, 2, "noext-1"},
	}
	for _, tc := range cases {
		if got := FramePath(tc.path, tc.n, tc.total); got != tc.want {
			t.Errorf("FramePath(%q, %d, %d) = %q, want %q", tc.path, tc.n, tc.total, got, tc.want)
		}
	}
}

func TestExtension(t *testing.T) {
	for in, want := range map[string]string{
		"b.png":       "png",
		"dir.d/b":     "",
		"archive.PNG": "PNG",
		"a.tar.gz":    "gz",
	} {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScaleDimensions(t *testing.T) {
	if w, h := ScaleDimensions(800, 600, 400, 0); w != 400 || h != 300 {
		t.Errorf("got %dx%d", w, h)
	}
	if w, h := ScaleDimensions(800, 600, 0, 150); w != 200 || h != 150 {
		t.Errorf("got %dx%d", w, h)
	}
	if w, h := ScaleDimensions(800, 600, 100, 50); w != 100 || h != 50 {
		t.Errorf("got %dx%d", w, h)
	}
}
